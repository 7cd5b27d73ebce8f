// Package auth implements C5, the password primitive: Argon2id hashing
// behind a self-describing PHC string, constant-time verification, and
// strength validation. No other component ever sees a plaintext password
// or a derived key outside this file.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (spec.md §4.4): memory >= 19 MiB, time cost >= 2,
// parallelism 1, 32-byte output, 16-byte salt.
const (
	argonMemoryKiB  = 19 * 1024
	argonTime       = 2
	argonThreads    = 1
	argonKeyLen     = 32
	argonSaltLen    = 16
	argonVersion    = argon2.Version
	minPasswordLen  = 8
	dummyPassword   = "reed-dummy-password-for-timing-safety"
)

var (
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrPasswordNoUppercase = errors.New("password must contain at least one uppercase letter")
	ErrPasswordNoLowercase = errors.New("password must contain at least one lowercase letter")
	ErrPasswordNoDigit     = errors.New("password must contain at least one digit")
	ErrPasswordNoSpecial   = errors.New("password must contain at least one special character")

	ErrInvalidPHCString = errors.New("malformed argon2id PHC string")
	ErrPasswordMismatch = errors.New("password does not match")
)

// HashPassword derives an Argon2id key from plain using a fresh random
// salt and returns the result encoded as a PHC string:
// $argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
func HashPassword(plain string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	hash := argon2.IDKey([]byte(plain), salt, argonTime, argonMemoryKiB, argonThreads, argonKeyLen)
	return encodePHC(salt, hash), nil
}

// VerifyPassword reports whether plain matches the PHC-encoded hash,
// using a constant-time comparison of the derived keys. If phc is
// malformed the comparison still runs against a decoy to avoid leaking
// parse-failure timing.
func VerifyPassword(plain, phc string) (bool, error) {
	params, salt, wantHash, err := decodePHC(phc)
	if err != nil {
		VerifyDummy(plain)
		return false, err
	}
	gotHash := argon2.IDKey([]byte(plain), salt, params.time, params.memoryKiB, params.threads, uint32(len(wantHash)))
	return subtle.ConstantTimeCompare(gotHash, wantHash) == 1, nil
}

// VerifyDummy performs an Argon2id computation of equivalent cost to a
// real verification without comparing against any stored hash. Callers
// use this when a username does not exist, so that wall-clock time does
// not reveal whether the account is real (spec.md §7).
func VerifyDummy(plain string) {
	salt := []byte("reed-fixed-decoy-salt16")
	_ = argon2.IDKey([]byte(plain+dummyPassword), salt[:argonSaltLen], argonTime, argonMemoryKiB, argonThreads, argonKeyLen)
}

type phcParams struct {
	memoryKiB uint32
	time      uint32
	threads   uint8
}

func encodePHC(salt, hash []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argonVersion, argonMemoryKiB, argonTime, argonThreads,
		b64Encode(salt), b64Encode(hash))
}

func decodePHC(phc string) (phcParams, []byte, []byte, error) {
	// $argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return phcParams{}, nil, nil, ErrInvalidPHCString
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return phcParams{}, nil, nil, ErrInvalidPHCString
	}

	var params phcParams
	var mem, t, p uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &t, &p); err != nil {
		return phcParams{}, nil, nil, ErrInvalidPHCString
	}
	params.memoryKiB, params.time, params.threads = mem, t, uint8(p)

	salt, err := b64Decode(parts[4])
	if err != nil {
		return phcParams{}, nil, nil, ErrInvalidPHCString
	}
	hash, err := b64Decode(parts[5])
	if err != nil {
		return phcParams{}, nil, nil, ErrInvalidPHCString
	}

	return params, salt, hash, nil
}

// ValidatePasswordStrength enforces spec.md §4.4: at least 8 characters,
// one uppercase, one lowercase, one digit, one non-alphanumeric. It never
// touches a stored hash.
func ValidatePasswordStrength(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return ErrPasswordTooShort
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return ErrPasswordNoUppercase
	case !hasLower:
		return ErrPasswordNoLowercase
	case !hasDigit:
		return ErrPasswordNoDigit
	case !hasSpecial:
		return ErrPasswordNoSpecial
	}
	return nil
}
