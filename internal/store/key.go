package store

import (
	"regexp"
	"strings"

	"github.com/reedcms/reed/internal/corerr"
)

var (
	languageSuffix = regexp.MustCompile(`^[a-z]{2}$`)
	envSuffix      = regexp.MustCompile(`^[a-z]{3,12}$`)
)

// parsedKey is the decomposition of a stored key "base[@language][@environment]"
// (spec.md §3). Either suffix may appear independently; when both appear the
// language suffix precedes the environment suffix.
type parsedKey struct {
	base string
	lang string
	env  string
}

// parseKey splits a raw on-disk key into its base/language/environment
// parts. A trailing segment is classified as a language when it is exactly
// two lowercase letters, otherwise as an environment when it is 3-12
// lowercase letters; the two patterns never overlap.
func parseKey(raw string) (parsedKey, error) {
	parts := strings.Split(raw, "@")
	switch len(parts) {
	case 1:
		return parsedKey{base: parts[0]}, nil
	case 2:
		if languageSuffix.MatchString(parts[1]) {
			return parsedKey{base: parts[0], lang: parts[1]}, nil
		}
		if envSuffix.MatchString(parts[1]) {
			return parsedKey{base: parts[0], env: parts[1]}, nil
		}
		return parsedKey{}, &corerr.ParseError{Input: raw, Reason: "malformed language/environment suffix"}
	case 3:
		if !languageSuffix.MatchString(parts[1]) {
			return parsedKey{}, &corerr.ParseError{Input: raw, Reason: "expected two-letter language suffix before environment suffix"}
		}
		if !envSuffix.MatchString(parts[2]) {
			return parsedKey{}, &corerr.ParseError{Input: raw, Reason: "malformed environment suffix"}
		}
		return parsedKey{base: parts[0], lang: parts[1], env: parts[2]}, nil
	default:
		return parsedKey{}, &corerr.ParseError{Input: raw, Reason: "too many '@' segments in key"}
	}
}

// withEnv renders base[@env], the form stored inside a single language
// bucket of the TEXT/ROUTE caches (language is already the map dimension).
func withEnv(base, env string) string {
	if env == "" {
		return base
	}
	return base + "@" + env
}

// lookupKeys returns the fallback search order for (base, env): "base@env"
// first, then "base" (spec.md §4.3 fallback law).
func lookupKeys(base, env string) []string {
	if env == "" {
		return []string{base}
	}
	return []string{withEnv(base, env), base}
}
