package auth

import "testing"

func TestHashPassword(t *testing.T) {
	password := "correct horse battery staple 9!"

	phc, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if phc == "" {
		t.Error("HashPassword returned empty hash")
	}
	if phc == password {
		t.Error("HashPassword returned unhashed password")
	}
}

func TestVerifyPassword(t *testing.T) {
	password := "correct horse battery staple 9!"

	phc, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	ok, err := VerifyPassword(password, phc)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for correct password: %v", err)
	}
	if !ok {
		t.Error("VerifyPassword rejected the correct password")
	}

	ok, err = VerifyPassword("wrong password", phc)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for wrong password: %v", err)
	}
	if ok {
		t.Error("VerifyPassword accepted the wrong password")
	}
}

func TestVerifyPassword_MalformedPHC(t *testing.T) {
	_, err := VerifyPassword("anything", "not-a-phc-string")
	if err == nil {
		t.Error("expected an error for a malformed PHC string")
	}
}

func TestHashPassword_UniqueSaltPerCall(t *testing.T) {
	a, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	b, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if a == b {
		t.Error("two hashes of the same password with independent salts should differ")
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "valid password", password: "Abcdefg1!", wantErr: nil},
		{name: "too short", password: "Ab1!", wantErr: ErrPasswordTooShort},
		{name: "no uppercase", password: "abcdefg1!", wantErr: ErrPasswordNoUppercase},
		{name: "no lowercase", password: "ABCDEFG1!", wantErr: ErrPasswordNoLowercase},
		{name: "no digit", password: "Abcdefgh!", wantErr: ErrPasswordNoDigit},
		{name: "no special character", password: "Abcdefg123", wantErr: ErrPasswordNoSpecial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswordStrength(tt.password)
			if err != tt.wantErr {
				t.Errorf("ValidatePasswordStrength(%q) = %v, want %v", tt.password, err, tt.wantErr)
			}
		})
	}
}
