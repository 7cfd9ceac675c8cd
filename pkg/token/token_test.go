package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("issuer-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tok
}

func TestAudience(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{
		"sub": "acct-1",
		"aud": "profile-service-7f3a",
	})

	aud, err := Audience(tok)
	if err != nil {
		t.Fatalf("Audience() error = %v", err)
	}
	if aud != "profile-service-7f3a" {
		t.Errorf("Audience() = %q, want %q", aud, "profile-service-7f3a")
	}
}

func TestAudienceIgnoresValidity(t *testing.T) {
	// Expired, signed with a key nobody here knows, and using alg none: all
	// are still readable because authenticity is not this package's concern.
	expired := signedToken(t, jwt.MapClaims{
		"aud": "aud-expired",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	if aud, err := Audience(expired); err != nil || aud != "aud-expired" {
		t.Errorf("Audience(expired) = %q, %v; want aud-expired", aud, err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"aud": "aud-none"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build unsigned token: %v", err)
	}
	if aud, err := Audience(unsigned); err != nil || aud != "aud-none" {
		t.Errorf("Audience(unsigned) = %q, %v; want aud-none", aud, err)
	}
}

func TestAudienceInvalid(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"two segments", "abc.def"},
		{"missing aud", signedToken(t, jwt.MapClaims{"sub": "acct-1"})},
		{"empty aud", signedToken(t, jwt.MapClaims{"aud": ""})},
		{"aud array", signedToken(t, jwt.MapClaims{"aud": []string{"a", "b"}})},
		{"aud number", signedToken(t, jwt.MapClaims{"aud": 42})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aud, err := Audience(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Audience() error = %v, want %v", err, ErrInvalidToken)
			}
			if aud != "" {
				t.Errorf("Audience() = %q, want empty", aud)
			}
		})
	}
}
