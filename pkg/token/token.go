// Package token reads claims from access tokens without validating them.
//
// The audience claim is used by the vault purely as a secondary encryption
// secret. Whether the token is authentic or expired is decided by whoever
// issued and accepted it upstream; this package intentionally performs no
// signature, expiry, or issuer checks.
package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates a token whose claims cannot be read or whose
// audience claim is absent, empty, or not a single string.
var ErrInvalidToken = errors.New("token: invalid access token")

var parser = jwt.NewParser()

// Audience returns the "aud" claim of accessToken.
func Audience(accessToken string) (string, error) {
	claims, err := Claims(accessToken)
	if err != nil {
		return "", err
	}

	raw, ok := claims["aud"]
	if !ok {
		return "", fmt.Errorf("%w: audience claim missing", ErrInvalidToken)
	}
	aud, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: audience claim is not a string", ErrInvalidToken)
	}
	if aud == "" {
		return "", fmt.Errorf("%w: audience claim is empty", ErrInvalidToken)
	}
	return aud, nil
}

// Claims decodes the claim set of accessToken without verifying it.
func Claims(accessToken string) (jwt.MapClaims, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
