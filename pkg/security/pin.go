// Package security provides PIN policy checks for the vault.
package security

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PIN length limits
const (
	MinPINLength = 4
	MaxPINLength = 12
)

// Errors
var (
	ErrPINTooShort   = errors.New("security: PIN too short")
	ErrPINTooLong    = errors.New("security: PIN too long")
	ErrPINNotNumeric = errors.New("security: PIN must contain only digits")
)

// PINStrength represents how guessable a PIN is.
type PINStrength int

const (
	// PINWeak is a PIN found in common lists or made of an obvious pattern.
	PINWeak PINStrength = iota
	// PINFair is a short PIN with no obvious pattern.
	PINFair
	// PINStrong is a PIN of 6 or more digits with no obvious pattern.
	PINStrong
)

// String returns a human-readable representation of the PIN strength.
func (s PINStrength) String() string {
	switch s {
	case PINWeak:
		return "Weak"
	case PINFair:
		return "Fair"
	case PINStrong:
		return "Strong"
	default:
		return "Unknown"
	}
}

// commonPINs are the most frequently chosen PINs that no pattern rule catches.
var commonPINs = map[string]struct{}{
	"1212": {}, "1004": {}, "2000": {}, "6969": {}, "1122": {}, "1313": {},
	"2001": {}, "1010": {}, "1984": {}, "2580": {}, "0852": {}, "1357": {},
	"2468": {}, "7410": {}, "0007": {}, "1123": {}, "112233": {}, "121212": {},
	"123123": {}, "159753": {}, "131313": {}, "696969": {}, "520520": {},
}

// NormalizePIN applies NFKC normalisation so that full-width or other
// compatibility digits compare equal to ASCII digits, and trims spaces.
func NormalizePIN(pin string) string {
	return strings.TrimSpace(norm.NFKC.String(pin))
}

// ValidatePIN checks the format of a normalised PIN.
func ValidatePIN(pin string) error {
	if len(pin) < MinPINLength {
		return fmt.Errorf("%w: must be at least %d digits", ErrPINTooShort, MinPINLength)
	}
	if len(pin) > MaxPINLength {
		return fmt.Errorf("%w: must be at most %d digits", ErrPINTooLong, MaxPINLength)
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return ErrPINNotNumeric
		}
	}
	return nil
}

// PINAnalysis holds the result of AnalyzePIN.
type PINAnalysis struct {
	Strength PINStrength
	Warnings []string
}

// AnalyzePIN estimates the strength of a valid, normalised PIN.
// Warnings are advisory; they never block vault creation.
func AnalyzePIN(pin string) *PINAnalysis {
	result := &PINAnalysis{Strength: PINFair}
	if pin == "" {
		result.Strength = PINWeak
		return result
	}

	switch {
	case isRepeated(pin):
		result.Warnings = append(result.Warnings, "PIN repeats a single digit")
	case isSequential(pin):
		result.Warnings = append(result.Warnings, "PIN is an ascending or descending sequence")
	case isPeriodic(pin):
		result.Warnings = append(result.Warnings, "PIN repeats a short pattern")
	case isCommon(pin):
		result.Warnings = append(result.Warnings, "PIN is one of the most commonly used PINs")
	}
	if len(result.Warnings) > 0 {
		result.Strength = PINWeak
		return result
	}

	if len(pin) >= 6 && distinctDigits(pin) >= 3 {
		result.Strength = PINStrong
	} else if len(pin) < 6 {
		result.Warnings = append(result.Warnings, "Longer PINs (6+ digits) are harder to guess")
	}
	return result
}

func isRepeated(pin string) bool {
	return strings.Count(pin, pin[:1]) == len(pin)
}

// isSequential reports runs like 1234, 6789, 9876, 3210.
func isSequential(pin string) bool {
	asc, desc := true, true
	for i := 1; i < len(pin); i++ {
		d := int(pin[i]) - int(pin[i-1])
		if d != 1 {
			asc = false
		}
		if d != -1 {
			desc = false
		}
	}
	return asc || desc
}

// isPeriodic reports PINs made of one block repeated, such as 1212 or 123123.
func isPeriodic(pin string) bool {
	for period := 2; period <= len(pin)/2; period++ {
		if len(pin)%period != 0 {
			continue
		}
		if strings.Repeat(pin[:period], len(pin)/period) == pin {
			return true
		}
	}
	return false
}

func isCommon(pin string) bool {
	_, ok := commonPINs[pin]
	if ok {
		return true
	}
	// Years 1900-2099 are among the most guessed 4-digit PINs
	if len(pin) == 4 && (strings.HasPrefix(pin, "19") || strings.HasPrefix(pin, "20")) {
		return true
	}
	return false
}

func distinctDigits(pin string) int {
	seen := make(map[byte]struct{}, len(pin))
	for i := 0; i < len(pin); i++ {
		seen[pin[i]] = struct{}{}
	}
	return len(seen)
}
