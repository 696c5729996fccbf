package domain

import (
	"fmt"
	"strings"
)

// ValidationMode selects how incomplete upstream data is treated.
type ValidationMode string

const (
	// ValidationLenient treats missing covariance cells and prices as zero.
	ValidationLenient ValidationMode = "lenient"
	// ValidationStrict rejects incomplete or inconsistent inputs.
	ValidationStrict ValidationMode = "strict"
)

// ParseValidationMode parses a mode name; empty input means lenient.
func ParseValidationMode(s string) (ValidationMode, error) {
	switch ValidationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ValidationLenient:
		return ValidationLenient, nil
	case ValidationStrict:
		return ValidationStrict, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownValidation, s)
	}
}

// Strict reports whether the mode rejects incomplete data.
func (m ValidationMode) Strict() bool {
	return m == ValidationStrict
}
