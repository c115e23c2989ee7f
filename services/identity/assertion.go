package identity

import (
	"errors"
	"strings"
)

// ErrIncompleteAssertion is returned when the token claims are missing the
// username or display name. Callers recover locally by treating the request
// as authenticated with no authority; it is never a hard failure.
var ErrIncompleteAssertion = errors.New("incomplete identity assertion")

// Assertion is the normalized subset of token claims used for reconciliation.
type Assertion struct {
	Username    string
	DisplayName string
	Email       string
	NationalID  string
}

// NewAssertion builds an Assertion from raw claim values. The national ID is
// normalized to its canonical digits-only form before anything compares or
// stores it.
func NewAssertion(username, displayName, email, nationalID string) (*Assertion, error) {
	if username == "" || displayName == "" {
		return nil, ErrIncompleteAssertion
	}

	return &Assertion{
		Username:    username,
		DisplayName: displayName,
		Email:       email,
		NationalID:  NormalizeNationalID(nationalID),
	}, nil
}

// NormalizeNationalID strips every non-digit character from a raw national
// identifier. Equivalent inputs always produce the same output; input with no
// digits normalizes to the empty string.
func NormalizeNationalID(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
