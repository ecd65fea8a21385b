// Package policy evaluates organization password policies. All functions are
// pure; persistence of history hashes is the caller's job.
package policy

import (
	"errors"
	"time"
	"unicode"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/pkg/cryptox"
)

var (
	ErrTooShort         = errors.New("policy: password shorter than minimum length")
	ErrMissingUppercase = errors.New("policy: password needs an uppercase letter")
	ErrMissingLowercase = errors.New("policy: password needs a lowercase letter")
	ErrMissingNumber    = errors.New("policy: password needs a digit")
	ErrMissingSymbol    = errors.New("policy: password needs a symbol")
	ErrReused           = errors.New("policy: password was used recently")
)

// Validate checks a candidate password against the policy. It returns the
// first violated rule.
func Validate(p domain.PasswordPolicy, password string) error {
	if len([]rune(password)) < p.MinLength {
		return ErrTooShort
	}

	var upper, lower, number, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			number = true
		default:
			symbol = true
		}
	}

	if p.RequireUppercase && !upper {
		return ErrMissingUppercase
	}
	if p.RequireLowercase && !lower {
		return ErrMissingLowercase
	}
	if p.RequireNumbers && !number {
		return ErrMissingNumber
	}
	if p.RequireSymbols && !symbol {
		return ErrMissingSymbol
	}
	return nil
}

// CheckHistory rejects a candidate that matches any of the stored previous
// hashes. The caller passes at most the policy's HistoryCount hashes.
func CheckHistory(password string, previousHashes []string) error {
	for _, hash := range previousHashes {
		if err := cryptox.VerifyPassword(password, hash); err == nil {
			return ErrReused
		}
	}
	return nil
}

// Expired reports whether the password exceeded the policy's maximum age.
// A zero MaxAge disables expiry, as does a missing change timestamp.
func Expired(p domain.PasswordPolicy, changedAt *time.Time, now time.Time) bool {
	if p.MaxAge <= 0 || changedAt == nil {
		return false
	}
	return now.Sub(*changedAt) > p.MaxAge
}
