package validation

import (
	"regexp"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

type PasswordCheck struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidatePassword only enforces length bounds; complexity is left to the
// caller's policy.
func ValidatePassword(password string) PasswordCheck {
	var errs []string

	length := utf8.RuneCountInString(password)
	if length < MinPasswordLength {
		errs = append(errs, "Password must be at least 8 characters long")
	}
	if length > MaxPasswordLength {
		errs = append(errs, "Password must be less than 128 characters")
	}

	return PasswordCheck{Valid: len(errs) == 0, Errors: errs}
}
