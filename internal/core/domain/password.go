package domain

import "unicode"

const (
	PasswordMinLength = 8
	// PasswordMaxBytes is bcrypt's input ceiling.
	PasswordMaxBytes = 72
)

// PasswordPolicyViolation returns a human-readable reason when p does not
// satisfy the password policy, or "" when it does.
func PasswordPolicyViolation(p string) string {
	if len([]rune(p)) < PasswordMinLength {
		return "password must be at least 8 characters"
	}
	if len(p) > PasswordMaxBytes {
		return "password must be at most 72 bytes"
	}

	var hasDigit, hasUpper bool
	for _, r := range p {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}
	if !hasDigit {
		return "password must contain at least one digit"
	}
	if !hasUpper {
		return "password must contain at least one uppercase letter"
	}
	return ""
}
