package validation

import (
	"fmt"
	"regexp"
	"unicode"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidatePassword checks if a password meets the account requirements.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("Password must be at least 8 characters long")
	}
	if len(password) > 128 {
		return fmt.Errorf("Password must not exceed 128 characters")
	}

	hasLetter, hasDigit := false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("Password must contain at least one letter and one digit")
	}

	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("Username must be at least 3 characters long")
	}
	if len(username) > 30 {
		return fmt.Errorf("Username must not exceed 30 characters")
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("Username can only contain letters, numbers, underscores, and hyphens")
	}
	if username[0] == '_' || username[0] == '-' || username[len(username)-1] == '_' || username[len(username)-1] == '-' {
		return fmt.Errorf("Username cannot start or end with underscore or hyphen")
	}
	return nil
}

// ValidateEmail checks the address format with the shared struct validator.
func ValidateEmail(email string) error {
	if len(email) > 150 {
		return fmt.Errorf("Email must not exceed 150 characters")
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("Invalid email format")
	}
	return nil
}
