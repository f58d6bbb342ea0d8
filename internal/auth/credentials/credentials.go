// Package credentials validates the sign-in and sign-up forms before they reach the backend.
package credentials

import (
	"errors"
	"regexp"
	"strings"
)

const MinPasswordLength = 6

var (
	emailPattern = regexp.MustCompile(`[^\s@]+@[^\s@]+\.[^\s@]+`)
	phonePattern = regexp.MustCompile(`^\+?[0-9\s-]{7,15}$`)
)

var (
	ErrMissingFields      = errors.New("Please fill in all required fields")
	ErrMissingSignUpField = errors.New("Please fill all fields")
	ErrInvalidEmail       = errors.New("Please enter a valid email address")
	ErrInvalidPhone       = errors.New("Please enter a valid phone number")
	ErrNameTooShort       = errors.New("Full name looks too short")
	ErrPasswordTooShort   = errors.New("Password must be at least 6 characters long")
	ErrPasswordMismatch   = errors.New("Passwords do not match")
)

var validationErrors = []error{
	ErrMissingFields,
	ErrMissingSignUpField,
	ErrInvalidEmail,
	ErrInvalidPhone,
	ErrNameTooShort,
	ErrPasswordTooShort,
	ErrPasswordMismatch,
}

// IsValidation reports whether err was produced by form validation rather than the backend
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// SignUpForm is the raw sign-up input
type SignUpForm struct {
	FullName        string
	Phone           string
	Email           string
	Password        string
	ConfirmPassword string
}

// ValidEmail reports whether value looks like an email address
func ValidEmail(value string) bool {
	return emailPattern.MatchString(value)
}

// ValidPhone reports whether value looks like a phone number
func ValidPhone(value string) bool {
	return phonePattern.MatchString(strings.TrimSpace(value))
}

// ValidateSignIn checks the email/password form
func ValidateSignIn(email, password string) error {
	if email == "" || password == "" {
		return ErrMissingFields
	}
	if !ValidEmail(email) {
		return ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// ValidateSignUp checks the sign-up form, in the order the screen reports problems
func ValidateSignUp(form SignUpForm) error {
	if strings.TrimSpace(form.FullName) == "" || strings.TrimSpace(form.Phone) == "" ||
		form.Email == "" || form.Password == "" || form.ConfirmPassword == "" {
		return ErrMissingSignUpField
	}
	if !ValidEmail(form.Email) {
		return ErrInvalidEmail
	}
	if !ValidPhone(form.Phone) {
		return ErrInvalidPhone
	}
	if len([]rune(strings.TrimSpace(form.FullName))) < 2 {
		return ErrNameTooShort
	}
	if len(form.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if form.Password != form.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}
