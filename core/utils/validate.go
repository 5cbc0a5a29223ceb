package utils

import (
	"errors"
	"regexp"
	"strings"
)

var (
	emailRe                   = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	identityPasswordMinLength = 6
	identityPasswordMaxLength = 128
)

var (
	ErrInvalidEmail     = errors.New("Invalid email format.")
	ErrPasswordTooShort = errors.New("Password must be at least 6 characters.")
	ErrPasswordTooLong  = errors.New("Password must be at most 128 characters.")
)

func ValidateEmail(s string) error {
	if !emailRe.MatchString(s) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateIdentityPassword(s string) error {
	if len(s) < identityPasswordMinLength {
		return ErrPasswordTooShort
	}
	if len(s) > identityPasswordMaxLength {
		return ErrPasswordTooLong
	}
	return nil
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
