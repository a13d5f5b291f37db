// Package validation checks registration and login input before it is sent
// to the backend, so the user sees the error without a round trip.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// MaxPasswordBytes - bcrypt на бэкенде обрезает пароль после 72 байт
const MaxPasswordBytes = 72

// ErrNoLoginIdentity is returned when neither username nor email is given
var ErrNoLoginIdentity = errors.New("either username or email must be provided")

// ValidateUsername проверяет, что username задан
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if strings.TrimSpace(username) != username {
		return fmt.Errorf("username cannot start or end with spaces")
	}
	return nil
}

// ValidateEmail проверяет формат адреса (одиночный адрес без имени)
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("email %q is not a valid address", email)
	}
	return nil
}

// ValidatePassword проверяет длину пароля в байтах UTF-8
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("password is too long, use at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

// ValidateRegistration validates every field of a registration form and
// returns the first problem found.
func ValidateRegistration(username, email, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return ValidatePassword(password)
}

// ValidateLogin requires a password and at least one of username and email
func ValidateLogin(username, email, password string) error {
	if username == "" && email == "" {
		return ErrNoLoginIdentity
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	return nil
}
