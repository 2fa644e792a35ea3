package service

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")

	// ErrInvalidCode covers every failed OTP or TOTP check.
	ErrInvalidCode       = errors.New("invalid code")
	ErrTOTPNotConfigured = errors.New("TOTP not set up")

	ErrUnauthenticated = errors.New("no valid session")
	ErrMFANotVerified  = errors.New("session has not completed MFA")
)
