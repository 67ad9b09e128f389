package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotActive      = errors.New("user not active")
	ErrPasswordTooLong    = errors.New("password longer than 72 bytes")
)
