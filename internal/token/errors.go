package token

import "errors"

var (
	ErrMalformed         = errors.New("token malformed")
	ErrSignatureMismatch = errors.New("token signature mismatch")
	ErrExpired           = errors.New("token expired or not yet valid")

	ErrMissingUserID = errors.New("claims carry no user id")
)
