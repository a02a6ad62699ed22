package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrUserNotFound       = errors.New("user not found")

	// ErrUnknownRole is returned for tokens or rows carrying a role this
	// service does not issue.
	ErrUnknownRole = errors.New("unknown role")
)
