package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrCompanyNotFound    = errors.New("company not found")
	ErrUserNotFound       = errors.New("user not found")
)
