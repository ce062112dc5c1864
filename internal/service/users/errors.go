package users

import "errors"

var (
	ErrUsernameTaken = errors.New("username already taken")
	ErrInvalidInput  = errors.New("username and password are required")
	ErrUnauthorized  = errors.New("unauthorized")
)
