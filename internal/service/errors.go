package service

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("not allowed in the current state")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidUserID = errors.New("user id is not valid")
)
