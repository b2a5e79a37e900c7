package repository

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrStaleToken means the stored access token changed since it was read.
	ErrStaleToken = errors.New("access token changed concurrently")
	// ErrInvalidTransition means the row was not in the state the update required.
	ErrInvalidTransition = errors.New("row is not in the expected state")
)

type scanner interface {
	Scan(dest ...any) error
}
