package errs

import (
	"errors"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrDatabaseError = errors.New("database error")
	ErrNotFound      = errors.New("not found")
	ErrNoPrivileges  = errors.New("no privileges")
	ErrInternal      = errors.New("internal error")
)
