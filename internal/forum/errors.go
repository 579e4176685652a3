package forum

import (
	"errors"
	"fmt"

	"github.com/klkchan/klkchan/internal/database"
	"github.com/klkchan/klkchan/internal/moderation"
)

// Error kinds, match them with errors.Is
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalid        = errors.New("invalid input")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrBannedWords    = moderation.ErrBannedWords
	ErrLocked         = errors.New("locked")
	ErrLockedOut      = errors.New("too many failed login attempts")
	ErrBadCredentials = errors.New("invalid credentials")
)

// Error carries a user-facing detail message and unwraps to its kind
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// storeErr maps storage errors to service errors, what names the missing entity
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return newError(ErrNotFound, "%s not found", what)
	case errors.Is(err, database.ErrDuplicate):
		return newError(ErrConflict, "%s already exists", what)
	}
	return err
}
