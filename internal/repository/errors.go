package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Domain-level errors I prefer to bubble up from repository implementations.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrConflict      = errors.New("conflict")
	// ErrDataUnavailable means the backing collection could not be read at all,
	// so nothing (not even its size) can be reported truthfully.
	ErrDataUnavailable = errors.New("data unavailable")
)

// Unavailable wraps a low-level failure so callers can match it with
// errors.Is(err, ErrDataUnavailable) and still see the cause.
func Unavailable(cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, ErrDataUnavailable) {
		return cause
	}
	return fmt.Errorf("%w: %v", ErrDataUnavailable, cause)
}

// MapPgError translates common Postgres error codes to domain errors.
// I only map what I expect to handle explicitly at higher layers; everything else passes through.
func MapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return ErrAlreadyExists
		case pgerrcode.ForeignKeyViolation:
			return ErrConflict
		}
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return Unavailable(err)
	}
	return err
}
