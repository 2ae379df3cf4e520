package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Domain errors. Callers branch with errors.Is; the wrapped text is safe to
// show to end users except for ErrStoreUnavailable.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrEmailTaken         = errors.New("email already registered")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// InsufficientStockError reports how many units were on hand when the request
// was rejected. errors.Is(err, ErrInsufficientStock) matches it.
type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock. Only %d available.", e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// UserMessage returns the human readable part of a wrapped domain error,
// i.e. the text after "<sentinel>: ".
func UserMessage(err error) string {
	var stock *InsufficientStockError
	if errors.As(err, &stock) {
		return stock.Error()
	}
	msg := err.Error()
	for _, sentinel := range []error{ErrInvalidInput, ErrNotFound, ErrEmailTaken, ErrConflict} {
		if prefix := sentinel.Error() + ": "; strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

func invalidInput(msg string) error { return fmt.Errorf("%w: %s", ErrInvalidInput, msg) }

func notFound(msg string) error { return fmt.Errorf("%w: %s", ErrNotFound, msg) }

// isDomainError reports whether err already carries one of the caller-facing
// kinds and must be returned untouched.
func isDomainError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrStoreUnavailable)
}

// Store failure kinds, used only for logging and metrics.
const (
	storeKindLockTimeout = "lock_timeout"
	storeKindDeadlock    = "deadlock"
	storeKindTimeout     = "timeout"
	storeKindConnection  = "connection"
	storeKindOther       = "other"
)

// storeErrorKind maps a driver error to a coarse failure kind. Both the
// Postgres (pgx) and MySQL drivers are recognised.
func storeErrorKind(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "55P03":
			return storeKindLockTimeout
		case pgErr.Code == "40001" || pgErr.Code == "40P01":
			return storeKindDeadlock
		case pgErr.Code == "57014":
			return storeKindTimeout
		case strings.HasPrefix(pgErr.Code, "08"):
			return storeKindConnection
		}
		return storeKindOther
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1205:
			return storeKindLockTimeout
		case 1213:
			return storeKindDeadlock
		}
		return storeKindOther
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return storeKindTimeout
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, mysql.ErrInvalidConn):
		return storeKindConnection
	}
	return storeKindOther
}

// storeUnavailable logs err and wraps it as ErrStoreUnavailable. Domain errors
// pass through unchanged.
func storeUnavailable(op string, err error) error {
	if isDomainError(err) {
		return err
	}
	kind := storeErrorKind(err)
	log.Error().Err(err).Str("op", op).Str("kind", kind).Msg("store operation failed")
	return fmt.Errorf("%w: %s: %s", ErrStoreUnavailable, op, kind)
}
