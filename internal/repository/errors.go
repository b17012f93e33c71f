package repository

import (
	"context"
	"errors"
	"strings"

	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes treated as a lost write race.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
	pgLockNotAvailable     = "55P03"
)

// translate maps a driver/gorm error to the service error taxonomy.
// entity names the record in the hint shown to callers.
func translate(err error, entity string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ierr.WithError(err).
			WithHintf("%s not found", entity).
			Mark(ierr.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ierr.WithError(err).
			WithHintf("%s was modified concurrently", entity).
			Mark(ierr.ErrConflict)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ierr.WithError(err).
			WithHint("the request was cancelled before it completed").
			Mark(ierr.ErrUnavailable)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgUniqueViolation, pgLockNotAvailable:
			return ierr.WithError(err).
				WithHintf("%s was modified concurrently", entity).
				Mark(ierr.ErrConflict)
		}
	}

	// SQLite reports writer contention as SQLITE_BUSY / SQLITE_LOCKED
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") {
		return ierr.WithError(err).
			WithHintf("%s was modified concurrently", entity).
			Mark(ierr.ErrConflict)
	}

	return ierr.WithError(err).
		WithMessage(entity).
		Mark(ierr.ErrInternal)
}

// translateUnique is translate for inserts whose unique index is a business
// key. A duplicate there is final, so it is marked AlreadyExists and the
// runner does not retry it.
func translateUnique(err error, entity, key string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.Is(err, gorm.ErrDuplicatedKey) || (errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation) {
		return ierr.WithError(err).
			WithHintf("%s with this %s already exists", entity, key).
			Also(ierr.ErrAlreadyExists).
			Mark(ierr.ErrConflict)
	}
	return translate(err, entity)
}

// staleWrite is returned when a versioned update matched no row.
func staleWrite(entity string) error {
	return ierr.NewError(entity + " version is stale").
		WithHintf("%s was modified concurrently", entity).
		Mark(ierr.ErrConflict)
}

func orderNotInStatus(order *model.Order, status string) error {
	return ierr.Newf("order %s is not %s", order.ID, status).
		WithHintf("Order %s is no longer %s", order.OrderNumber, status).
		Mark(ierr.ErrInvalidState)
}
