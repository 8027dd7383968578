package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
)

// classify wraps err with the reconcile error kind its SQLSTATE implies.
// Lock contention is retryable; integrity failures mean the event asked for
// a state the schema forbids. Data exceptions (values too long, bytes the
// column cannot hold) fail the same way on every attempt.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case pgErr.Code == pgerrcode.LockNotAvailable,
		pgErr.Code == pgerrcode.DeadlockDetected,
		pgErr.Code == pgerrcode.SerializationFailure:
		return fmt.Errorf("%s: %w: %w", op, reconcile.ErrTransient, err)
	case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
		return fmt.Errorf("%s: %w: %s (%s)", op, reconcile.ErrConsistencyViolation, pgErr.Message, pgErr.ConstraintName)
	case pgerrcode.IsDataException(pgErr.Code):
		return fmt.Errorf("%s: %w: %s (%s)", op, reconcile.ErrPermanent, pgErr.Message, pgErr.Code)
	}

	return fmt.Errorf("%s: %w", op, err)
}
