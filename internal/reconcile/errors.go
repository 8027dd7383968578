package reconcile

import (
	"errors"
	"fmt"
)

// Every error returned by Apply wraps exactly one of these. A replay of an
// already-seen event is not an error; see OutcomeDuplicate.
var (
	// ErrTransient marks storage or lock failures that are safe to retry.
	ErrTransient = errors.New("transient error")
	// ErrConsistencyViolation marks events that reference unknown records or
	// would break a ledger invariant. They are dead-lettered, never retried.
	ErrConsistencyViolation = errors.New("consistency violation")
	// ErrPermanent marks malformed events.
	ErrPermanent = errors.New("permanent error")
)

type Kind string

const (
	KindTransient   Kind = "transient"
	KindConsistency Kind = "consistency_violation"
	KindPermanent   Kind = "permanent"
)

// KindOf classifies err. Errors carrying no kind are treated as transient.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrConsistencyViolation):
		return KindConsistency
	case errors.Is(err, ErrPermanent):
		return KindPermanent
	default:
		return KindTransient
	}
}

// Retryable reports whether a failed delivery may be attempted again.
func Retryable(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}

func transient(op string, err error) error {
	if errors.Is(err, ErrConsistencyViolation) || errors.Is(err, ErrPermanent) || errors.Is(err, ErrTransient) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConsistencyViolation, fmt.Sprintf(format, args...))
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPermanent, fmt.Sprintf(format, args...))
}
