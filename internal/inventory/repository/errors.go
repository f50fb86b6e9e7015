package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tair/smart-inventory/internal/inventory/domain"
)

// PostgreSQL error codes that mean "retry later".
const (
	pgLockNotAvailable     = "55P03"
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
	pgQueryCanceled        = "57014"
	pgCheckViolation       = "23514"
)

// translateError classifies driver errors and wraps the rest with op.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if classified, ok := classifyError(op, err); ok {
		return classified
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// classify is translateError without the wrapping of unclassified errors.
func classify(op string, err error) error {
	if classified, ok := classifyError(op, err); ok {
		return classified
	}
	return err
}

// classifyError maps lock, deadlock and deadline failures to domain
// errors. ok is true when err is, or now is, a *domain.Error.
func classifyError(op string, err error) (error, bool) {
	if err == nil {
		return nil, false
	}

	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		return err, true
	}

	// A cancelled caller is not contention and must not be retried.
	if errors.Is(err, context.Canceled) {
		return err, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Contention(op, err), true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgDeadlockDetected, pgSerializationFailure, pgQueryCanceled:
			return domain.Contention(op, err), true
		case pgCheckViolation:
			return &domain.Error{Kind: domain.ErrInvariantViolation, Op: op, Message: pgErr.Message, Err: err}, true
		}
	}
	return err, false
}
