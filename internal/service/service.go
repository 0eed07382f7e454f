// Package service holds the data service's transactional business logic.
// Each operation runs in one pgx transaction; reads that only feed a
// response live in the handlers.
package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kiwari-pos/tablepos/internal/apperr"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Errors returned by the services.
var (
	ErrProfileNotFound    = apperr.New(apperr.CodeNotFound, "pos profile not found")
	ErrShiftNotFound      = apperr.New(apperr.CodeNotFound, "shift not found")
	ErrShiftAlreadyOpen   = apperr.New(apperr.CodeRejected, "a shift is already open for this profile")
	ErrShiftClosed        = apperr.New(apperr.CodeRejected, "shift is already closed")
	ErrNoOpenShift        = apperr.New(apperr.CodeRejected, "no open shift for this profile")
	ErrTableNotFound      = apperr.New(apperr.CodeNotFound, "table not found")
	ErrTableNotAvailable  = apperr.New(apperr.CodeRejected, "table is not available")
	ErrSameTable          = apperr.New(apperr.CodeValidation, "source and destination table are the same")
	ErrInvalidTableStatus = apperr.New(apperr.CodeValidation, "invalid table status")
	ErrEmptyLines         = apperr.New(apperr.CodeValidation, "lines are required")
	ErrInvalidQuantity    = apperr.New(apperr.CodeValidation, "qty must be > 0")
	ErrInvalidDiscount    = apperr.New(apperr.CodeValidation, "discount_percentage must be between 0 and 100")
	ErrInvalidRate        = apperr.New(apperr.CodeValidation, "rate must not be negative")
	ErrPrecision          = apperr.New(apperr.CodeValidation, "rate and discount_percentage allow at most 2 decimal places")
	ErrItemNotFound       = apperr.New(apperr.CodeNotFound, "item not found")
	ErrNoDraftTickets     = apperr.New(apperr.CodeRejected, "no kitchen tickets to invoice for this table")
	ErrInvalidPaymentMode = apperr.New(apperr.CodeValidation, "payment mode is not enabled for this profile")
	ErrInvalidAmount      = apperr.New(apperr.CodeValidation, "amount must not be negative")
)

// isUniqueViolation reports a unique constraint violation (pgconn error
// code 23505) on the named constraint or index.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}
