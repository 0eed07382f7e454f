package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/kiwari-pos/tablepos/internal/enum"
	"github.com/kiwari-pos/tablepos/internal/metrics"
	"github.com/shopspring/decimal"
)

// ShiftStore defines the DB methods needed by the shift service.
// Satisfied by *database.Queries (and its WithTx variant).
type ShiftStore interface {
	GetPOSProfile(ctx context.Context, name string) (database.PosProfile, error)
	ListProfilePaymentModes(ctx context.Context, profileName string) ([]database.ProfilePaymentMode, error)
	GetOpenShift(ctx context.Context, arg database.GetOpenShiftParams) (database.OpeningEntry, error)
	CreateOpeningEntry(ctx context.Context, arg database.CreateOpeningEntryParams) (database.OpeningEntry, error)
	CreateOpeningBalance(ctx context.Context, arg database.CreateOpeningBalanceParams) error
	GetOpeningEntry(ctx context.Context, id uuid.UUID) (database.OpeningEntry, error)
	GetOpeningEntryForUpdate(ctx context.Context, id uuid.UUID) (database.OpeningEntry, error)
	ListOpeningBalances(ctx context.Context, openingEntryID uuid.UUID) ([]database.OpeningBalance, error)
	GetShiftTotals(ctx context.Context, openingEntryID uuid.UUID) (database.GetShiftTotalsRow, error)
	ListShiftPaymentTotals(ctx context.Context, openingEntryID uuid.UUID) ([]database.ListShiftPaymentTotalsRow, error)
	CloseOpeningEntry(ctx context.Context, arg database.CloseOpeningEntryParams) (database.OpeningEntry, error)
	CreateClosingEntry(ctx context.Context, arg database.CreateClosingEntryParams) (database.ClosingEntry, error)
	CreateClosingReconciliation(ctx context.Context, arg database.CreateClosingReconciliationParams) error
}

// NewShiftStore creates a ShiftStore from a DBTX (pool or tx).
type NewShiftStore func(db database.DBTX) ShiftStore

// SessionState is the profile and its open shift for one user.
type SessionState struct {
	Profile      database.PosProfile
	OpenShift    *database.OpeningEntry
	PaymentModes []database.ProfilePaymentMode
}

// OpenShiftRequest is the validated input for opening a shift.
type OpenShiftRequest struct {
	Profile     string
	UserID      uuid.UUID
	OpeningCash decimal.Decimal
}

// ModeTotal reconciles one payment mode: expected = opening + sales, and
// the closing amount is recorded equal to the expected amount.
type ModeTotal struct {
	ModeOfPayment string
	Opening       decimal.Decimal
	Sales         decimal.Decimal
	Expected      decimal.Decimal
	Closing       decimal.Decimal
}

// ShiftSummary aggregates the invoices recorded against a shift.
type ShiftSummary struct {
	Entry         database.OpeningEntry
	OpeningCash   decimal.Decimal
	InvoiceCount  int
	GrandTotal    decimal.Decimal
	NetTotal      decimal.Decimal
	TotalQuantity int
	Payments      []ModeTotal
}

// ShiftService opens, summarizes and closes shifts.
type ShiftService struct {
	pool     TxBeginner
	newStore NewShiftStore
	metrics  *metrics.Server
	now      func() time.Time
}

// NewShiftService creates a new ShiftService. m may be nil.
func NewShiftService(pool TxBeginner, newStore NewShiftStore, m *metrics.Server) *ShiftService {
	return &ShiftService{pool: pool, newStore: newStore, metrics: m, now: time.Now}
}

// SessionState returns the profile, its payment modes and the user's open
// shift, if any.
func (s *ShiftService) SessionState(ctx context.Context, profile string, userID uuid.UUID) (*SessionState, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	p, err := store.GetPOSProfile(ctx, profile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	modes, err := store.ListProfilePaymentModes(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("list payment modes: %w", err)
	}

	result := &SessionState{Profile: p, PaymentModes: modes}
	entry, err := store.GetOpenShift(ctx, database.GetOpenShiftParams{ProfileName: profile, UserID: userID})
	switch {
	case err == nil:
		result.OpenShift = &entry
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, fmt.Errorf("get open shift: %w", err)
	}
	return result, nil
}

// OpenShift creates an opening entry. The opening cash is recorded against
// the profile's first payment mode.
func (s *ShiftService) OpenShift(ctx context.Context, req OpenShiftRequest) (*database.OpeningEntry, error) {
	if req.OpeningCash.IsNegative() {
		return nil, ErrInvalidAmount
	}
	start := s.now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	p, err := store.GetPOSProfile(ctx, req.Profile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	_, err = store.GetOpenShift(ctx, database.GetOpenShiftParams{ProfileName: req.Profile, UserID: req.UserID})
	if err == nil {
		return nil, ErrShiftAlreadyOpen
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get open shift: %w", err)
	}

	entry, err := store.CreateOpeningEntry(ctx, database.CreateOpeningEntryParams{
		ProfileName: req.Profile,
		UserID:      req.UserID,
		Company:     p.Company,
	})
	if err != nil {
		if isUniqueViolation(err, "uq_opening_entries_open") {
			return nil, ErrShiftAlreadyOpen
		}
		return nil, fmt.Errorf("create opening entry: %w", err)
	}

	modes, err := store.ListProfilePaymentModes(ctx, req.Profile)
	if err != nil {
		return nil, fmt.Errorf("list payment modes: %w", err)
	}
	mode := enum.PaymentModeCash
	if len(modes) > 0 {
		mode = modes[0].ModeOfPayment
	}
	if err := store.CreateOpeningBalance(ctx, database.CreateOpeningBalanceParams{
		OpeningEntryID: entry.ID,
		ModeOfPayment:  mode,
		Amount:         database.DecimalToNumeric(req.OpeningCash),
	}); err != nil {
		return nil, fmt.Errorf("create opening balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	s.metrics.ObserveShift("open")
	s.metrics.ObserveTx("open_shift", s.now().Sub(start))
	return &entry, nil
}

// Summary aggregates the invoices of a shift without changing it.
func (s *ShiftService) Summary(ctx context.Context, shiftID uuid.UUID) (*ShiftSummary, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	entry, err := store.GetOpeningEntry(ctx, shiftID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShiftNotFound
		}
		return nil, fmt.Errorf("get opening entry: %w", err)
	}
	return buildSummary(ctx, store, entry)
}

// CloseShift writes the closing entry with its per-mode reconciliation and
// marks the shift closed. A shift with no invoices can be closed.
func (s *ShiftService) CloseShift(ctx context.Context, shiftID uuid.UUID) (*ShiftSummary, error) {
	start := s.now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	entry, err := store.GetOpeningEntryForUpdate(ctx, shiftID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShiftNotFound
		}
		return nil, fmt.Errorf("get opening entry: %w", err)
	}
	if entry.Status != enum.ShiftStatusOpen {
		return nil, ErrShiftClosed
	}

	summary, err := buildSummary(ctx, store, entry)
	if err != nil {
		return nil, err
	}

	end := s.now()
	closed, err := store.CloseOpeningEntry(ctx, database.CloseOpeningEntryParams{ID: shiftID, PeriodEnd: end})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShiftClosed
		}
		return nil, fmt.Errorf("close opening entry: %w", err)
	}

	closing, err := store.CreateClosingEntry(ctx, database.CreateClosingEntryParams{
		OpeningEntryID: shiftID,
		InvoiceCount:   int32(summary.InvoiceCount),
		GrandTotal:     database.DecimalToNumeric(summary.GrandTotal),
		NetTotal:       database.DecimalToNumeric(summary.NetTotal),
		TotalQuantity:  int32(summary.TotalQuantity),
		PeriodStart:    entry.PeriodStart,
		PeriodEnd:      end,
	})
	if err != nil {
		return nil, fmt.Errorf("create closing entry: %w", err)
	}
	for _, p := range summary.Payments {
		if err := store.CreateClosingReconciliation(ctx, database.CreateClosingReconciliationParams{
			ClosingEntryID: closing.ID,
			ModeOfPayment:  p.ModeOfPayment,
			OpeningAmount:  database.DecimalToNumeric(p.Opening),
			ExpectedAmount: database.DecimalToNumeric(p.Expected),
			ClosingAmount:  database.DecimalToNumeric(p.Closing),
		}); err != nil {
			return nil, fmt.Errorf("create reconciliation %s: %w", p.ModeOfPayment, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	summary.Entry = closed
	s.metrics.ObserveShift("close")
	s.metrics.ObserveTx("close_shift", s.now().Sub(start))
	return summary, nil
}

// buildSummary reads the shift totals and reconciles each payment mode seen
// in the opening balances or the invoice payments.
func buildSummary(ctx context.Context, store ShiftStore, entry database.OpeningEntry) (*ShiftSummary, error) {
	totals, err := store.GetShiftTotals(ctx, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("get shift totals: %w", err)
	}
	balances, err := store.ListOpeningBalances(ctx, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("list opening balances: %w", err)
	}
	payments, err := store.ListShiftPaymentTotals(ctx, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("list payment totals: %w", err)
	}

	summary := &ShiftSummary{
		Entry:         entry,
		OpeningCash:   decimal.Zero,
		InvoiceCount:  int(totals.InvoiceCount),
		GrandTotal:    database.NumericToDecimal(totals.GrandTotal),
		NetTotal:      database.NumericToDecimal(totals.NetTotal),
		TotalQuantity: int(totals.TotalQuantity),
	}

	index := map[string]int{}
	modeAt := func(mode string) *ModeTotal {
		key := strings.ToLower(mode)
		if i, ok := index[key]; ok {
			return &summary.Payments[i]
		}
		summary.Payments = append(summary.Payments, ModeTotal{
			ModeOfPayment: mode,
			Opening:       decimal.Zero,
			Sales:         decimal.Zero,
		})
		index[key] = len(summary.Payments) - 1
		return &summary.Payments[len(summary.Payments)-1]
	}

	for _, b := range balances {
		amount := database.NumericToDecimal(b.Amount)
		modeAt(b.ModeOfPayment).Opening = amount
		summary.OpeningCash = summary.OpeningCash.Add(amount)
	}
	for _, p := range payments {
		m := modeAt(p.ModeOfPayment)
		m.Sales = m.Sales.Add(database.NumericToDecimal(p.Amount))
	}
	for i := range summary.Payments {
		m := &summary.Payments[i]
		m.Expected = m.Opening.Add(m.Sales)
		m.Closing = m.Expected
	}
	return summary, nil
}
