package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/kiwari-pos/tablepos/internal/enum"
	"github.com/kiwari-pos/tablepos/internal/metrics"
	"github.com/shopspring/decimal"
)

// InvoiceStore defines the DB methods needed to settle a table.
// Satisfied by *database.Queries (and its WithTx variant).
type InvoiceStore interface {
	ListProfilePaymentModes(ctx context.Context, profileName string) ([]database.ProfilePaymentMode, error)
	GetOpenShift(ctx context.Context, arg database.GetOpenShiftParams) (database.OpeningEntry, error)
	GetTableForUpdate(ctx context.Context, name string) (database.RestaurantTable, error)
	ListDraftTicketLines(ctx context.Context, tableName string) ([]database.ListDraftTicketLinesRow, error)
	EnsureCustomer(ctx context.Context, name string) error
	CreateInvoice(ctx context.Context, arg database.CreateInvoiceParams) (database.Invoice, error)
	CreateInvoiceItem(ctx context.Context, arg database.CreateInvoiceItemParams) error
	CreateInvoicePayment(ctx context.Context, arg database.CreateInvoicePaymentParams) error
	SubmitDraftTickets(ctx context.Context, arg database.SubmitDraftTicketsParams) (int64, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.RestaurantTable, error)
}

// NewInvoiceStore creates an InvoiceStore from a DBTX (pool or tx).
type NewInvoiceStore func(db database.DBTX) InvoiceStore

// CreateInvoiceRequest is the validated input for settling a table.
type CreateInvoiceRequest struct {
	Profile       string
	UserID        uuid.UUID
	Table         string
	ModeOfPayment string
	AmountPaid    decimal.Decimal
	Customer      string
}

// CreateInvoiceResult is the created invoice with its computed figures.
type CreateInvoiceResult struct {
	Invoice database.Invoice
	Items   []database.CreateInvoiceItemParams
}

// InvoiceService settles tables into invoices.
type InvoiceService struct {
	pool     TxBeginner
	newStore NewInvoiceStore
	metrics  *metrics.Server
}

// NewInvoiceService creates a new InvoiceService. m may be nil.
func NewInvoiceService(pool TxBeginner, newStore NewInvoiceStore, m *metrics.Server) *InvoiceService {
	return &InvoiceService{pool: pool, newStore: newStore, metrics: m}
}

// CreateInvoice bills every draft ticket line of the table against the
// user's open shift, records the payment net of change, submits the
// tickets and frees the table. Underpayment is accepted.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*CreateInvoiceResult, error) {
	if req.AmountPaid.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(req.Table) == "" {
		return nil, ErrTableNotFound
	}
	customer := strings.TrimSpace(req.Customer)
	if customer == "" {
		customer = enum.DefaultCustomer
	}
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	shift, err := store.GetOpenShift(ctx, database.GetOpenShiftParams{ProfileName: req.Profile, UserID: req.UserID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoOpenShift
		}
		return nil, fmt.Errorf("get open shift: %w", err)
	}

	modes, err := store.ListProfilePaymentModes(ctx, req.Profile)
	if err != nil {
		return nil, fmt.Errorf("list payment modes: %w", err)
	}
	mode, err := resolvePaymentMode(modes, req.ModeOfPayment)
	if err != nil {
		return nil, err
	}

	table, err := store.GetTableForUpdate(ctx, req.Table)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}

	lines, err := store.ListDraftTicketLines(ctx, table.Name)
	if err != nil {
		return nil, fmt.Errorf("list ticket lines: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrNoDraftTickets
	}

	// --- Totals ---
	netTotal := decimal.Zero
	var totalQty int32
	items := make([]database.CreateInvoiceItemParams, 0, len(lines))
	for i, l := range lines {
		rate := database.NumericToDecimal(l.Rate)
		discount := database.NumericToDecimal(l.DiscountPercentage)
		amount := LineAmount(rate, l.Qty, discount)
		netTotal = netTotal.Add(amount)
		totalQty += l.Qty
		items = append(items, database.CreateInvoiceItemParams{
			ItemCode:           l.ItemCode,
			ItemName:           l.ItemName,
			Rate:               l.Rate,
			Qty:                l.Qty,
			DiscountPercentage: l.DiscountPercentage,
			Amount:             database.DecimalToNumeric(amount),
			Note:               l.Note,
			Position:           int32(i),
		})
	}
	grandTotal := netTotal.Round(2)
	change := req.AmountPaid.Sub(grandTotal)
	if change.IsNegative() {
		change = decimal.Zero
	}

	if err := store.EnsureCustomer(ctx, customer); err != nil {
		return nil, fmt.Errorf("ensure customer: %w", err)
	}

	invoice, err := store.CreateInvoice(ctx, database.CreateInvoiceParams{
		OpeningEntryID: shift.ID,
		ProfileName:    req.Profile,
		TableName:      table.Name,
		Customer:       customer,
		ModeOfPayment:  mode.ModeOfPayment,
		NetTotal:       database.DecimalToNumeric(netTotal),
		GrandTotal:     database.DecimalToNumeric(grandTotal),
		TotalQty:       totalQty,
		AmountPaid:     database.DecimalToNumeric(req.AmountPaid),
		ChangeAmount:   database.DecimalToNumeric(change),
		CreatedBy:      req.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	for i := range items {
		items[i].InvoiceID = invoice.ID
		if err := store.CreateInvoiceItem(ctx, items[i]); err != nil {
			return nil, fmt.Errorf("create invoice item %d: %w", i, err)
		}
	}

	if err := store.CreateInvoicePayment(ctx, database.CreateInvoicePaymentParams{
		InvoiceID:     invoice.ID,
		ModeOfPayment: mode.ModeOfPayment,
		Account:       mode.Account,
		Amount:        database.DecimalToNumeric(req.AmountPaid.Sub(change)),
	}); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if _, err := store.SubmitDraftTickets(ctx, database.SubmitDraftTicketsParams{
		TableName: table.Name,
		InvoiceID: pgtype.UUID{Bytes: invoice.ID, Valid: true},
	}); err != nil {
		return nil, fmt.Errorf("submit tickets: %w", err)
	}

	if _, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
		Name:   table.Name,
		Status: enum.TableStatusAvailable,
	}); err != nil {
		return nil, fmt.Errorf("release table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	s.metrics.ObserveInvoice(mode.ModeOfPayment, grandTotal.InexactFloat64())
	s.metrics.ObserveTx("create_invoice", time.Since(start))
	return &CreateInvoiceResult{Invoice: invoice, Items: items}, nil
}

// resolvePaymentMode matches the requested mode against the profile's modes
// case-insensitively. An empty request takes the profile's first mode.
func resolvePaymentMode(modes []database.ProfilePaymentMode, requested string) (database.ProfilePaymentMode, error) {
	requested = strings.TrimSpace(requested)
	if len(modes) == 0 {
		return database.ProfilePaymentMode{}, ErrInvalidPaymentMode
	}
	if requested == "" {
		return modes[0], nil
	}
	for _, m := range modes {
		if strings.EqualFold(m.ModeOfPayment, requested) {
			return m, nil
		}
	}
	return database.ProfilePaymentMode{}, ErrInvalidPaymentMode
}
