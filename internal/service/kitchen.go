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

var hundred = decimal.NewFromInt(100)

// KitchenStore defines the DB methods needed to fire kitchen tickets.
// Satisfied by *database.Queries (and its WithTx variant).
type KitchenStore interface {
	GetTableForUpdate(ctx context.Context, name string) (database.RestaurantTable, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.RestaurantTable, error)
	EnsureCustomer(ctx context.Context, name string) error
	GetItemByCode(ctx context.Context, code string) (database.Item, error)
	CreateKitchenTicket(ctx context.Context, arg database.CreateKitchenTicketParams) (database.KitchenTicket, error)
	CreateKitchenTicketItem(ctx context.Context, arg database.CreateKitchenTicketItemParams) (database.KitchenTicketItem, error)
}

// NewKitchenStore creates a KitchenStore from a DBTX (pool or tx).
type NewKitchenStore func(db database.DBTX) KitchenStore

// FireRequest is the validated input for sending lines to the kitchen.
type FireRequest struct {
	Profile   string
	Table     string
	Customer  string
	CreatedBy uuid.UUID
	Lines     []FireLine
}

// FireLine is a single line on the ticket.
type FireLine struct {
	ItemCode           string
	ItemName           string
	Rate               decimal.Decimal
	Qty                int32
	Note               string
	DiscountPercentage decimal.Decimal
}

// FireResult is the created ticket with its items.
type FireResult struct {
	Ticket database.KitchenTicket
	Items  []database.KitchenTicketItem
}

// KitchenService creates kitchen tickets.
type KitchenService struct {
	pool     TxBeginner
	newStore NewKitchenStore
	metrics  *metrics.Server
}

// NewKitchenService creates a new KitchenService. m may be nil.
func NewKitchenService(pool TxBeginner, newStore NewKitchenStore, m *metrics.Server) *KitchenService {
	return &KitchenService{pool: pool, newStore: newStore, metrics: m}
}

// Fire creates one draft ticket holding every line and marks the table
// Occupied. The customer defaults to Walk-in and is created on first use.
func (s *KitchenService) Fire(ctx context.Context, req FireRequest) (*FireResult, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}
	for i, l := range req.Lines {
		if err := validateLine(l); err != nil {
			return nil, fmt.Errorf("lines[%d]: %w", i, err)
		}
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

	table, err := store.GetTableForUpdate(ctx, req.Table)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}

	if err := store.EnsureCustomer(ctx, customer); err != nil {
		return nil, fmt.Errorf("ensure customer: %w", err)
	}

	// --- Resolve items before writing anything ---
	params := make([]database.CreateKitchenTicketItemParams, 0, len(req.Lines))
	for i, l := range req.Lines {
		item, err := store.GetItemByCode(ctx, l.ItemCode)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("lines[%d]: %w", i, ErrItemNotFound)
			}
			return nil, fmt.Errorf("lines[%d]: get item: %w", i, err)
		}
		name := strings.TrimSpace(l.ItemName)
		if name == "" {
			name = item.Name
		}
		params = append(params, database.CreateKitchenTicketItemParams{
			ItemCode:           item.Code,
			ItemName:           name,
			Rate:               database.DecimalToNumeric(l.Rate),
			Qty:                l.Qty,
			DiscountPercentage: database.DecimalToNumeric(l.DiscountPercentage),
			Note:               strings.TrimSpace(l.Note),
			Position:           int32(i),
		})
	}

	ticket, err := store.CreateKitchenTicket(ctx, database.CreateKitchenTicketParams{
		ProfileName: req.Profile,
		TableName:   table.Name,
		Customer:    customer,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	result := &FireResult{Ticket: ticket}
	for i := range params {
		params[i].TicketID = ticket.ID
		item, err := store.CreateKitchenTicketItem(ctx, params[i])
		if err != nil {
			return nil, fmt.Errorf("lines[%d]: create ticket item: %w", i, err)
		}
		result.Items = append(result.Items, item)
	}

	if table.Status != enum.TableStatusOccupied {
		if _, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
			Name:   table.Name,
			Status: enum.TableStatusOccupied,
		}); err != nil {
			return nil, fmt.Errorf("occupy table: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	s.metrics.ObserveTicket(len(result.Items))
	s.metrics.ObserveTx("fire_lines", time.Since(start))
	return result, nil
}

func validateLine(l FireLine) error {
	if strings.TrimSpace(l.ItemCode) == "" {
		return ErrItemNotFound
	}
	if l.Qty <= 0 {
		return ErrInvalidQuantity
	}
	if l.Rate.IsNegative() {
		return ErrInvalidRate
	}
	if l.DiscountPercentage.IsNegative() || l.DiscountPercentage.GreaterThan(hundred) {
		return ErrInvalidDiscount
	}
	// Columns are NUMERIC(_,2); anything finer would be rounded on insert.
	if !l.Rate.Equal(l.Rate.Round(2)) || !l.DiscountPercentage.Equal(l.DiscountPercentage.Round(2)) {
		return ErrPrecision
	}
	return nil
}

// LineAmount is rate × qty less the percentage discount.
func LineAmount(rate decimal.Decimal, qty int32, discount decimal.Decimal) decimal.Decimal {
	gross := rate.Mul(decimal.NewFromInt32(qty))
	if discount.IsZero() {
		return gross
	}
	return gross.Mul(hundred.Sub(discount)).Div(hundred)
}
