package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/kiwari-pos/tablepos/internal/enum"
	"github.com/kiwari-pos/tablepos/internal/metrics"
)

// TableStore defines the DB methods needed by the table service.
// Satisfied by *database.Queries (and its WithTx variant).
type TableStore interface {
	GetTableForUpdate(ctx context.Context, name string) (database.RestaurantTable, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.RestaurantTable, error)
	MoveDraftTickets(ctx context.Context, arg database.MoveDraftTicketsParams) (int64, error)
}

// NewTableStore creates a TableStore from a DBTX (pool or tx).
type NewTableStore func(db database.DBTX) TableStore

// TransferResult reports both tables after a transfer.
type TransferResult struct {
	From  database.RestaurantTable
	To    database.RestaurantTable
	Moved int64
}

// TableService changes table status and moves orders between tables.
type TableService struct {
	pool     TxBeginner
	newStore NewTableStore
	metrics  *metrics.Server
}

// NewTableService creates a new TableService. m may be nil.
func NewTableService(pool TxBeginner, newStore NewTableStore, m *metrics.Server) *TableService {
	return &TableService{pool: pool, newStore: newStore, metrics: m}
}

// SetStatus sets a table's status.
func (s *TableService) SetStatus(ctx context.Context, name, status string) (*database.RestaurantTable, error) {
	if !enum.IsTableStatus(status) {
		return nil, ErrInvalidTableStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	table, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{Name: name, Status: status})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("update table status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &table, nil
}

// Transfer moves the draft tickets of from onto to. The destination must
// be Available; afterwards from is Available and to is Occupied.
func (s *TableService) Transfer(ctx context.Context, from, to string) (*TransferResult, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == to {
		return nil, ErrSameTable
	}
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Lock in name order so concurrent opposite transfers cannot deadlock.
	first, second := from, to
	if second < first {
		first, second = second, first
	}
	locked := map[string]database.RestaurantTable{}
	for _, name := range []string{first, second} {
		t, err := store.GetTableForUpdate(ctx, name)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%s: %w", name, ErrTableNotFound)
			}
			return nil, fmt.Errorf("lock table %s: %w", name, err)
		}
		locked[name] = t
	}
	if locked[to].Status != enum.TableStatusAvailable {
		return nil, fmt.Errorf("%s is %s: %w", to, locked[to].Status, ErrTableNotAvailable)
	}

	moved, err := store.MoveDraftTickets(ctx, database.MoveDraftTicketsParams{FromTable: from, ToTable: to})
	if err != nil {
		return nil, fmt.Errorf("move tickets: %w", err)
	}

	fromTable, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{Name: from, Status: enum.TableStatusAvailable})
	if err != nil {
		return nil, fmt.Errorf("release %s: %w", from, err)
	}
	toTable, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{Name: to, Status: enum.TableStatusOccupied})
	if err != nil {
		return nil, fmt.Errorf("occupy %s: %w", to, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	s.metrics.ObserveTx("transfer_table", time.Since(start))
	return &TransferResult{From: fromTable, To: toTable, Moved: moved}, nil
}
