package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getOpenShift = `-- name: GetOpenShift :one
SELECT id, profile_name, user_id, company, status, period_start, period_end FROM opening_entries
WHERE profile_name = $1 AND user_id = $2 AND status = 'OPEN'
`

type GetOpenShiftParams struct {
	ProfileName string    `json:"profile_name"`
	UserID      uuid.UUID `json:"user_id"`
}

func (q *Queries) GetOpenShift(ctx context.Context, arg GetOpenShiftParams) (OpeningEntry, error) {
	row := q.db.QueryRow(ctx, getOpenShift, arg.ProfileName, arg.UserID)
	var i OpeningEntry
	err := row.Scan(
		&i.ID,
		&i.ProfileName,
		&i.UserID,
		&i.Company,
		&i.Status,
		&i.PeriodStart,
		&i.PeriodEnd,
	)
	return i, err
}

const createOpeningEntry = `-- name: CreateOpeningEntry :one
INSERT INTO opening_entries (profile_name, user_id, company)
VALUES ($1, $2, $3)
RETURNING id, profile_name, user_id, company, status, period_start, period_end
`

type CreateOpeningEntryParams struct {
	ProfileName string    `json:"profile_name"`
	UserID      uuid.UUID `json:"user_id"`
	Company     string    `json:"company"`
}

func (q *Queries) CreateOpeningEntry(ctx context.Context, arg CreateOpeningEntryParams) (OpeningEntry, error) {
	row := q.db.QueryRow(ctx, createOpeningEntry, arg.ProfileName, arg.UserID, arg.Company)
	var i OpeningEntry
	err := row.Scan(
		&i.ID,
		&i.ProfileName,
		&i.UserID,
		&i.Company,
		&i.Status,
		&i.PeriodStart,
		&i.PeriodEnd,
	)
	return i, err
}

const createOpeningBalance = `-- name: CreateOpeningBalance :exec
INSERT INTO opening_balances (opening_entry_id, mode_of_payment, amount)
VALUES ($1, $2, $3)
`

type CreateOpeningBalanceParams struct {
	OpeningEntryID uuid.UUID      `json:"opening_entry_id"`
	ModeOfPayment  string         `json:"mode_of_payment"`
	Amount         pgtype.Numeric `json:"amount"`
}

func (q *Queries) CreateOpeningBalance(ctx context.Context, arg CreateOpeningBalanceParams) error {
	_, err := q.db.Exec(ctx, createOpeningBalance, arg.OpeningEntryID, arg.ModeOfPayment, arg.Amount)
	return err
}

const getOpeningEntry = `-- name: GetOpeningEntry :one
SELECT id, profile_name, user_id, company, status, period_start, period_end FROM opening_entries
WHERE id = $1
`

func (q *Queries) GetOpeningEntry(ctx context.Context, id uuid.UUID) (OpeningEntry, error) {
	row := q.db.QueryRow(ctx, getOpeningEntry, id)
	var i OpeningEntry
	err := row.Scan(
		&i.ID,
		&i.ProfileName,
		&i.UserID,
		&i.Company,
		&i.Status,
		&i.PeriodStart,
		&i.PeriodEnd,
	)
	return i, err
}

const getOpeningEntryForUpdate = `-- name: GetOpeningEntryForUpdate :one
SELECT id, profile_name, user_id, company, status, period_start, period_end FROM opening_entries
WHERE id = $1
FOR UPDATE
`

func (q *Queries) GetOpeningEntryForUpdate(ctx context.Context, id uuid.UUID) (OpeningEntry, error) {
	row := q.db.QueryRow(ctx, getOpeningEntryForUpdate, id)
	var i OpeningEntry
	err := row.Scan(
		&i.ID,
		&i.ProfileName,
		&i.UserID,
		&i.Company,
		&i.Status,
		&i.PeriodStart,
		&i.PeriodEnd,
	)
	return i, err
}

const listOpeningBalances = `-- name: ListOpeningBalances :many
SELECT opening_entry_id, mode_of_payment, amount FROM opening_balances
WHERE opening_entry_id = $1
ORDER BY mode_of_payment
`

func (q *Queries) ListOpeningBalances(ctx context.Context, openingEntryID uuid.UUID) ([]OpeningBalance, error) {
	rows, err := q.db.Query(ctx, listOpeningBalances, openingEntryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OpeningBalance{}
	for rows.Next() {
		var i OpeningBalance
		if err := rows.Scan(&i.OpeningEntryID, &i.ModeOfPayment, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const closeOpeningEntry = `-- name: CloseOpeningEntry :one
UPDATE opening_entries SET status = 'CLOSED', period_end = $2
WHERE id = $1 AND status = 'OPEN'
RETURNING id, profile_name, user_id, company, status, period_start, period_end
`

type CloseOpeningEntryParams struct {
	ID        uuid.UUID `json:"id"`
	PeriodEnd time.Time `json:"period_end"`
}

func (q *Queries) CloseOpeningEntry(ctx context.Context, arg CloseOpeningEntryParams) (OpeningEntry, error) {
	row := q.db.QueryRow(ctx, closeOpeningEntry, arg.ID, arg.PeriodEnd)
	var i OpeningEntry
	err := row.Scan(
		&i.ID,
		&i.ProfileName,
		&i.UserID,
		&i.Company,
		&i.Status,
		&i.PeriodStart,
		&i.PeriodEnd,
	)
	return i, err
}

const getShiftTotals = `-- name: GetShiftTotals :one
SELECT
    COUNT(*)::int AS invoice_count,
    COALESCE(SUM(grand_total), 0)::numeric(12,2) AS grand_total,
    COALESCE(SUM(net_total), 0)::numeric(12,2) AS net_total,
    COALESCE(SUM(total_qty), 0)::int AS total_quantity
FROM invoices
WHERE opening_entry_id = $1
`

type GetShiftTotalsRow struct {
	InvoiceCount  int32          `json:"invoice_count"`
	GrandTotal    pgtype.Numeric `json:"grand_total"`
	NetTotal      pgtype.Numeric `json:"net_total"`
	TotalQuantity int32          `json:"total_quantity"`
}

func (q *Queries) GetShiftTotals(ctx context.Context, openingEntryID uuid.UUID) (GetShiftTotalsRow, error) {
	row := q.db.QueryRow(ctx, getShiftTotals, openingEntryID)
	var i GetShiftTotalsRow
	err := row.Scan(
		&i.InvoiceCount,
		&i.GrandTotal,
		&i.NetTotal,
		&i.TotalQuantity,
	)
	return i, err
}

const listShiftPaymentTotals = `-- name: ListShiftPaymentTotals :many
SELECT p.mode_of_payment, SUM(p.amount)::numeric(12,2) AS amount
FROM invoice_payments p
JOIN invoices i ON i.id = p.invoice_id
WHERE i.opening_entry_id = $1
GROUP BY p.mode_of_payment
ORDER BY p.mode_of_payment
`

type ListShiftPaymentTotalsRow struct {
	ModeOfPayment string         `json:"mode_of_payment"`
	Amount        pgtype.Numeric `json:"amount"`
}

func (q *Queries) ListShiftPaymentTotals(ctx context.Context, openingEntryID uuid.UUID) ([]ListShiftPaymentTotalsRow, error) {
	rows, err := q.db.Query(ctx, listShiftPaymentTotals, openingEntryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListShiftPaymentTotalsRow{}
	for rows.Next() {
		var i ListShiftPaymentTotalsRow
		if err := rows.Scan(&i.ModeOfPayment, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createClosingEntry = `-- name: CreateClosingEntry :one
INSERT INTO closing_entries (opening_entry_id, invoice_count, grand_total, net_total, total_quantity, period_start, period_end)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, opening_entry_id, invoice_count, grand_total, net_total, total_quantity, period_start, period_end, created_at
`

type CreateClosingEntryParams struct {
	OpeningEntryID uuid.UUID      `json:"opening_entry_id"`
	InvoiceCount   int32          `json:"invoice_count"`
	GrandTotal     pgtype.Numeric `json:"grand_total"`
	NetTotal       pgtype.Numeric `json:"net_total"`
	TotalQuantity  int32          `json:"total_quantity"`
	PeriodStart    time.Time      `json:"period_start"`
	PeriodEnd      time.Time      `json:"period_end"`
}

func (q *Queries) CreateClosingEntry(ctx context.Context, arg CreateClosingEntryParams) (ClosingEntry, error) {
	row := q.db.QueryRow(ctx, createClosingEntry,
		arg.OpeningEntryID,
		arg.InvoiceCount,
		arg.GrandTotal,
		arg.NetTotal,
		arg.TotalQuantity,
		arg.PeriodStart,
		arg.PeriodEnd,
	)
	var i ClosingEntry
	err := row.Scan(
		&i.ID,
		&i.OpeningEntryID,
		&i.InvoiceCount,
		&i.GrandTotal,
		&i.NetTotal,
		&i.TotalQuantity,
		&i.PeriodStart,
		&i.PeriodEnd,
		&i.CreatedAt,
	)
	return i, err
}

const createClosingReconciliation = `-- name: CreateClosingReconciliation :exec
INSERT INTO closing_reconciliations (closing_entry_id, mode_of_payment, opening_amount, expected_amount, closing_amount)
VALUES ($1, $2, $3, $4, $5)
`

type CreateClosingReconciliationParams struct {
	ClosingEntryID uuid.UUID      `json:"closing_entry_id"`
	ModeOfPayment  string         `json:"mode_of_payment"`
	OpeningAmount  pgtype.Numeric `json:"opening_amount"`
	ExpectedAmount pgtype.Numeric `json:"expected_amount"`
	ClosingAmount  pgtype.Numeric `json:"closing_amount"`
}

func (q *Queries) CreateClosingReconciliation(ctx context.Context, arg CreateClosingReconciliationParams) error {
	_, err := q.db.Exec(ctx, createClosingReconciliation,
		arg.ClosingEntryID,
		arg.ModeOfPayment,
		arg.OpeningAmount,
		arg.ExpectedAmount,
		arg.ClosingAmount,
	)
	return err
}
