package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createInvoice = `-- name: CreateInvoice :one
INSERT INTO invoices (
    opening_entry_id, profile_name, table_name, customer, mode_of_payment,
    net_total, grand_total, total_qty, amount_paid, change_amount, created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, opening_entry_id, profile_name, table_name, customer, mode_of_payment, net_total, grand_total, total_qty, amount_paid, change_amount, created_by, created_at
`

type CreateInvoiceParams struct {
	OpeningEntryID uuid.UUID      `json:"opening_entry_id"`
	ProfileName    string         `json:"profile_name"`
	TableName      string         `json:"table_name"`
	Customer       string         `json:"customer"`
	ModeOfPayment  string         `json:"mode_of_payment"`
	NetTotal       pgtype.Numeric `json:"net_total"`
	GrandTotal     pgtype.Numeric `json:"grand_total"`
	TotalQty       int32          `json:"total_qty"`
	AmountPaid     pgtype.Numeric `json:"amount_paid"`
	ChangeAmount   pgtype.Numeric `json:"change_amount"`
	CreatedBy      uuid.UUID      `json:"created_by"`
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	row := q.db.QueryRow(ctx, createInvoice,
		arg.OpeningEntryID,
		arg.ProfileName,
		arg.TableName,
		arg.Customer,
		arg.ModeOfPayment,
		arg.NetTotal,
		arg.GrandTotal,
		arg.TotalQty,
		arg.AmountPaid,
		arg.ChangeAmount,
		arg.CreatedBy,
	)
	var i Invoice
	err := row.Scan(
		&i.ID,
		&i.OpeningEntryID,
		&i.ProfileName,
		&i.TableName,
		&i.Customer,
		&i.ModeOfPayment,
		&i.NetTotal,
		&i.GrandTotal,
		&i.TotalQty,
		&i.AmountPaid,
		&i.ChangeAmount,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createInvoiceItem = `-- name: CreateInvoiceItem :exec
INSERT INTO invoice_items (invoice_id, item_code, item_name, rate, qty, discount_percentage, amount, note, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type CreateInvoiceItemParams struct {
	InvoiceID          uuid.UUID      `json:"invoice_id"`
	ItemCode           string         `json:"item_code"`
	ItemName           string         `json:"item_name"`
	Rate               pgtype.Numeric `json:"rate"`
	Qty                int32          `json:"qty"`
	DiscountPercentage pgtype.Numeric `json:"discount_percentage"`
	Amount             pgtype.Numeric `json:"amount"`
	Note               string         `json:"note"`
	Position           int32          `json:"position"`
}

func (q *Queries) CreateInvoiceItem(ctx context.Context, arg CreateInvoiceItemParams) error {
	_, err := q.db.Exec(ctx, createInvoiceItem,
		arg.InvoiceID,
		arg.ItemCode,
		arg.ItemName,
		arg.Rate,
		arg.Qty,
		arg.DiscountPercentage,
		arg.Amount,
		arg.Note,
		arg.Position,
	)
	return err
}

const createInvoicePayment = `-- name: CreateInvoicePayment :exec
INSERT INTO invoice_payments (invoice_id, mode_of_payment, account, amount)
VALUES ($1, $2, $3, $4)
`

type CreateInvoicePaymentParams struct {
	InvoiceID     uuid.UUID      `json:"invoice_id"`
	ModeOfPayment string         `json:"mode_of_payment"`
	Account       string         `json:"account"`
	Amount        pgtype.Numeric `json:"amount"`
}

func (q *Queries) CreateInvoicePayment(ctx context.Context, arg CreateInvoicePaymentParams) error {
	_, err := q.db.Exec(ctx, createInvoicePayment,
		arg.InvoiceID,
		arg.ModeOfPayment,
		arg.Account,
		arg.Amount,
	)
	return err
}

const getInvoice = `-- name: GetInvoice :one
SELECT id, opening_entry_id, profile_name, table_name, customer, mode_of_payment, net_total, grand_total, total_qty, amount_paid, change_amount, created_by, created_at FROM invoices
WHERE id = $1
`

func (q *Queries) GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	row := q.db.QueryRow(ctx, getInvoice, id)
	var i Invoice
	err := row.Scan(
		&i.ID,
		&i.OpeningEntryID,
		&i.ProfileName,
		&i.TableName,
		&i.Customer,
		&i.ModeOfPayment,
		&i.NetTotal,
		&i.GrandTotal,
		&i.TotalQty,
		&i.AmountPaid,
		&i.ChangeAmount,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const listInvoiceItems = `-- name: ListInvoiceItems :many
SELECT id, invoice_id, item_code, item_name, rate, qty, discount_percentage, amount, note, position FROM invoice_items
WHERE invoice_id = $1
ORDER BY position
`

func (q *Queries) ListInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceItem, error) {
	rows, err := q.db.Query(ctx, listInvoiceItems, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []InvoiceItem{}
	for rows.Next() {
		var i InvoiceItem
		if err := rows.Scan(
			&i.ID,
			&i.InvoiceID,
			&i.ItemCode,
			&i.ItemName,
			&i.Rate,
			&i.Qty,
			&i.DiscountPercentage,
			&i.Amount,
			&i.Note,
			&i.Position,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRecentInvoices = `-- name: ListRecentInvoices :many
SELECT id, opening_entry_id, profile_name, table_name, customer, mode_of_payment, net_total, grand_total, total_qty, amount_paid, change_amount, created_by, created_at FROM invoices
WHERE profile_name = $1
ORDER BY created_at DESC
LIMIT $2
`

type ListRecentInvoicesParams struct {
	ProfileName string `json:"profile_name"`
	Limit       int32  `json:"limit"`
}

func (q *Queries) ListRecentInvoices(ctx context.Context, arg ListRecentInvoicesParams) ([]Invoice, error) {
	rows, err := q.db.Query(ctx, listRecentInvoices, arg.ProfileName, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Invoice{}
	for rows.Next() {
		var i Invoice
		if err := rows.Scan(
			&i.ID,
			&i.OpeningEntryID,
			&i.ProfileName,
			&i.TableName,
			&i.Customer,
			&i.ModeOfPayment,
			&i.NetTotal,
			&i.GrandTotal,
			&i.TotalQty,
			&i.AmountPaid,
			&i.ChangeAmount,
			&i.CreatedBy,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
