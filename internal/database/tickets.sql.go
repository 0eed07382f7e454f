package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createKitchenTicket = `-- name: CreateKitchenTicket :one
INSERT INTO kitchen_tickets (profile_name, table_name, customer, created_by)
VALUES ($1, $2, $3, $4)
RETURNING id, profile_name, table_name, customer, status, invoice_id, created_by, created_at
`

type CreateKitchenTicketParams struct {
	ProfileName string    `json:"profile_name"`
	TableName   string    `json:"table_name"`
	Customer    string    `json:"customer"`
	CreatedBy   uuid.UUID `json:"created_by"`
}

func (q *Queries) CreateKitchenTicket(ctx context.Context, arg CreateKitchenTicketParams) (KitchenTicket, error) {
	row := q.db.QueryRow(ctx, createKitchenTicket,
		arg.ProfileName,
		arg.TableName,
		arg.Customer,
		arg.CreatedBy,
	)
	var i KitchenTicket
	err := row.Scan(
		&i.ID,
		&i.ProfileName,
		&i.TableName,
		&i.Customer,
		&i.Status,
		&i.InvoiceID,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createKitchenTicketItem = `-- name: CreateKitchenTicketItem :one
INSERT INTO kitchen_ticket_items (ticket_id, item_code, item_name, rate, qty, discount_percentage, note, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, ticket_id, item_code, item_name, rate, qty, discount_percentage, note, position
`

type CreateKitchenTicketItemParams struct {
	TicketID           uuid.UUID      `json:"ticket_id"`
	ItemCode           string         `json:"item_code"`
	ItemName           string         `json:"item_name"`
	Rate               pgtype.Numeric `json:"rate"`
	Qty                int32          `json:"qty"`
	DiscountPercentage pgtype.Numeric `json:"discount_percentage"`
	Note               string         `json:"note"`
	Position           int32          `json:"position"`
}

func (q *Queries) CreateKitchenTicketItem(ctx context.Context, arg CreateKitchenTicketItemParams) (KitchenTicketItem, error) {
	row := q.db.QueryRow(ctx, createKitchenTicketItem,
		arg.TicketID,
		arg.ItemCode,
		arg.ItemName,
		arg.Rate,
		arg.Qty,
		arg.DiscountPercentage,
		arg.Note,
		arg.Position,
	)
	var i KitchenTicketItem
	err := row.Scan(
		&i.ID,
		&i.TicketID,
		&i.ItemCode,
		&i.ItemName,
		&i.Rate,
		&i.Qty,
		&i.DiscountPercentage,
		&i.Note,
		&i.Position,
	)
	return i, err
}

const listDraftTicketLines = `-- name: ListDraftTicketLines :many
SELECT ki.item_code, ki.item_name, ki.rate, ki.qty, ki.discount_percentage, ki.note
FROM kitchen_ticket_items ki
JOIN kitchen_tickets kt ON kt.id = ki.ticket_id
WHERE kt.table_name = $1 AND kt.status = 'DRAFT'
ORDER BY kt.created_at, ki.position
`

type ListDraftTicketLinesRow struct {
	ItemCode           string         `json:"item_code"`
	ItemName           string         `json:"item_name"`
	Rate               pgtype.Numeric `json:"rate"`
	Qty                int32          `json:"qty"`
	DiscountPercentage pgtype.Numeric `json:"discount_percentage"`
	Note               string         `json:"note"`
}

func (q *Queries) ListDraftTicketLines(ctx context.Context, tableName string) ([]ListDraftTicketLinesRow, error) {
	rows, err := q.db.Query(ctx, listDraftTicketLines, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListDraftTicketLinesRow{}
	for rows.Next() {
		var i ListDraftTicketLinesRow
		if err := rows.Scan(
			&i.ItemCode,
			&i.ItemName,
			&i.Rate,
			&i.Qty,
			&i.DiscountPercentage,
			&i.Note,
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

const moveDraftTickets = `-- name: MoveDraftTickets :execrows
UPDATE kitchen_tickets SET table_name = $2
WHERE table_name = $1 AND status = 'DRAFT'
`

type MoveDraftTicketsParams struct {
	FromTable string `json:"from_table"`
	ToTable   string `json:"to_table"`
}

func (q *Queries) MoveDraftTickets(ctx context.Context, arg MoveDraftTicketsParams) (int64, error) {
	result, err := q.db.Exec(ctx, moveDraftTickets, arg.FromTable, arg.ToTable)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const submitDraftTickets = `-- name: SubmitDraftTickets :execrows
UPDATE kitchen_tickets SET status = 'SUBMITTED', invoice_id = $2
WHERE table_name = $1 AND status = 'DRAFT'
`

type SubmitDraftTicketsParams struct {
	TableName string      `json:"table_name"`
	InvoiceID pgtype.UUID `json:"invoice_id"`
}

func (q *Queries) SubmitDraftTickets(ctx context.Context, arg SubmitDraftTicketsParams) (int64, error) {
	result, err := q.db.Exec(ctx, submitDraftTickets, arg.TableName, arg.InvoiceID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
