package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getItemByBarcode = `-- name: GetItemByBarcode :one
SELECT i.code, i.name, i.standard_rate, i.is_active FROM item_barcodes b
JOIN items i ON i.code = b.item_code
WHERE b.barcode = $1 AND i.is_active = true
`

func (q *Queries) GetItemByBarcode(ctx context.Context, barcode string) (Item, error) {
	row := q.db.QueryRow(ctx, getItemByBarcode, barcode)
	var i Item
	err := row.Scan(
		&i.Code,
		&i.Name,
		&i.StandardRate,
		&i.IsActive,
	)
	return i, err
}

const getItemByCode = `-- name: GetItemByCode :one
SELECT code, name, standard_rate, is_active FROM items
WHERE code = $1 AND is_active = true
`

func (q *Queries) GetItemByCode(ctx context.Context, code string) (Item, error) {
	row := q.db.QueryRow(ctx, getItemByCode, code)
	var i Item
	err := row.Scan(
		&i.Code,
		&i.Name,
		&i.StandardRate,
		&i.IsActive,
	)
	return i, err
}

const getItemPrice = `-- name: GetItemPrice :one
SELECT rate FROM item_prices
WHERE price_list = $1 AND item_code = $2
`

type GetItemPriceParams struct {
	PriceList string `json:"price_list"`
	ItemCode  string `json:"item_code"`
}

func (q *Queries) GetItemPrice(ctx context.Context, arg GetItemPriceParams) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, getItemPrice, arg.PriceList, arg.ItemCode)
	var rate pgtype.Numeric
	err := row.Scan(&rate)
	return rate, err
}

const searchItems = `-- name: SearchItems :many
SELECT i.code, i.name, COALESCE(p.rate, i.standard_rate) AS rate FROM items i
LEFT JOIN item_prices p ON p.item_code = i.code AND p.price_list = $1
WHERE i.is_active = true
  AND ($2::text = '' OR i.name ILIKE '%' || $2 || '%' OR i.code ILIKE '%' || $2 || '%')
ORDER BY i.name
LIMIT $3
`

type SearchItemsParams struct {
	PriceList string `json:"price_list"`
	Query     string `json:"query"`
	Limit     int32  `json:"limit"`
}

type SearchItemsRow struct {
	Code string         `json:"code"`
	Name string         `json:"name"`
	Rate pgtype.Numeric `json:"rate"`
}

func (q *Queries) SearchItems(ctx context.Context, arg SearchItemsParams) ([]SearchItemsRow, error) {
	rows, err := q.db.Query(ctx, searchItems, arg.PriceList, arg.Query, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SearchItemsRow{}
	for rows.Next() {
		var i SearchItemsRow
		if err := rows.Scan(&i.Code, &i.Name, &i.Rate); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertItem = `-- name: UpsertItem :exec
INSERT INTO items (code, name, standard_rate)
VALUES ($1, $2, $3)
ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, standard_rate = EXCLUDED.standard_rate
`

type UpsertItemParams struct {
	Code         string         `json:"code"`
	Name         string         `json:"name"`
	StandardRate pgtype.Numeric `json:"standard_rate"`
}

func (q *Queries) UpsertItem(ctx context.Context, arg UpsertItemParams) error {
	_, err := q.db.Exec(ctx, upsertItem, arg.Code, arg.Name, arg.StandardRate)
	return err
}

const upsertItemBarcode = `-- name: UpsertItemBarcode :exec
INSERT INTO item_barcodes (barcode, item_code)
VALUES ($1, $2)
ON CONFLICT (barcode) DO UPDATE SET item_code = EXCLUDED.item_code
`

type UpsertItemBarcodeParams struct {
	Barcode  string `json:"barcode"`
	ItemCode string `json:"item_code"`
}

func (q *Queries) UpsertItemBarcode(ctx context.Context, arg UpsertItemBarcodeParams) error {
	_, err := q.db.Exec(ctx, upsertItemBarcode, arg.Barcode, arg.ItemCode)
	return err
}

const upsertItemPrice = `-- name: UpsertItemPrice :exec
INSERT INTO item_prices (price_list, item_code, rate)
VALUES ($1, $2, $3)
ON CONFLICT (price_list, item_code) DO UPDATE SET rate = EXCLUDED.rate
`

type UpsertItemPriceParams struct {
	PriceList string         `json:"price_list"`
	ItemCode  string         `json:"item_code"`
	Rate      pgtype.Numeric `json:"rate"`
}

func (q *Queries) UpsertItemPrice(ctx context.Context, arg UpsertItemPriceParams) error {
	_, err := q.db.Exec(ctx, upsertItemPrice, arg.PriceList, arg.ItemCode, arg.Rate)
	return err
}
