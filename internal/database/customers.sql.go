package database

import (
	"context"
)

const ensureCustomer = `-- name: EnsureCustomer :exec
INSERT INTO customers (name) VALUES ($1)
ON CONFLICT (name) DO NOTHING
`

func (q *Queries) EnsureCustomer(ctx context.Context, name string) error {
	_, err := q.db.Exec(ctx, ensureCustomer, name)
	return err
}

const searchCustomers = `-- name: SearchCustomers :many
SELECT name, created_at FROM customers
WHERE $1::text = '' OR name ILIKE '%' || $1 || '%'
ORDER BY name
LIMIT $2
`

type SearchCustomersParams struct {
	Query string `json:"query"`
	Limit int32  `json:"limit"`
}

func (q *Queries) SearchCustomers(ctx context.Context, arg SearchCustomersParams) ([]Customer, error) {
	rows, err := q.db.Query(ctx, searchCustomers, arg.Query, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Customer{}
	for rows.Next() {
		var i Customer
		if err := rows.Scan(&i.Name, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
