package database

import (
	"context"
)

const listTables = `-- name: ListTables :many
SELECT name, status, position, updated_at FROM restaurant_tables
ORDER BY position, name
`

func (q *Queries) ListTables(ctx context.Context) ([]RestaurantTable, error) {
	rows, err := q.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []RestaurantTable{}
	for rows.Next() {
		var i RestaurantTable
		if err := rows.Scan(
			&i.Name,
			&i.Status,
			&i.Position,
			&i.UpdatedAt,
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

const getTableForUpdate = `-- name: GetTableForUpdate :one
SELECT name, status, position, updated_at FROM restaurant_tables
WHERE name = $1
FOR UPDATE
`

func (q *Queries) GetTableForUpdate(ctx context.Context, name string) (RestaurantTable, error) {
	row := q.db.QueryRow(ctx, getTableForUpdate, name)
	var i RestaurantTable
	err := row.Scan(
		&i.Name,
		&i.Status,
		&i.Position,
		&i.UpdatedAt,
	)
	return i, err
}

const updateTableStatus = `-- name: UpdateTableStatus :one
UPDATE restaurant_tables SET status = $2, updated_at = now()
WHERE name = $1
RETURNING name, status, position, updated_at
`

type UpdateTableStatusParams struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (q *Queries) UpdateTableStatus(ctx context.Context, arg UpdateTableStatusParams) (RestaurantTable, error) {
	row := q.db.QueryRow(ctx, updateTableStatus, arg.Name, arg.Status)
	var i RestaurantTable
	err := row.Scan(
		&i.Name,
		&i.Status,
		&i.Position,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertTable = `-- name: UpsertTable :exec
INSERT INTO restaurant_tables (name, position)
VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET position = EXCLUDED.position
`

type UpsertTableParams struct {
	Name     string `json:"name"`
	Position int32  `json:"position"`
}

func (q *Queries) UpsertTable(ctx context.Context, arg UpsertTableParams) error {
	_, err := q.db.Exec(ctx, upsertTable, arg.Name, arg.Position)
	return err
}
