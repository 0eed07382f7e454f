package database

import (
	"context"
)

const getPOSProfile = `-- name: GetPOSProfile :one
SELECT name, company, price_list, created_at FROM pos_profiles
WHERE name = $1
`

func (q *Queries) GetPOSProfile(ctx context.Context, name string) (PosProfile, error) {
	row := q.db.QueryRow(ctx, getPOSProfile, name)
	var i PosProfile
	err := row.Scan(
		&i.Name,
		&i.Company,
		&i.PriceList,
		&i.CreatedAt,
	)
	return i, err
}

const createPOSProfile = `-- name: CreatePOSProfile :one
INSERT INTO pos_profiles (name, company, price_list)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET company = EXCLUDED.company, price_list = EXCLUDED.price_list
RETURNING name, company, price_list, created_at
`

type CreatePOSProfileParams struct {
	Name      string `json:"name"`
	Company   string `json:"company"`
	PriceList string `json:"price_list"`
}

func (q *Queries) CreatePOSProfile(ctx context.Context, arg CreatePOSProfileParams) (PosProfile, error) {
	row := q.db.QueryRow(ctx, createPOSProfile, arg.Name, arg.Company, arg.PriceList)
	var i PosProfile
	err := row.Scan(
		&i.Name,
		&i.Company,
		&i.PriceList,
		&i.CreatedAt,
	)
	return i, err
}

const listProfilePaymentModes = `-- name: ListProfilePaymentModes :many
SELECT profile_name, mode_of_payment, account, position FROM profile_payment_modes
WHERE profile_name = $1
ORDER BY position, mode_of_payment
`

func (q *Queries) ListProfilePaymentModes(ctx context.Context, profileName string) ([]ProfilePaymentMode, error) {
	rows, err := q.db.Query(ctx, listProfilePaymentModes, profileName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ProfilePaymentMode{}
	for rows.Next() {
		var i ProfilePaymentMode
		if err := rows.Scan(
			&i.ProfileName,
			&i.ModeOfPayment,
			&i.Account,
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

const upsertProfilePaymentMode = `-- name: UpsertProfilePaymentMode :exec
INSERT INTO profile_payment_modes (profile_name, mode_of_payment, account, position)
VALUES ($1, $2, $3, $4)
ON CONFLICT (profile_name, mode_of_payment) DO UPDATE SET account = EXCLUDED.account, position = EXCLUDED.position
`

type UpsertProfilePaymentModeParams struct {
	ProfileName   string `json:"profile_name"`
	ModeOfPayment string `json:"mode_of_payment"`
	Account       string `json:"account"`
	Position      int32  `json:"position"`
}

func (q *Queries) UpsertProfilePaymentMode(ctx context.Context, arg UpsertProfilePaymentModeParams) error {
	_, err := q.db.Exec(ctx, upsertProfilePaymentMode,
		arg.ProfileName,
		arg.ModeOfPayment,
		arg.Account,
		arg.Position,
	)
	return err
}
