package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type PosProfile struct {
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	PriceList string    `json:"price_list"`
	CreatedAt time.Time `json:"created_at"`
}

type ProfilePaymentMode struct {
	ProfileName   string `json:"profile_name"`
	ModeOfPayment string `json:"mode_of_payment"`
	Account       string `json:"account"`
	Position      int32  `json:"position"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	ProfileName    string    `json:"profile_name"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

type Item struct {
	Code         string         `json:"code"`
	Name         string         `json:"name"`
	StandardRate pgtype.Numeric `json:"standard_rate"`
	IsActive     bool           `json:"is_active"`
}

type Customer struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type RestaurantTable struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Position  int32     `json:"position"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OpeningEntry struct {
	ID          uuid.UUID          `json:"id"`
	ProfileName string             `json:"profile_name"`
	UserID      uuid.UUID          `json:"user_id"`
	Company     string             `json:"company"`
	Status      string             `json:"status"`
	PeriodStart time.Time          `json:"period_start"`
	PeriodEnd   pgtype.Timestamptz `json:"period_end"`
}

type OpeningBalance struct {
	OpeningEntryID uuid.UUID      `json:"opening_entry_id"`
	ModeOfPayment  string         `json:"mode_of_payment"`
	Amount         pgtype.Numeric `json:"amount"`
}

type Invoice struct {
	ID             uuid.UUID      `json:"id"`
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
	CreatedAt      time.Time      `json:"created_at"`
}

type InvoiceItem struct {
	ID                 uuid.UUID      `json:"id"`
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

type InvoicePayment struct {
	InvoiceID     uuid.UUID      `json:"invoice_id"`
	ModeOfPayment string         `json:"mode_of_payment"`
	Account       string         `json:"account"`
	Amount        pgtype.Numeric `json:"amount"`
}

type KitchenTicket struct {
	ID          uuid.UUID   `json:"id"`
	ProfileName string      `json:"profile_name"`
	TableName   string      `json:"table_name"`
	Customer    string      `json:"customer"`
	Status      string      `json:"status"`
	InvoiceID   pgtype.UUID `json:"invoice_id"`
	CreatedBy   uuid.UUID   `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
}

type KitchenTicketItem struct {
	ID                 uuid.UUID      `json:"id"`
	TicketID           uuid.UUID      `json:"ticket_id"`
	ItemCode           string         `json:"item_code"`
	ItemName           string         `json:"item_name"`
	Rate               pgtype.Numeric `json:"rate"`
	Qty                int32          `json:"qty"`
	DiscountPercentage pgtype.Numeric `json:"discount_percentage"`
	Note               string         `json:"note"`
	Position           int32          `json:"position"`
}

type ClosingEntry struct {
	ID             uuid.UUID      `json:"id"`
	OpeningEntryID uuid.UUID      `json:"opening_entry_id"`
	InvoiceCount   int32          `json:"invoice_count"`
	GrandTotal     pgtype.Numeric `json:"grand_total"`
	NetTotal       pgtype.Numeric `json:"net_total"`
	TotalQuantity  int32          `json:"total_quantity"`
	PeriodStart    time.Time      `json:"period_start"`
	PeriodEnd      time.Time      `json:"period_end"`
	CreatedAt      time.Time      `json:"created_at"`
}

type ClosingReconciliation struct {
	ClosingEntryID uuid.UUID      `json:"closing_entry_id"`
	ModeOfPayment  string         `json:"mode_of_payment"`
	OpeningAmount  pgtype.Numeric `json:"opening_amount"`
	ExpectedAmount pgtype.Numeric `json:"expected_amount"`
	ClosingAmount  pgtype.Numeric `json:"closing_amount"`
}
