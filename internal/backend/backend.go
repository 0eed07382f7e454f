// Package backend defines the data-service operations the terminal depends
// on and an HTTP client that speaks to cmd/server.
package backend

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Backend is the collaborator that persists tables, tickets, invoices and
// shifts. Every call is a single round trip; none is retried.
type Backend interface {
	GetSessionState(ctx context.Context, profile string) (SessionState, error)
	OpenShift(ctx context.Context, profile string, openingCash decimal.Decimal) (string, error)
	CloseShift(ctx context.Context, shiftID string) (ShiftSummary, error)
	ShiftSummary(ctx context.Context, shiftID string) (ShiftSummary, error)

	ListTables(ctx context.Context) ([]Table, error)
	SetTableStatus(ctx context.Context, table, status string) error
	TransferTable(ctx context.Context, from, to string) error

	GetFiredLines(ctx context.Context, table string) ([]OrderLine, error)
	FireLines(ctx context.Context, req FireRequest) (FireResult, error)
	LookupItemByCode(ctx context.Context, code string) (Item, error)

	CreateInvoice(ctx context.Context, req InvoiceRequest) (string, error)
	GetInvoice(ctx context.Context, id string) (Invoice, error)
	ListRecentInvoices(ctx context.Context, limit int) ([]InvoiceSummary, error)
}

// SessionState describes the terminal's POS profile and its open shift, if any.
type SessionState struct {
	Profile      string   `json:"profile"`
	Company      string   `json:"company"`
	OpenShiftID  string   `json:"open_shift_id"`
	PaymentModes []string `json:"payment_modes"`
}

type Table struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// OrderLine is a line as the kitchen and invoice records see it.
type OrderLine struct {
	ItemCode           string          `json:"item_code"`
	ItemName           string          `json:"item_name"`
	Rate               decimal.Decimal `json:"rate"`
	Qty                int             `json:"qty"`
	Note               string          `json:"note"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

type FireRequest struct {
	Table    string      `json:"-"`
	Customer string      `json:"customer"`
	Lines    []OrderLine `json:"lines"`
}

type FireResult struct {
	TicketID string `json:"ticket_id"`
	Table    string `json:"table"`
	Customer string `json:"customer"`
	Lines    int    `json:"lines"`
}

type Item struct {
	Code string          `json:"item_code"`
	Name string          `json:"item_name"`
	Rate decimal.Decimal `json:"rate"`
}

type InvoiceRequest struct {
	Table         string          `json:"table"`
	ModeOfPayment string          `json:"mode_of_payment"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Customer      string          `json:"customer"`
}

type Invoice struct {
	ID            string          `json:"id"`
	ShiftID       string          `json:"shift_id"`
	Table         string          `json:"table"`
	Customer      string          `json:"customer"`
	ModeOfPayment string          `json:"mode_of_payment"`
	Lines         []OrderLine     `json:"lines"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Change        decimal.Decimal `json:"change_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

type InvoiceSummary struct {
	ID         string          `json:"id"`
	Table      string          `json:"table"`
	Customer   string          `json:"customer"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ModeTotal is the reconciliation of one payment mode within a shift.
type ModeTotal struct {
	Mode     string          `json:"mode_of_payment"`
	Opening  decimal.Decimal `json:"opening_amount"`
	Sales    decimal.Decimal `json:"sales_amount"`
	Expected decimal.Decimal `json:"expected_amount"`
	Closing  decimal.Decimal `json:"closing_amount"`
}

type ShiftSummary struct {
	ShiftID       string          `json:"shift_id"`
	Profile       string          `json:"profile"`
	Status        string          `json:"status"`
	OpeningCash   decimal.Decimal `json:"opening_cash"`
	TotalSales    decimal.Decimal `json:"total_sales"`
	NetTotal      decimal.Decimal `json:"net_total"`
	TotalQuantity int             `json:"total_quantity"`
	InvoiceCount  int             `json:"invoice_count"`
	Payments      []ModeTotal     `json:"payments"`
	PeriodStart   time.Time       `json:"period_start"`
	PeriodEnd     *time.Time      `json:"period_end,omitempty"`
}
