package terminal

import (
	"context"
	"strings"
	"time"

	"github.com/kiwari-pos/tablepos/internal/backend"
	"github.com/kiwari-pos/tablepos/internal/cart"
	"github.com/kiwari-pos/tablepos/internal/enum"
	"github.com/shopspring/decimal"
)

type CheckoutRequest struct {
	ModeOfPayment string          `json:"mode_of_payment"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
}

// Settlement is the snapshot handed to the receipt collaborator.
type Settlement struct {
	InvoiceID     string          `json:"invoice_id"`
	Table         string          `json:"table"`
	Customer      string          `json:"customer"`
	ModeOfPayment string          `json:"mode_of_payment"`
	Lines         []cart.Line     `json:"lines"`
	Total         decimal.Decimal `json:"total"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Change        decimal.Decimal `json:"change"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Change is max(0, paid − total).
func Change(paid, total decimal.Decimal) decimal.Decimal {
	change := paid.Sub(total)
	if change.IsNegative() {
		return decimal.Zero
	}
	return change
}

// Checkout settles the active table. Every line must be fired first.
// Underpayment is accepted; change is then zero.
func (s *Session) Checkout(ctx context.Context, req CheckoutRequest) (Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTable == "" {
		return Settlement{}, ErrNoActiveTable
	}
	if s.cart.IsEmpty() {
		return Settlement{}, ErrEmptyCart
	}
	if !s.cart.AllFired() {
		return Settlement{}, ErrUnfiredLines
	}
	if req.AmountPaid.IsNegative() {
		return Settlement{}, ErrInvalidAmount
	}

	mode := strings.TrimSpace(req.ModeOfPayment)
	if mode == "" {
		mode = s.defaultMode()
	}
	total := s.cart.Total().Round(2)
	change := Change(req.AmountPaid, total)

	ctx = s.ctx(ctx)
	id, err := s.backend.CreateInvoice(ctx, backend.InvoiceRequest{
		Table:         s.activeTable,
		ModeOfPayment: mode,
		AmountPaid:    req.AmountPaid,
		Customer:      s.customer,
	})
	s.metrics.ObserveOperation("checkout", err)
	if err != nil {
		return Settlement{}, err
	}

	settlement := Settlement{
		InvoiceID:     id,
		Table:         s.activeTable,
		Customer:      s.customer,
		ModeOfPayment: mode,
		Lines:         s.cart.Lines(),
		Total:         total,
		AmountPaid:    req.AmountPaid,
		Change:        change,
		CreatedAt:     s.now(),
	}

	s.cart.Clear()
	s.setLocalStatus(s.activeTable, enum.TableStatusAvailable)
	s.activeTable = ""
	s.customer = s.defaultCustomer
	s.lastInvoiceID = id
	s.metrics.IncSettlement()

	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"invoice_id": id,
		"total":      total.StringFixed(2),
		"paid":       req.AmountPaid.StringFixed(2),
		"mode":       mode,
	}), "table settled")
	if s.receipts != nil {
		s.receipts.Receipt(ctx, settlement)
	}
	return settlement, nil
}

func (s *Session) defaultMode() string {
	for _, m := range s.paymentModes {
		if strings.EqualFold(m, enum.PaymentModeCash) {
			return m
		}
	}
	if len(s.paymentModes) > 0 {
		return s.paymentModes[0]
	}
	return enum.PaymentModeCash
}

// Reprint fetches the last settled invoice.
func (s *Session) Reprint(ctx context.Context) (backend.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastInvoiceID == "" {
		return backend.Invoice{}, ErrNoLastInvoice
	}
	return s.backend.GetInvoice(s.ctx(ctx), s.lastInvoiceID)
}

func (s *Session) Invoice(ctx context.Context, id string) (backend.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.GetInvoice(s.ctx(ctx), id)
}

func (s *Session) RecentInvoices(ctx context.Context) ([]backend.InvoiceSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.ListRecentInvoices(s.ctx(ctx), s.recentLimit)
}
