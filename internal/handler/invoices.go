package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/tablepos/internal/apperr"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/kiwari-pos/tablepos/internal/enum"
	"github.com/kiwari-pos/tablepos/internal/logger"
	"github.com/kiwari-pos/tablepos/internal/service"
	"github.com/kiwari-pos/tablepos/internal/ws"
	"github.com/shopspring/decimal"
)

var errInvoiceNotFound = apperr.New(apperr.CodeNotFound, "invoice not found")

// InvoiceStore defines the read queries needed by invoice handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type InvoiceStore interface {
	GetInvoice(ctx context.Context, id uuid.UUID) (database.Invoice, error)
	ListInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]database.InvoiceItem, error)
	ListRecentInvoices(ctx context.Context, arg database.ListRecentInvoicesParams) ([]database.Invoice, error)
}

// InvoiceService settles tables. Satisfied by *service.InvoiceService.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req service.CreateInvoiceRequest) (*service.CreateInvoiceResult, error)
}

// InvoiceHandler handles invoice creation and retrieval.
type InvoiceHandler struct {
	store InvoiceStore
	svc   InvoiceService
	pub   Publisher
	log   *logger.Logger
}

// NewInvoiceHandler creates a new InvoiceHandler. pub and log may be nil.
func NewInvoiceHandler(store InvoiceStore, svc InvoiceService, pub Publisher, log *logger.Logger) *InvoiceHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &InvoiceHandler{store: store, svc: svc, pub: pub, log: log}
}

// RegisterRoutes registers invoice endpoints, mounted at /invoices.
func (h *InvoiceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
}

// --- Request / Response types ---

type createInvoiceRequest struct {
	Table         string          `json:"table" validate:"required"`
	ModeOfPayment string          `json:"mode_of_payment"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Customer      string          `json:"customer"`
}

type invoiceCreatedResponse struct {
	ID           uuid.UUID `json:"id"`
	GrandTotal   string    `json:"grand_total"`
	ChangeAmount string    `json:"change_amount"`
}

type invoiceResponse struct {
	ID            uuid.UUID           `json:"id"`
	ShiftID       uuid.UUID           `json:"shift_id"`
	Profile       string              `json:"profile"`
	Table         string              `json:"table"`
	Customer      string              `json:"customer"`
	ModeOfPayment string              `json:"mode_of_payment"`
	Lines         []orderLineResponse `json:"lines"`
	NetTotal      string              `json:"net_total"`
	GrandTotal    string              `json:"grand_total"`
	TotalQty      int32               `json:"total_qty"`
	AmountPaid    string              `json:"amount_paid"`
	ChangeAmount  string              `json:"change_amount"`
	CreatedAt     time.Time           `json:"created_at"`
}

type invoiceSummaryResponse struct {
	ID         uuid.UUID `json:"id"`
	Table      string    `json:"table"`
	Customer   string    `json:"customer"`
	GrandTotal string    `json:"grand_total"`
	CreatedAt  time.Time `json:"created_at"`
}

// --- Handlers ---

// Create settles the table's fired lines into an invoice.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsOrFail(ctx, h.log, w)
	if claims == nil {
		return
	}
	var req createInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, h.log, w, err)
		return
	}
	ctx = h.log.WithTable(ctx, req.Table)

	res, err := h.svc.CreateInvoice(ctx, service.CreateInvoiceRequest{
		Profile:       claims.Profile,
		UserID:        claims.UserID,
		Table:         req.Table,
		ModeOfPayment: req.ModeOfPayment,
		AmountPaid:    req.AmountPaid,
		Customer:      req.Customer,
	})
	if err != nil {
		writeError(ctx, h.log, w, err)
		return
	}
	inv := res.Invoice
	resp := invoiceCreatedResponse{
		ID:           inv.ID,
		GrandTotal:   numericString(inv.GrandTotal),
		ChangeAmount: numericString(inv.ChangeAmount),
	}
	h.log.Info(h.log.WithFields(ctx, map[string]any{
		"invoice_id":  inv.ID.String(),
		"grand_total": resp.GrandTotal,
		"mode":        inv.ModeOfPayment,
	}), "invoice created")
	if h.pub != nil && claims.Profile != "" {
		h.pub.Publish(ctx, claims.Profile, ws.EventInvoiceCreated, invoiceSummaryResponse{
			ID:         inv.ID,
			Table:      inv.TableName,
			Customer:   inv.Customer,
			GrandTotal: resp.GrandTotal,
			CreatedAt:  inv.CreatedAt,
		})
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Get returns an invoice with its lines.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsOrFail(ctx, h.log, w)
	if claims == nil {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(ctx, h.log, w, errInvalidID)
		return
	}

	inv, err := h.store.GetInvoice(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(ctx, h.log, w, errInvoiceNotFound)
			return
		}
		writeError(ctx, h.log, w, err)
		return
	}
	if inv.ProfileName != claims.Profile && claims.Role != enum.UserRoleManager {
		writeError(ctx, h.log, w, errInvoiceNotFound)
		return
	}

	items, err := h.store.ListInvoiceItems(ctx, id)
	if err != nil {
		writeError(ctx, h.log, w, err)
		return
	}

	resp := invoiceResponse{
		ID:            inv.ID,
		ShiftID:       inv.OpeningEntryID,
		Profile:       inv.ProfileName,
		Table:         inv.TableName,
		Customer:      inv.Customer,
		ModeOfPayment: inv.ModeOfPayment,
		Lines:         make([]orderLineResponse, 0, len(items)),
		NetTotal:      numericString(inv.NetTotal),
		GrandTotal:    numericString(inv.GrandTotal),
		TotalQty:      inv.TotalQty,
		AmountPaid:    numericString(inv.AmountPaid),
		ChangeAmount:  numericString(inv.ChangeAmount),
		CreatedAt:     inv.CreatedAt,
	}
	for _, it := range items {
		resp.Lines = append(resp.Lines, orderLineResponse{
			ItemCode:           it.ItemCode,
			ItemName:           it.ItemName,
			Rate:               numericString(it.Rate),
			Qty:                it.Qty,
			Note:               it.Note,
			DiscountPercentage: numericString(it.DiscountPercentage),
			Amount:             numericString(it.Amount),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// List returns the caller's profile's most recent invoices, newest first.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsOrFail(ctx, h.log, w)
	if claims == nil {
		return
	}
	profile, err := resolveProfile(claims, r.URL.Query().Get("profile"))
	if err != nil {
		writeError(ctx, h.log, w, err)
		return
	}
	invoices, err := h.store.ListRecentInvoices(ctx, database.ListRecentInvoicesParams{
		ProfileName: profile,
		Limit:       int32(queryLimit(r, 20, 100)),
	})
	if err != nil {
		writeError(ctx, h.log, w, err)
		return
	}
	resp := make([]invoiceSummaryResponse, 0, len(invoices))
	for _, inv := range invoices {
		resp = append(resp, invoiceSummaryResponse{
			ID:         inv.ID,
			Table:      inv.TableName,
			Customer:   inv.Customer,
			GrandTotal: numericString(inv.GrandTotal),
			CreatedAt:  inv.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
