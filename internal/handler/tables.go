package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/kiwari-pos/tablepos/internal/logger"
	"github.com/kiwari-pos/tablepos/internal/service"
	"github.com/kiwari-pos/tablepos/internal/ws"
	"github.com/shopspring/decimal"
)

// TableStore defines the read queries needed by table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	ListTables(ctx context.Context) ([]database.RestaurantTable, error)
	ListDraftTicketLines(ctx context.Context, tableName string) ([]database.ListDraftTicketLinesRow, error)
}

// TableService changes table status and transfers orders. Satisfied by
// *service.TableService.
type TableService interface {
	SetStatus(ctx context.Context, name, status string) (*database.RestaurantTable, error)
	Transfer(ctx context.Context, from, to string) (*service.TransferResult, error)
}

// KitchenService fires kitchen tickets. Satisfied by *service.KitchenService.
type KitchenService interface {
	Fire(ctx context.Context, req service.FireRequest) (*service.FireResult, error)
}

// TableHandler handles table listing, status, transfer and kitchen tickets.
type TableHandler struct {
	store   TableStore
	tables  TableService
	kitchen KitchenService
	pub     Publisher
	log     *logger.Logger
}

// NewTableHandler creates a new TableHandler. pub and log may be nil.
func NewTableHandler(store TableStore, tables TableService, kitchen KitchenService, pub Publisher, log *logger.Logger) *TableHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &TableHandler{store: store, tables: tables, kitchen: kitchen, pub: pub, log: log}
}

// RegisterRoutes registers table endpoints, mounted at /tables.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Route("/{name}", func(r chi.Router) {
		r.Put("/status", h.SetStatus)
		r.Post("/transfer", h.Transfer)
		r.Get("/lines", h.Lines)
		r.Post("/kots", h.Fire)
	})
}

// --- Request / Response types ---

type tableResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Available Occupied Reserved Dirty"`
}

type transferRequest struct {
	To string `json:"to" validate:"required"`
}

type transferResponse struct {
	From  tableResponse `json:"from"`
	To    tableResponse `json:"to"`
	Moved int64         `json:"moved"`
}

type orderLineRequest struct {
	ItemCode           string          `json:"item_code" validate:"required"`
	ItemName           string          `json:"item_name"`
	Rate               decimal.Decimal `json:"rate"`
	Qty                int32           `json:"qty" validate:"gt=0"`
	Note               string          `json:"note"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

type fireRequest struct {
	Customer string             `json:"customer"`
	Lines    []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type orderLineResponse struct {
	ItemCode           string `json:"item_code"`
	ItemName           string `json:"item_name"`
	Rate               string `json:"rate"`
	Qty                int32  `json:"qty"`
	Note               string `json:"note"`
	DiscountPercentage string `json:"discount_percentage"`
	Amount             string `json:"amount,omitempty"`
}

type fireResponse struct {
	TicketID uuid.UUID `json:"ticket_id"`
	Table    string    `json:"table"`
	Customer string    `json:"customer"`
	Lines    int       `json:"lines"`
}

type ticketEvent struct {
	TicketID  uuid.UUID           `json:"ticket_id"`
	Table     string              `json:"table"`
	Customer  string              `json:"customer"`
	CreatedBy uuid.UUID           `json:"created_by"`
	Lines     []orderLineResponse `json:"lines"`
}

func toTableResponse(t database.RestaurantTable) tableResponse {
	return tableResponse{Name: t.Name, Status: t.Status}
}

// --- Handlers ---

// List returns every table in display order.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	resp := make([]tableResponse, 0, len(tables))
	for _, t := range tables {
		resp = append(resp, toTableResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetStatus changes a table's status.
func (h *TableHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsOrFail(ctx, h.log, w)
	if claims == nil {
		return
	}
	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, h.log, w, err)
		return
	}
	name := pathParam(r, "name")
	table, err := h.tables.SetStatus(h.log.WithTable(ctx, name), name, req.Status)
	if err != nil {
		writeError(ctx, h.log, w, err)
		return
	}
	resp := toTableResponse(*table)
	h.publish(ctx, claims.Profile, ws.EventTableUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Transfer moves the table's open order to another table.
func (h *TableHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsOrFail(ctx, h.log, w)
	if claims == nil {
		return
	}
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, h.log, w, err)
		return
	}
	from := pathParam(r, "name")
	res, err := h.tables.Transfer(ctx, from, req.To)
	if err != nil {
		writeError(ctx, h.log, w, err)
		return
	}
	resp := transferResponse{From: toTableResponse(res.From), To: toTableResponse(res.To), Moved: res.Moved}
	h.log.Info(h.log.WithFields(ctx, map[string]any{"from": res.From.Name, "to": res.To.Name, "moved": res.Moved}), "table transferred")
	h.publish(ctx, claims.Profile, ws.EventTableMoved, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Lines returns the lines already fired to the kitchen for the table.
func (h *TableHandler) Lines(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListDraftTicketLines(r.Context(), pathParam(r, "name"))
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	resp := make([]orderLineResponse, 0, len(rows))
	for _, l := range rows {
		resp = append(resp, orderLineResponse{
			ItemCode:           l.ItemCode,
			ItemName:           l.ItemName,
			Rate:               numericString(l.Rate),
			Qty:                l.Qty,
			Note:               l.Note,
			DiscountPercentage: numericString(l.DiscountPercentage),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Fire creates a kitchen ticket for the table and notifies kitchen displays.
func (h *TableHandler) Fire(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsOrFail(ctx, h.log, w)
	if claims == nil {
		return
	}
	var req fireRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, h.log, w, err)
		return
	}
	table := pathParam(r, "name")
	ctx = h.log.WithTable(ctx, table)

	lines := make([]service.FireLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, service.FireLine{
			ItemCode:           strings.TrimSpace(l.ItemCode),
			ItemName:           l.ItemName,
			Rate:               l.Rate,
			Qty:                l.Qty,
			Note:               l.Note,
			DiscountPercentage: l.DiscountPercentage,
		})
	}

	res, err := h.kitchen.Fire(ctx, service.FireRequest{
		Profile:   claims.Profile,
		Table:     table,
		Customer:  req.Customer,
		CreatedBy: claims.UserID,
		Lines:     lines,
	})
	if err != nil {
		writeError(ctx, h.log, w, err)
		return
	}

	event := ticketEvent{
		TicketID:  res.Ticket.ID,
		Table:     res.Ticket.TableName,
		Customer:  res.Ticket.Customer,
		CreatedBy: res.Ticket.CreatedBy,
		Lines:     make([]orderLineResponse, 0, len(res.Items)),
	}
	for _, it := range res.Items {
		event.Lines = append(event.Lines, orderLineResponse{
			ItemCode:           it.ItemCode,
			ItemName:           it.ItemName,
			Rate:               numericString(it.Rate),
			Qty:                it.Qty,
			Note:               it.Note,
			DiscountPercentage: numericString(it.DiscountPercentage),
		})
	}
	h.log.Info(h.log.WithFields(ctx, map[string]any{"ticket_id": res.Ticket.ID.String(), "lines": len(res.Items)}), "ticket fired")
	h.publish(ctx, claims.Profile, ws.EventTicketFired, event)

	writeJSON(w, http.StatusCreated, fireResponse{
		TicketID: res.Ticket.ID,
		Table:    res.Ticket.TableName,
		Customer: res.Ticket.Customer,
		Lines:    len(res.Items),
	})
}

func (h *TableHandler) publish(ctx context.Context, room, eventType string, payload any) {
	if h.pub == nil || room == "" {
		return
	}
	h.pub.Publish(ctx, room, eventType, payload)
}
