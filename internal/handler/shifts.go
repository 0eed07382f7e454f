package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/kiwari-pos/tablepos/internal/enum"
	"github.com/kiwari-pos/tablepos/internal/logger"
	"github.com/kiwari-pos/tablepos/internal/service"
	"github.com/shopspring/decimal"
)

// ShiftService opens, summarizes and closes shifts. Satisfied by
// *service.ShiftService.
type ShiftService interface {
	OpenShift(ctx context.Context, req service.OpenShiftRequest) (*database.OpeningEntry, error)
	Summary(ctx context.Context, shiftID uuid.UUID) (*service.ShiftSummary, error)
	CloseShift(ctx context.Context, shiftID uuid.UUID) (*service.ShiftSummary, error)
}

// ShiftHandler handles the shift endpoints.
type ShiftHandler struct {
	svc ShiftService
	log *logger.Logger
}

// NewShiftHandler creates a new ShiftHandler. log may be nil.
func NewShiftHandler(svc ShiftService, log *logger.Logger) *ShiftHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ShiftHandler{svc: svc, log: log}
}

// RegisterRoutes registers shift endpoints, mounted at /shifts.
func (h *ShiftHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Open)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/summary", h.Summary)
		r.Post("/close", h.Close)
	})
}

// --- Request / Response types ---

type openShiftRequest struct {
	Profile     string          `json:"profile"`
	OpeningCash decimal.Decimal `json:"opening_cash"`
}

type shiftCreatedResponse struct {
	ID          uuid.UUID `json:"id"`
	Profile     string    `json:"profile"`
	Status      string    `json:"status"`
	PeriodStart time.Time `json:"period_start"`
}

type modeTotalResponse struct {
	ModeOfPayment string `json:"mode_of_payment"`
	Opening       string `json:"opening_amount"`
	Sales         string `json:"sales_amount"`
	Expected      string `json:"expected_amount"`
	Closing       string `json:"closing_amount"`
}

type shiftSummaryResponse struct {
	ShiftID       uuid.UUID           `json:"shift_id"`
	Profile       string              `json:"profile"`
	Status        string              `json:"status"`
	OpeningCash   string              `json:"opening_cash"`
	TotalSales    string              `json:"total_sales"`
	NetTotal      string              `json:"net_total"`
	TotalQuantity int                 `json:"total_quantity"`
	InvoiceCount  int                 `json:"invoice_count"`
	Payments      []modeTotalResponse `json:"payments"`
	PeriodStart   time.Time           `json:"period_start"`
	PeriodEnd     *time.Time          `json:"period_end,omitempty"`
}

func toShiftSummaryResponse(s *service.ShiftSummary) shiftSummaryResponse {
	resp := shiftSummaryResponse{
		ShiftID:       s.Entry.ID,
		Profile:       s.Entry.ProfileName,
		Status:        s.Entry.Status,
		OpeningCash:   money(s.OpeningCash),
		TotalSales:    money(s.GrandTotal),
		NetTotal:      money(s.NetTotal),
		TotalQuantity: s.TotalQuantity,
		InvoiceCount:  s.InvoiceCount,
		Payments:      make([]modeTotalResponse, 0, len(s.Payments)),
		PeriodStart:   s.Entry.PeriodStart,
	}
	if s.Entry.PeriodEnd.Valid {
		end := s.Entry.PeriodEnd.Time
		resp.PeriodEnd = &end
	}
	for _, p := range s.Payments {
		resp.Payments = append(resp.Payments, modeTotalResponse{
			ModeOfPayment: p.ModeOfPayment,
			Opening:       money(p.Opening),
			Sales:         money(p.Sales),
			Expected:      money(p.Expected),
			Closing:       money(p.Closing),
		})
	}
	return resp
}

// --- Handlers ---

// Open opens a shift for the caller on the requested profile.
func (h *ShiftHandler) Open(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsOrFail(ctx, h.log, w)
	if claims == nil {
		return
	}
	var req openShiftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, h.log, w, err)
		return
	}
	profile, err := resolveProfile(claims, req.Profile)
	if err != nil {
		writeError(ctx, h.log, w, err)
		return
	}

	entry, err := h.svc.OpenShift(ctx, service.OpenShiftRequest{
		Profile:     profile,
		UserID:      claims.UserID,
		OpeningCash: req.OpeningCash,
	})
	if err != nil {
		writeError(ctx, h.log, w, err)
		return
	}
	h.log.Info(h.log.WithFields(ctx, map[string]any{"pos_profile": profile, "shift_id": entry.ID.String()}), "shift opened")
	writeJSON(w, http.StatusCreated, shiftCreatedResponse{
		ID:          entry.ID,
		Profile:     entry.ProfileName,
		Status:      entry.Status,
		PeriodStart: entry.PeriodStart,
	})
}

// Summary aggregates a shift without closing it.
func (h *ShiftHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.authorizedSummary(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toShiftSummaryResponse(summary))
}

// Close writes the closing entry and returns the final summary.
func (h *ShiftHandler) Close(w http.ResponseWriter, r *http.Request) {
	current, ok := h.authorizedSummary(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	summary, err := h.svc.CloseShift(ctx, current.Entry.ID)
	if err != nil {
		writeError(ctx, h.log, w, err)
		return
	}
	h.log.Info(h.log.WithFields(ctx, map[string]any{
		"shift_id":      summary.Entry.ID.String(),
		"invoice_count": summary.InvoiceCount,
		"grand_total":   money(summary.GrandTotal),
	}), "shift closed")
	writeJSON(w, http.StatusOK, toShiftSummaryResponse(summary))
}

// authorizedSummary loads the shift and checks it belongs to the caller's
// profile.
func (h *ShiftHandler) authorizedSummary(w http.ResponseWriter, r *http.Request) (*service.ShiftSummary, bool) {
	ctx := r.Context()
	claims := claimsOrFail(ctx, h.log, w)
	if claims == nil {
		return nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(ctx, h.log, w, errInvalidID)
		return nil, false
	}
	summary, err := h.svc.Summary(ctx, id)
	if err != nil {
		writeError(ctx, h.log, w, err)
		return nil, false
	}
	if summary.Entry.ProfileName != claims.Profile && claims.Role != enum.UserRoleManager {
		writeError(ctx, h.log, w, errForbiddenProfile)
		return nil, false
	}
	return summary, true
}
