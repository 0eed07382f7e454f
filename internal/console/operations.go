package console

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/tablepos/internal/apperr"
	"github.com/kiwari-pos/tablepos/internal/cart"
	"github.com/kiwari-pos/tablepos/internal/terminal"
	"github.com/shopspring/decimal"
)

var errLineIndex = apperr.New(apperr.CodeValidation, "line index must be a number")

// --- Request types ---

type customerRequest struct {
	Name string `json:"name" validate:"required"`
}

type scanRequest struct {
	Code string `json:"code" validate:"required"`
}

type openShiftRequest struct {
	OpeningCash decimal.Decimal `json:"opening_cash"`
}

type statusRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=Available Occupied Reserved Dirty"`
}

type transferRequest struct {
	To string `json:"to" validate:"required"`
}

type addItemRequest struct {
	ItemCode string          `json:"item_code" validate:"required"`
	ItemName string          `json:"item_name"`
	Rate     decimal.Decimal `json:"rate"`
}

type quantityRequest struct {
	Delta int `json:"delta" validate:"required"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type discountRequest struct {
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

type shiftOpenedResponse struct {
	ShiftID string `json:"shift_id"`
}

// --- Snapshots ---

func (s *Server) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) Cart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Cart())
}

func (s *Server) Tables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Tables())
}

func (s *Server) Shift(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Shift())
}

// --- Shift ---

func (s *Server) OpenShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req openShiftRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	id, err := s.session.OpenShift(ctx, req.OpeningCash)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, shiftOpenedResponse{ShiftID: id})
}

func (s *Server) ShiftSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.session.ShiftSummary(r.Context())
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) CloseShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := s.session.CloseShift(ctx)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.publishCart(ctx)
	writeJSON(w, http.StatusOK, summary)
}

// --- Tables ---

func (s *Server) RefreshTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.session.RefreshTables(r.Context())
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

// EnterTable selects a table; the body may carry a status, Occupied by default.
func (s *Server) EnterTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req statusRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(ctx, w, err)
			return
		}
	}
	if err := s.session.EnterTable(ctx, tableName(r), req.Status); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.publishCart(ctx)
	writeJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) SetTableStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if err := s.session.SetTableStatus(ctx, tableName(r), req.Status); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Tables())
}

func (s *Server) Release(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.session.Release(ctx, tableName(r)); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.publishCart(ctx)
	writeJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) Transfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if err := s.session.Transfer(ctx, req.To); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.State())
}

// --- Cart ---

func (s *Server) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	item := cart.Item{Code: req.ItemCode, Name: req.ItemName, Rate: req.Rate}
	if err := s.session.AddItem(item); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.respondCart(w, r)
}

func (s *Server) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, ok := s.lineIndex(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if err := s.session.ChangeQuantity(index, req.Delta); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.respondCart(w, r)
}

func (s *Server) SetNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, ok := s.lineIndex(w, r)
	if !ok {
		return
	}
	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if err := s.session.SetNote(index, req.Note); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.respondCart(w, r)
}

func (s *Server) SetDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, ok := s.lineIndex(w, r)
	if !ok {
		return
	}
	var req discountRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if err := s.session.SetDiscount(index, req.DiscountPercentage); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.respondCart(w, r)
}

func (s *Server) ClearCart(w http.ResponseWriter, r *http.Request) {
	s.session.ClearCart()
	s.respondCart(w, r)
}

// Fire sends pending lines to the kitchen. A reload failure after a
// successful fire is reported with the fired result still applied.
func (s *Server) Fire(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := s.session.Fire(ctx)
	if err != nil {
		s.publishCart(ctx)
		s.writeError(ctx, w, err)
		return
	}
	s.publishCart(ctx)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) Load(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Load(r.Context()); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	s.respondCart(w, r)
}

func (s *Server) SelectCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if err := s.session.SelectCustomer(req.Name); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.State())
}

// Scan adds an item by code without going through the key stream.
func (s *Server) Scan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if err := s.session.HandleScan(ctx, req.Code); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.respondCart(w, r)
}

// --- Checkout and invoices ---

func (s *Server) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req terminal.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	settlement, err := s.session.Checkout(ctx, req)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.publishCart(ctx)
	writeJSON(w, http.StatusOK, settlement)
}

func (s *Server) RecentInvoices(w http.ResponseWriter, r *http.Request) {
	list, err := s.session.RecentInvoices(r.Context())
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// LastInvoice returns the last settled invoice for reprinting.
func (s *Server) LastInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.session.Reprint(r.Context())
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) Invoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.session.Invoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// --- Helpers ---

func (s *Server) respondCart(w http.ResponseWriter, r *http.Request) {
	s.publishCart(r.Context())
	writeJSON(w, http.StatusOK, s.session.Cart())
}

func (s *Server) lineIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeError(r.Context(), w, errLineIndex)
		return 0, false
	}
	return index, true
}

func tableName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
