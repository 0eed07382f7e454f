package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/tablepos/internal/logger"
	"github.com/kiwari-pos/tablepos/internal/service"
)

// SessionService reads a user's session state. Satisfied by
// *service.ShiftService.
type SessionService interface {
	SessionState(ctx context.Context, profile string, userID uuid.UUID) (*service.SessionState, error)
}

// SessionHandler serves the terminal's startup state and profile data.
type SessionHandler struct {
	svc SessionService
	log *logger.Logger
}

// NewSessionHandler creates a new SessionHandler. log may be nil.
func NewSessionHandler(svc SessionService, log *logger.Logger) *SessionHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionHandler{svc: svc, log: log}
}

// RegisterRoutes registers /session and /profile.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/session", h.Session)
	r.Get("/profile", h.Profile)
}

type sessionResponse struct {
	Profile      string   `json:"profile"`
	Company      string   `json:"company"`
	OpenShiftID  string   `json:"open_shift_id"`
	PaymentModes []string `json:"payment_modes"`
}

type paymentModeResponse struct {
	ModeOfPayment string `json:"mode_of_payment"`
	Account       string `json:"account"`
}

type profileResponse struct {
	Name         string                `json:"name"`
	Company      string                `json:"company"`
	PriceList    string                `json:"price_list"`
	PaymentModes []paymentModeResponse `json:"payment_modes"`
}

// Session returns the profile and the caller's open shift, if any.
func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	st, ok := h.load(w, r)
	if !ok {
		return
	}
	resp := sessionResponse{
		Profile:      st.Profile.Name,
		Company:      st.Profile.Company,
		PaymentModes: make([]string, 0, len(st.PaymentModes)),
	}
	if st.OpenShift != nil {
		resp.OpenShiftID = st.OpenShift.ID.String()
	}
	for _, m := range st.PaymentModes {
		resp.PaymentModes = append(resp.PaymentModes, m.ModeOfPayment)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Profile returns the profile with its payment modes and accounts.
func (h *SessionHandler) Profile(w http.ResponseWriter, r *http.Request) {
	st, ok := h.load(w, r)
	if !ok {
		return
	}
	resp := profileResponse{
		Name:         st.Profile.Name,
		Company:      st.Profile.Company,
		PriceList:    st.Profile.PriceList,
		PaymentModes: make([]paymentModeResponse, 0, len(st.PaymentModes)),
	}
	for _, m := range st.PaymentModes {
		resp.PaymentModes = append(resp.PaymentModes, paymentModeResponse{ModeOfPayment: m.ModeOfPayment, Account: m.Account})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) load(w http.ResponseWriter, r *http.Request) (*service.SessionState, bool) {
	ctx := r.Context()
	claims := claimsOrFail(ctx, h.log, w)
	if claims == nil {
		return nil, false
	}
	profile, err := resolveProfile(claims, r.URL.Query().Get("profile"))
	if err != nil {
		writeError(ctx, h.log, w, err)
		return nil, false
	}
	st, err := h.svc.SessionState(h.log.WithProfile(ctx, profile), profile, claims.UserID)
	if err != nil {
		writeError(ctx, h.log, w, err)
		return nil, false
	}
	return st, true
}
