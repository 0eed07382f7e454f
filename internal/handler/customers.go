package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/kiwari-pos/tablepos/internal/logger"
)

// CustomerStore defines the database methods needed by customer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CustomerStore interface {
	SearchCustomers(ctx context.Context, arg database.SearchCustomersParams) ([]database.Customer, error)
}

// CustomerHandler serves the customer directory for the customer selector.
type CustomerHandler struct {
	store CustomerStore
	log   *logger.Logger
}

// NewCustomerHandler creates a new CustomerHandler. log may be nil.
func NewCustomerHandler(store CustomerStore, log *logger.Logger) *CustomerHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CustomerHandler{store: store, log: log}
}

// RegisterRoutes registers customer endpoints, mounted at /customers.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Search)
}

type customerResponse struct {
	Name string `json:"name"`
}

// Search lists customers whose name contains ?q=, alphabetically.
func (h *CustomerHandler) Search(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.SearchCustomers(r.Context(), database.SearchCustomersParams{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
		Limit: int32(queryLimit(r, 20, 100)),
	})
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	resp := make([]customerResponse, 0, len(customers))
	for _, c := range customers {
		resp = append(resp, customerResponse{Name: c.Name})
	}
	writeJSON(w, http.StatusOK, resp)
}
