package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/tablepos/internal/catalog"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/kiwari-pos/tablepos/internal/logger"
	"github.com/kiwari-pos/tablepos/internal/service"
)

// Catalog resolves codes and searches the menu. Satisfied by
// *catalog.Catalog.
type Catalog interface {
	Lookup(ctx context.Context, priceList, code string) (catalog.Item, error)
	Search(ctx context.Context, priceList, q string, limit int) ([]catalog.Item, error)
}

// ProfileStore reads POS profiles. Satisfied by *database.Queries.
type ProfileStore interface {
	GetPOSProfile(ctx context.Context, name string) (database.PosProfile, error)
}

// ItemHandler handles item lookup and menu search.
type ItemHandler struct {
	catalog  Catalog
	profiles ProfileStore
	log      *logger.Logger
}

// NewItemHandler creates a new ItemHandler. log may be nil.
func NewItemHandler(c Catalog, profiles ProfileStore, log *logger.Logger) *ItemHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ItemHandler{catalog: c, profiles: profiles, log: log}
}

// RegisterRoutes registers item endpoints, mounted at /items.
func (h *ItemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Search)
	r.Get("/lookup/{code}", h.Lookup)
}

type itemResponse struct {
	Code string `json:"item_code"`
	Name string `json:"item_name"`
	Rate string `json:"rate"`
}

func toItemResponse(i catalog.Item) itemResponse {
	return itemResponse{Code: i.Code, Name: i.Name, Rate: money(i.Rate)}
}

// Lookup resolves a barcode or item code priced on the caller's profile.
func (h *ItemHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	priceList, ok := h.priceList(w, r)
	if !ok {
		return
	}
	item, err := h.catalog.Lookup(ctx, priceList, pathParam(r, "code"))
	if err != nil {
		writeError(ctx, h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// Search lists menu items matching ?q=.
func (h *ItemHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	priceList, ok := h.priceList(w, r)
	if !ok {
		return
	}
	items, err := h.catalog.Search(ctx, priceList, r.URL.Query().Get("q"), queryLimit(r, 50, 200))
	if err != nil {
		writeError(ctx, h.log, w, err)
		return
	}
	resp := make([]itemResponse, 0, len(items))
	for _, i := range items {
		resp = append(resp, toItemResponse(i))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ItemHandler) priceList(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	claims := claimsOrFail(ctx, h.log, w)
	if claims == nil {
		return "", false
	}
	if claims.Profile == "" {
		return "", true
	}
	p, err := h.profiles.GetPOSProfile(ctx, claims.Profile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(ctx, h.log, w, service.ErrProfileNotFound)
			return "", false
		}
		writeError(ctx, h.log, w, err)
		return "", false
	}
	return p.PriceList, true
}
