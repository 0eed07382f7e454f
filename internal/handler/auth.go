package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/tablepos/internal/apperr"
	"github.com/kiwari-pos/tablepos/internal/auth"
	"github.com/kiwari-pos/tablepos/internal/config"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/kiwari-pos/tablepos/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

var (
	errInvalidCredentials = apperr.New(apperr.CodeUnauthorized, "invalid credentials")
	errInvalidRefresh     = apperr.New(apperr.CodeUnauthorized, "invalid refresh token")
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store AuthStore
	jwt   config.JWTConfig
	log   *logger.Logger
}

// NewAuthHandler creates a new AuthHandler. log may be nil.
func NewAuthHandler(store AuthStore, jwt config.JWTConfig, log *logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{store: store, jwt: jwt, log: log}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID       uuid.UUID `json:"id"`
	Profile  string    `json:"pos_profile"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
}

// --- Handlers ---

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(r.Context(), h.log, w, errInvalidCredentials)
			return
		}
		writeError(r.Context(), h.log, w, err)
		return
	}
	if !user.IsActive {
		writeError(r.Context(), h.log, w, errInvalidCredentials)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		writeError(r.Context(), h.log, w, errInvalidCredentials)
		return
	}

	h.respondWithTokens(w, r, user)
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	userID, err := auth.ValidateRefreshToken(h.jwt.Secret, req.RefreshToken)
	if err != nil {
		writeError(r.Context(), h.log, w, errInvalidRefresh)
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(r.Context(), h.log, w, apperr.New(apperr.CodeUnauthorized, "user not found"))
			return
		}
		writeError(r.Context(), h.log, w, err)
		return
	}
	if !user.IsActive {
		writeError(r.Context(), h.log, w, errInvalidRefresh)
		return
	}

	h.respondWithTokens(w, r, user)
}

// --- Helpers ---

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, r *http.Request, user database.User) {
	accessToken, err := auth.GenerateToken(h.jwt.Secret, user.ID, user.ProfileName, user.Role, h.jwt.AccessTTL)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.jwt.Secret, user.ID, h.jwt.RefreshTTL)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: userResponse{
			ID:       user.ID,
			Profile:  user.ProfileName,
			FullName: user.FullName,
			Email:    user.Email,
			Role:     user.Role,
		},
	})
}
