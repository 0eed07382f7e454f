// Package handler holds the data service's chi HTTP handlers. Reads go
// straight to narrow store interfaces; writes go through internal/service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/tablepos/internal/apperr"
	"github.com/kiwari-pos/tablepos/internal/auth"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/kiwari-pos/tablepos/internal/enum"
	"github.com/kiwari-pos/tablepos/internal/logger"
	"github.com/kiwari-pos/tablepos/internal/middleware"
	"github.com/shopspring/decimal"
)

// Publisher pushes events to websocket rooms. Satisfied by *ws.Hub.
type Publisher interface {
	Publish(ctx context.Context, room, eventType string, payload any)
}

var (
	errForbiddenProfile = apperr.New(apperr.CodeForbidden, "access denied for this pos profile")
	errInvalidID        = apperr.New(apperr.CodeValidation, "invalid id")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// decodeJSON decodes the request body into dest and runs struct validation.
func decodeJSON(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return apperr.Wrap(apperr.CodeValidation, err, "invalid request body")
	}
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *apperr.Error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		details := map[string]string{}
		msgs := make([]string, 0, len(errs))
		for _, fieldErr := range errs {
			msg := validationMessage(fieldErr)
			details[fieldErr.Namespace()] = msg
			msgs = append(msgs, fieldErr.Field()+" "+msg)
		}
		return apperr.New(apperr.CodeValidation, strings.Join(msgs, "; ")).WithDetails(details)
	}
	return apperr.Wrap(apperr.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return "is invalid"
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// writeError maps err to its apperr code. Errors without a code are logged
// and answered with a generic 500.
func writeError(ctx context.Context, log *logger.Logger, w http.ResponseWriter, err error) {
	typed := apperr.As(err)
	if typed == nil {
		typed = apperr.Wrap(apperr.CodeInternal, err, "unexpected error")
	}
	meta := apperr.MetadataFor(typed.Code())

	resp := errorResponse{Error: meta.PublicMessage, Code: string(typed.Code())}
	switch typed.Code() {
	case apperr.CodeInternal, apperr.CodeDependency:
		log.Error(ctx, "request failed", err)
	default:
		if m := typed.Message(); m != "" {
			resp.Error = m
		}
		if typed.Code() == apperr.CodeValidation {
			resp.Details = typed.Details()
		}
	}
	writeJSON(w, meta.HTTPStatus, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// money renders an amount the way every response does: fixed two decimals.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func numericString(n pgtype.Numeric) string {
	return money(database.NumericToDecimal(n))
}

// pathParam returns the unescaped chi URL parameter.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// queryLimit parses ?limit= clamped to [1, max], def when absent or invalid.
func queryLimit(r *http.Request, def, max int) int {
	limit := def
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

// claimsOrFail returns the authenticated claims, writing 401 when absent.
func claimsOrFail(ctx context.Context, log *logger.Logger, w http.ResponseWriter) *auth.Claims {
	claims := middleware.ClaimsFromContext(ctx)
	if claims == nil {
		writeError(ctx, log, w, apperr.New(apperr.CodeUnauthorized, "not authenticated"))
	}
	return claims
}

// resolveProfile picks the requested profile, defaulting to the user's own.
// Only managers may act on another profile.
func resolveProfile(claims *auth.Claims, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		requested = claims.Profile
	}
	if requested == "" {
		return "", apperr.New(apperr.CodeValidation, "profile is required")
	}
	if requested != claims.Profile && claims.Role != enum.UserRoleManager {
		return "", errForbiddenProfile
	}
	return requested, nil
}
