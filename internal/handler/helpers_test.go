package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/tablepos/internal/auth"
	"github.com/kiwari-pos/tablepos/internal/middleware"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

// caller is the authenticated user a test acts as.
type caller struct {
	ID      uuid.UUID
	Profile string
	Role    string
}

var cashier = caller{ID: uuid.MustParse("6f1c2e1a-4f34-4d8e-9a57-0c1f6d3b2a10"), Profile: "Main Hall", Role: "CASHIER"}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

// authedRouter mounts register behind the bearer middleware.
func authedRouter(register func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		register(r)
	})
	return r
}

func doRequest(t *testing.T, router http.Handler, as *caller, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, err := auth.GenerateToken(testSecret, as.ID, as.Profile, as.Role, time.Minute)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var resp []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

// recordingPublisher captures websocket events.
type recordingPublisher struct {
	events []publishedEvent
}

type publishedEvent struct {
	Room    string
	Type    string
	Payload any
}

func (p *recordingPublisher) Publish(_ context.Context, room, eventType string, payload any) {
	p.events = append(p.events, publishedEvent{Room: room, Type: eventType, Payload: payload})
}
