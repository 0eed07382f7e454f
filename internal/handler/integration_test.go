//go:build integration

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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiwari-pos/tablepos/internal/backend"
	"github.com/kiwari-pos/tablepos/internal/config"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/kiwari-pos/tablepos/internal/logger"
	"github.com/kiwari-pos/tablepos/internal/router"
	"github.com/kiwari-pos/tablepos/internal/terminal"
	"github.com/kiwari-pos/tablepos/internal/ws"
	"github.com/kiwari-pos/tablepos/migrations"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow drives a terminal session through the HTTP client
// against the full router and a real PostgreSQL database.
func TestIntegrationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	if err := migrations.Up(connStr); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	seedFixtures(t, ctx, pool)

	cfg := &config.Config{
		App: config.AppConfig{Env: config.AppEnvDev},
		JWT: config.JWTConfig{
			Secret:     "integration-test-secret",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: time.Hour,
		},
	}
	hub := ws.NewHub(logger.Nop())
	go hub.Run(ctx)

	r := router.New(cfg, router.Deps{
		Queries: database.New(pool),
		Pool:    pool,
		Hub:     hub,
	})
	server := httptest.NewServer(r)
	defer server.Close()

	client := backend.NewClient(backend.ClientOptions{
		BaseURL:  server.URL,
		Email:    "cashier@test.com",
		Password: "password123",
		Timeout:  5 * time.Second,
	})
	user, err := client.Login(ctx)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Profile != "Main Hall" {
		t.Fatalf("user profile: got %q, want Main Hall", user.Profile)
	}

	session := terminal.New(terminal.Options{Backend: client, Profile: user.Profile})
	if err := session.Start(ctx); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if got := session.Shift().State; got != terminal.NoShift {
		t.Fatalf("shift state at start: got %s, want NoShift", got)
	}

	// --- Open shift ---
	shiftID, err := session.OpenShift(ctx, decimal.RequireFromString("100.00"))
	if err != nil {
		t.Fatalf("open shift: %v", err)
	}
	if len(session.Tables()) != 3 {
		t.Fatalf("tables after open: got %d, want 3", len(session.Tables()))
	}

	// --- Enter table and scan items ---
	if err := session.EnterTable(ctx, "T1", ""); err != nil {
		t.Fatalf("enter table: %v", err)
	}
	if err := session.HandleScan(ctx, "8991002100011"); err != nil {
		t.Fatalf("scan burger: %v", err)
	}
	if err := session.HandleScan(ctx, "SODA"); err != nil {
		t.Fatalf("scan soda by item code: %v", err)
	}
	if err := session.ChangeQuantity(1, 1); err != nil {
		t.Fatalf("change quantity: %v", err)
	}
	if err := session.SetDiscount(0, decimal.RequireFromString("10")); err != nil {
		t.Fatalf("set discount: %v", err)
	}

	// --- Fire to the kitchen ---
	fired, err := session.Fire(ctx)
	if err != nil {
		t.Fatalf("fire: %v", err)
	}
	if fired.TicketID == "" || fired.Lines != 2 {
		t.Fatalf("fire result: %+v", fired)
	}
	snap := session.Cart()
	if snap.Unfired != 0 || len(snap.Lines) != 2 {
		t.Fatalf("cart after fire: %+v", snap)
	}
	// Burger 25.00 at 10% off plus 2 x 3.50.
	wantTotal := decimal.RequireFromString("29.50")
	if !snap.Total.Equal(wantTotal) {
		t.Fatalf("cart total: got %s, want %s", snap.Total, wantTotal)
	}

	// --- Transfer to another table ---
	if err := session.Transfer(ctx, "T2"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if st := session.State(); st.ActiveTable != "T2" || len(st.Cart.Lines) != 2 {
		t.Fatalf("state after transfer: %+v", st)
	}

	// --- Checkout ---
	settlement, err := session.Checkout(ctx, terminal.CheckoutRequest{
		ModeOfPayment: "Cash",
		AmountPaid:    decimal.RequireFromString("50"),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !settlement.Change.Equal(decimal.RequireFromString("20.50")) {
		t.Fatalf("change: got %s, want 20.50", settlement.Change)
	}

	inv, err := session.Reprint(ctx)
	if err != nil {
		t.Fatalf("reprint: %v", err)
	}
	if inv.Table != "T2" || !inv.GrandTotal.Equal(wantTotal) || len(inv.Lines) != 2 {
		t.Fatalf("invoice: %+v", inv)
	}

	var status string
	if err := pool.QueryRow(ctx, `SELECT status FROM restaurant_tables WHERE name = 'T2'`).Scan(&status); err != nil {
		t.Fatalf("read table status: %v", err)
	}
	if status != "Available" {
		t.Fatalf("T2 status after checkout: got %s, want Available", status)
	}
	var drafts int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM kitchen_tickets WHERE status = 'DRAFT'`).Scan(&drafts); err != nil {
		t.Fatalf("count drafts: %v", err)
	}
	if drafts != 0 {
		t.Fatalf("draft tickets after checkout: got %d, want 0", drafts)
	}

	// --- Close shift ---
	summary, err := session.CloseShift(ctx)
	if err != nil {
		t.Fatalf("close shift: %v", err)
	}
	if summary.ShiftID != shiftID || summary.InvoiceCount != 1 {
		t.Fatalf("summary: %+v", summary)
	}
	if !summary.TotalSales.Equal(wantTotal) {
		t.Fatalf("total sales: got %s, want %s", summary.TotalSales, wantTotal)
	}
	var cash *backend.ModeTotal
	for i := range summary.Payments {
		if summary.Payments[i].Mode == "Cash" {
			cash = &summary.Payments[i]
		}
	}
	if cash == nil || !cash.Expected.Equal(decimal.RequireFromString("129.50")) {
		t.Fatalf("cash reconciliation: %+v", summary.Payments)
	}
	if session.Shift().State != terminal.NoShift {
		t.Fatalf("shift state after close: got %s", session.Shift().State)
	}

	// Kitchen accounts cannot reach the money routes.
	resp, err := http.Post(server.URL+"/auth/login", "application/json",
		jsonBody(t, map[string]string{"email": "kitchen@test.com", "password": "password123"}))
	if err != nil {
		t.Fatalf("kitchen login: %v", err)
	}
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		t.Fatalf("decode kitchen login: %v", err)
	}
	resp.Body.Close()
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/invoices", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("kitchen invoices: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("kitchen invoices status: got %d, want 403", resp.StatusCode)
	}
}

func setupPostgresContainer(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pos_test"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}
	return connStr, cleanup
}

func seedFixtures(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO pos_profiles (name, company, price_list) VALUES ('Main Hall', 'Acme Dining', 'Standard Selling')`, nil},
		{`INSERT INTO profile_payment_modes (profile_name, mode_of_payment, account, position) VALUES
			('Main Hall', 'Cash', 'Cash - AD', 0), ('Main Hall', 'Card', 'Bank - AD', 1)`, nil},
		{`INSERT INTO customers (name) VALUES ('Walk-in')`, nil},
		{`INSERT INTO restaurant_tables (name, position) VALUES ('T1', 0), ('T2', 1), ('T3', 2)`, nil},
		{`INSERT INTO items (code, name, standard_rate) VALUES ('BRG', 'Burger', 20.00), ('SODA', 'Soda', 3.50)`, nil},
		{`INSERT INTO item_barcodes (barcode, item_code) VALUES ('8991002100011', 'BRG')`, nil},
		{`INSERT INTO item_prices (price_list, item_code, rate) VALUES ('Standard Selling', 'BRG', 25.00)`, nil},
		{`INSERT INTO users (profile_name, email, hashed_password, full_name, role) VALUES
			('Main Hall', 'cashier@test.com', $1, 'Test Cashier', 'CASHIER'),
			('Main Hall', 'kitchen@test.com', $1, 'Test Kitchen', 'KITCHEN')`, []any{string(hashed)}},
	}
	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s.sql, s.args...); err != nil {
			t.Fatalf("seed: %v\n%s", err, s.sql)
		}
	}
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(b)
}
