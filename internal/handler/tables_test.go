package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/kiwari-pos/tablepos/internal/handler"
	"github.com/kiwari-pos/tablepos/internal/service"
	"github.com/kiwari-pos/tablepos/internal/ws"
)

// --- Mock table store ---

type mockTableStore struct {
	tables []database.RestaurantTable
	lines  map[string][]database.ListDraftTicketLinesRow
}

func (m *mockTableStore) ListTables(_ context.Context) ([]database.RestaurantTable, error) {
	return m.tables, nil
}

func (m *mockTableStore) ListDraftTicketLines(_ context.Context, tableName string) ([]database.ListDraftTicketLinesRow, error) {
	return m.lines[tableName], nil
}

// --- Mock table service ---

type mockTableService struct {
	statusCalls []string
	statusErr   error
	transferErr error
}

func (m *mockTableService) SetStatus(_ context.Context, name, status string) (*database.RestaurantTable, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	m.statusCalls = append(m.statusCalls, name+"="+status)
	return &database.RestaurantTable{Name: name, Status: status}, nil
}

func (m *mockTableService) Transfer(_ context.Context, from, to string) (*service.TransferResult, error) {
	if m.transferErr != nil {
		return nil, m.transferErr
	}
	return &service.TransferResult{
		From:  database.RestaurantTable{Name: from, Status: "Available"},
		To:    database.RestaurantTable{Name: to, Status: "Occupied"},
		Moved: 2,
	}, nil
}

// --- Mock kitchen service ---

type mockKitchenService struct {
	requests []service.FireRequest
	err      error
}

func (m *mockKitchenService) Fire(_ context.Context, req service.FireRequest) (*service.FireResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.requests = append(m.requests, req)
	customer := req.Customer
	if customer == "" {
		customer = "Walk-in"
	}
	ticket := database.KitchenTicket{
		ID:          uuid.New(),
		ProfileName: req.Profile,
		TableName:   req.Table,
		Customer:    customer,
		Status:      "DRAFT",
		CreatedBy:   req.CreatedBy,
	}
	items := make([]database.KitchenTicketItem, 0, len(req.Lines))
	for i, l := range req.Lines {
		items = append(items, database.KitchenTicketItem{
			ID:                 uuid.New(),
			TicketID:           ticket.ID,
			ItemCode:           l.ItemCode,
			ItemName:           l.ItemName,
			Rate:               database.DecimalToNumeric(l.Rate),
			Qty:                l.Qty,
			DiscountPercentage: database.DecimalToNumeric(l.DiscountPercentage),
			Note:               l.Note,
			Position:           int32(i),
		})
	}
	return &service.FireResult{Ticket: ticket, Items: items}, nil
}

type tableFixture struct {
	store   *mockTableStore
	tables  *mockTableService
	kitchen *mockKitchenService
	pub     *recordingPublisher
	router  http.Handler
}

func newTableFixture() *tableFixture {
	f := &tableFixture{
		store: &mockTableStore{
			tables: []database.RestaurantTable{
				{Name: "T1", Status: "Occupied", Position: 1},
				{Name: "T2", Status: "Available", Position: 2},
			},
			lines: map[string][]database.ListDraftTicketLinesRow{
				"T1": {
					{ItemCode: "BRG", ItemName: "Burger", Rate: makeNumeric("12.5"), Qty: 2, DiscountPercentage: makeNumeric("0")},
					{ItemCode: "SOD", ItemName: "Soda", Rate: makeNumeric("3"), Qty: 1, DiscountPercentage: makeNumeric("50"), Note: "no ice"},
				},
			},
		},
		tables:  &mockTableService{},
		kitchen: &mockKitchenService{},
		pub:     &recordingPublisher{},
	}
	f.router = authedRouter(func(r chi.Router) {
		r.Route("/tables", handler.NewTableHandler(f.store, f.tables, f.kitchen, f.pub, nil).RegisterRoutes)
	})
	return f
}

func TestListTables(t *testing.T) {
	f := newTableFixture()

	rr := doRequest(t, f.router, &cashier, "GET", "/tables", nil)
	expectStatus(t, rr, http.StatusOK)

	tables := decodeList(t, rr)
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}
	if tables[0]["name"] != "T1" || tables[0]["status"] != "Occupied" {
		t.Errorf("first table = %v", tables[0])
	}
}

func TestTableLines(t *testing.T) {
	f := newTableFixture()

	rr := doRequest(t, f.router, &cashier, "GET", "/tables/T1/lines", nil)
	expectStatus(t, rr, http.StatusOK)

	lines := decodeList(t, rr)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["rate"] != "12.50" || lines[0]["qty"] != float64(2) {
		t.Errorf("first line = %v", lines[0])
	}
	if lines[1]["discount_percentage"] != "50.00" || lines[1]["note"] != "no ice" {
		t.Errorf("second line = %v", lines[1])
	}
	if _, ok := lines[0]["amount"]; ok {
		t.Error("fired lines should not carry an amount")
	}
}

func TestTableLines_EmptyIsArray(t *testing.T) {
	f := newTableFixture()

	rr := doRequest(t, f.router, &cashier, "GET", "/tables/T2/lines", nil)
	expectStatus(t, rr, http.StatusOK)
	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestSetTableStatus(t *testing.T) {
	f := newTableFixture()

	rr := doRequest(t, f.router, &cashier, "PUT", "/tables/T2/status", map[string]string{"status": "Reserved"})
	expectStatus(t, rr, http.StatusOK)

	if len(f.tables.statusCalls) != 1 || f.tables.statusCalls[0] != "T2=Reserved" {
		t.Errorf("calls = %v", f.tables.statusCalls)
	}
	if len(f.pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.pub.events))
	}
	if ev := f.pub.events[0]; ev.Room != "Main Hall" || ev.Type != ws.EventTableUpdated {
		t.Errorf("event = %+v", ev)
	}
}

func TestSetTableStatus_EscapedName(t *testing.T) {
	f := newTableFixture()

	rr := doRequest(t, f.router, &cashier, "PUT", "/tables/Patio%201/status", map[string]string{"status": "Dirty"})
	expectStatus(t, rr, http.StatusOK)
	if f.tables.statusCalls[0] != "Patio 1=Dirty" {
		t.Errorf("calls = %v", f.tables.statusCalls)
	}
}

func TestSetTableStatus_Validation(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"unknown status", map[string]string{"status": "Broken"}},
		{"missing status", map[string]string{}},
		{"unknown field", map[string]string{"status": "Dirty", "colour": "red"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTableFixture()
			rr := doRequest(t, f.router, &cashier, "PUT", "/tables/T1/status", tt.body)
			expectStatus(t, rr, http.StatusBadRequest)
			if len(f.tables.statusCalls) != 0 || len(f.pub.events) != 0 {
				t.Error("nothing should happen on invalid input")
			}
		})
	}
}

func TestSetTableStatus_NotFound(t *testing.T) {
	f := newTableFixture()
	f.tables.statusErr = service.ErrTableNotFound

	rr := doRequest(t, f.router, &cashier, "PUT", "/tables/T9/status", map[string]string{"status": "Dirty"})
	expectStatus(t, rr, http.StatusNotFound)
	if len(f.pub.events) != 0 {
		t.Error("no event on failure")
	}
}

func TestTransferTable(t *testing.T) {
	f := newTableFixture()

	rr := doRequest(t, f.router, &cashier, "POST", "/tables/T1/transfer", map[string]string{"to": "T2"})
	expectStatus(t, rr, http.StatusOK)

	resp := decodeResponse(t, rr)
	if resp["moved"] != float64(2) {
		t.Errorf("moved = %v", resp["moved"])
	}
	to, _ := resp["to"].(map[string]any)
	if to["name"] != "T2" || to["status"] != "Occupied" {
		t.Errorf("to = %v", resp["to"])
	}
	if len(f.pub.events) != 1 || f.pub.events[0].Type != ws.EventTableMoved {
		t.Errorf("events = %+v", f.pub.events)
	}
}

func TestTransferTable_Rejected(t *testing.T) {
	f := newTableFixture()
	f.tables.transferErr = service.ErrTableNotAvailable

	rr := doRequest(t, f.router, &cashier, "POST", "/tables/T1/transfer", map[string]string{"to": "T2"})
	expectStatus(t, rr, http.StatusConflict)
	if resp := decodeResponse(t, rr); resp["code"] != "REJECTED" {
		t.Errorf("code = %v", resp["code"])
	}
}

func TestTransferTable_MissingTarget(t *testing.T) {
	f := newTableFixture()

	rr := doRequest(t, f.router, &cashier, "POST", "/tables/T1/transfer", map[string]string{})
	expectStatus(t, rr, http.StatusBadRequest)

	resp := decodeResponse(t, rr)
	details, _ := resp["details"].(map[string]any)
	if details["transferRequest.to"] != "is required" {
		t.Errorf("details = %v", resp["details"])
	}
}

func TestFireKitchenTicket(t *testing.T) {
	f := newTableFixture()

	body := map[string]any{
		"customer": "Dana",
		"lines": []map[string]any{
			{"item_code": " BRG ", "item_name": "Burger", "rate": "12.50", "qty": 2, "discount_percentage": "0"},
			{"item_code": "SOD", "rate": 3, "qty": 1, "note": "no ice", "discount_percentage": "50"},
		},
	}
	rr := doRequest(t, f.router, &cashier, "POST", "/tables/T2/kots", body)
	expectStatus(t, rr, http.StatusCreated)

	resp := decodeResponse(t, rr)
	if resp["table"] != "T2" || resp["customer"] != "Dana" || resp["lines"] != float64(2) {
		t.Errorf("resp = %v", resp)
	}

	if len(f.kitchen.requests) != 1 {
		t.Fatalf("expected 1 fire call, got %d", len(f.kitchen.requests))
	}
	req := f.kitchen.requests[0]
	if req.Profile != "Main Hall" || req.CreatedBy != cashier.ID || req.Table != "T2" {
		t.Errorf("request = %+v", req)
	}
	if req.Lines[0].ItemCode != "BRG" {
		t.Errorf("item code not trimmed: %q", req.Lines[0].ItemCode)
	}
	if !req.Lines[1].DiscountPercentage.Equal(dec("50")) || !req.Lines[1].Rate.Equal(dec("3")) {
		t.Errorf("second line = %+v", req.Lines[1])
	}

	if len(f.pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.pub.events))
	}
	ev := f.pub.events[0]
	if ev.Room != "Main Hall" || ev.Type != ws.EventTicketFired {
		t.Errorf("event = %+v", ev)
	}
}

func TestFireKitchenTicket_Validation(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"no lines", map[string]any{"lines": []any{}}},
		{"missing lines", map[string]any{"customer": "Dana"}},
		{"zero qty", map[string]any{"lines": []map[string]any{{"item_code": "BRG", "qty": 0}}}},
		{"missing item code", map[string]any{"lines": []map[string]any{{"qty": 1}}}},
		{"bad rate", map[string]any{"lines": []map[string]any{{"item_code": "BRG", "qty": 1, "rate": "abc"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTableFixture()
			rr := doRequest(t, f.router, &cashier, "POST", "/tables/T1/kots", tt.body)
			expectStatus(t, rr, http.StatusBadRequest)
			if len(f.kitchen.requests) != 0 {
				t.Error("service must not be called")
			}
		})
	}
}

func TestFireKitchenTicket_ServiceRejects(t *testing.T) {
	f := newTableFixture()
	f.kitchen.err = service.ErrItemNotFound

	body := map[string]any{"lines": []map[string]any{{"item_code": "NOPE", "qty": 1}}}
	rr := doRequest(t, f.router, &cashier, "POST", "/tables/T1/kots", body)
	expectStatus(t, rr, http.StatusNotFound)
	if len(f.pub.events) != 0 {
		t.Error("no event on failure")
	}
}

func TestTables_RequireAuth(t *testing.T) {
	f := newTableFixture()
	rr := doRequest(t, f.router, nil, "GET", "/tables", nil)
	expectStatus(t, rr, http.StatusUnauthorized)
}
