package terminal

import (
	"context"
	"sync"

	"github.com/kiwari-pos/tablepos/internal/apperr"
	"github.com/kiwari-pos/tablepos/internal/backend"
	"github.com/shopspring/decimal"
)

// fakeBackend keeps just enough server state to exercise the session.
type fakeBackend struct {
	mu sync.Mutex

	calls []string

	openShiftID string
	nextShiftID string
	tables      map[string]string
	order       []string
	fired       map[string][]backend.OrderLine
	items       map[string]backend.Item
	invoices    map[string]backend.Invoice

	fireErr      error
	firedLoadErr error
	transferErr  error
	invoiceErr   error
	closeErr     error
	summaryErr   error
	statusErr    error

	lastFire    backend.FireRequest
	lastInvoice backend.InvoiceRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nextShiftID: "shift-new",
		tables: map[string]string{
			"T1": "Available",
			"T2": "Available",
			"T3": "Occupied",
		},
		order:    []string{"T1", "T2", "T3"},
		fired:    map[string][]backend.OrderLine{},
		items:    map[string]backend.Item{},
		invoices: map[string]backend.Invoice{},
	}
}

func (f *fakeBackend) record(op string) {
	f.calls = append(f.calls, op)
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeBackend) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) GetSessionState(_ context.Context, profile string) (backend.SessionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get_session_state")
	return backend.SessionState{
		Profile:      profile,
		Company:      "Acme Dining",
		OpenShiftID:  f.openShiftID,
		PaymentModes: []string{"Card", "Cash"},
	}, nil
}

func (f *fakeBackend) OpenShift(_ context.Context, _ string, _ decimal.Decimal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("open_shift")
	if f.openShiftID != "" {
		return "", apperr.New(apperr.CodeRejected, "shift already open")
	}
	f.openShiftID = f.nextShiftID
	return f.openShiftID, nil
}

func (f *fakeBackend) CloseShift(_ context.Context, id string) (backend.ShiftSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("close_shift")
	if f.closeErr != nil {
		return backend.ShiftSummary{}, f.closeErr
	}
	f.openShiftID = ""
	return backend.ShiftSummary{ShiftID: id, Status: "CLOSED", InvoiceCount: len(f.invoices)}, nil
}

func (f *fakeBackend) ShiftSummary(_ context.Context, id string) (backend.ShiftSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("shift_summary")
	if f.summaryErr != nil {
		return backend.ShiftSummary{}, f.summaryErr
	}
	total := decimal.Zero
	for _, inv := range f.invoices {
		total = total.Add(inv.GrandTotal)
	}
	return backend.ShiftSummary{ShiftID: id, InvoiceCount: len(f.invoices), TotalSales: total}, nil
}

func (f *fakeBackend) ListTables(context.Context) ([]backend.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list_tables")
	out := make([]backend.Table, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, backend.Table{Name: name, Status: f.tables[name]})
	}
	return out, nil
}

func (f *fakeBackend) SetTableStatus(_ context.Context, table, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("set_table_status")
	if f.statusErr != nil {
		return f.statusErr
	}
	if _, ok := f.tables[table]; !ok {
		return apperr.New(apperr.CodeNotFound, "table not found")
	}
	f.tables[table] = status
	return nil
}

func (f *fakeBackend) TransferTable(_ context.Context, from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("transfer_table")
	if f.transferErr != nil {
		return f.transferErr
	}
	if f.tables[to] != "Available" {
		return apperr.New(apperr.CodeRejected, "table "+to+" is not available")
	}
	f.fired[to] = f.fired[from]
	delete(f.fired, from)
	f.tables[from] = "Available"
	f.tables[to] = "Occupied"
	return nil
}

func (f *fakeBackend) GetFiredLines(_ context.Context, table string) ([]backend.OrderLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get_fired_lines")
	if f.firedLoadErr != nil {
		return nil, f.firedLoadErr
	}
	return append([]backend.OrderLine(nil), f.fired[table]...), nil
}

func (f *fakeBackend) FireLines(_ context.Context, req backend.FireRequest) (backend.FireResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("fire_lines")
	if f.fireErr != nil {
		return backend.FireResult{}, f.fireErr
	}
	f.lastFire = req
	f.fired[req.Table] = append(f.fired[req.Table], req.Lines...)
	f.tables[req.Table] = "Occupied"
	return backend.FireResult{TicketID: "kot-1", Table: req.Table, Customer: req.Customer, Lines: len(req.Lines)}, nil
}

func (f *fakeBackend) LookupItemByCode(_ context.Context, code string) (backend.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("lookup_item_by_code")
	item, ok := f.items[code]
	if !ok {
		return backend.Item{}, apperr.New(apperr.CodeNotFound, "item not found")
	}
	return item, nil
}

func (f *fakeBackend) CreateInvoice(_ context.Context, req backend.InvoiceRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create_invoice")
	if f.invoiceErr != nil {
		return "", f.invoiceErr
	}
	f.lastInvoice = req
	id := "inv-" + req.Table
	total := decimal.Zero
	for _, l := range f.fired[req.Table] {
		total = total.Add(l.Rate.Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	f.invoices[id] = backend.Invoice{ID: id, Table: req.Table, Customer: req.Customer, GrandTotal: total, Lines: f.fired[req.Table]}
	delete(f.fired, req.Table)
	f.tables[req.Table] = "Available"
	return id, nil
}

func (f *fakeBackend) GetInvoice(_ context.Context, id string) (backend.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get_invoice")
	inv, ok := f.invoices[id]
	if !ok {
		return backend.Invoice{}, apperr.New(apperr.CodeNotFound, "invoice not found")
	}
	return inv, nil
}

func (f *fakeBackend) ListRecentInvoices(_ context.Context, limit int) ([]backend.InvoiceSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list_recent_invoices")
	out := []backend.InvoiceSummary{}
	for _, inv := range f.invoices {
		out = append(out, backend.InvoiceSummary{ID: inv.ID, Table: inv.Table, GrandTotal: inv.GrandTotal})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// recordingNotifier collects notices and receipts.
type recordingNotifier struct {
	mu       sync.Mutex
	notices  []Notice
	receipts []Settlement
}

func (r *recordingNotifier) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) Receipt(_ context.Context, s Settlement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts = append(r.receipts, s)
}

func (r *recordingNotifier) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}
