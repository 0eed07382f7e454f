package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// memStore keeps rows in maps and satisfies every store interface of the
// package. Writes land directly; tests assert on mockTx.committed to tell
// whether the transaction would have kept them.
type memStore struct {
	profiles  map[string]database.PosProfile
	modes     map[string][]database.ProfilePaymentMode
	items     map[string]database.Item
	customers map[string]bool
	tables    map[string]database.RestaurantTable

	entries  map[uuid.UUID]database.OpeningEntry
	balances map[uuid.UUID][]database.OpeningBalance

	tickets     []database.KitchenTicket
	ticketItems []database.KitchenTicketItem

	invoices     []database.Invoice
	invoiceItems []database.CreateInvoiceItemParams
	payments     []database.CreateInvoicePaymentParams

	closings        []database.CreateClosingEntryParams
	reconciliations []database.CreateClosingReconciliationParams

	locked []string

	createOpeningErr error
	createTicketErr  error
	createInvoiceErr error
	moveErr          error
}

func newMemStore() *memStore {
	return &memStore{
		profiles: map[string]database.PosProfile{
			"Main Hall": {Name: "Main Hall", Company: "Acme Dining", PriceList: "Standard Selling"},
		},
		modes: map[string][]database.ProfilePaymentMode{
			"Main Hall": {
				{ProfileName: "Main Hall", ModeOfPayment: "Cash", Account: "Cash - AD", Position: 0},
				{ProfileName: "Main Hall", ModeOfPayment: "Card", Account: "Bank - AD", Position: 1},
			},
		},
		items: map[string]database.Item{
			"BRG": {Code: "BRG", Name: "Burger", StandardRate: makeNumeric("12.50"), IsActive: true},
			"SOD": {Code: "SOD", Name: "Soda", StandardRate: makeNumeric("3.00"), IsActive: true},
		},
		customers: map[string]bool{},
		tables: map[string]database.RestaurantTable{
			"T1": {Name: "T1", Status: "Available", Position: 1},
			"T2": {Name: "T2", Status: "Available", Position: 2},
			"T3": {Name: "T3", Status: "Occupied", Position: 3},
		},
		entries:  map[uuid.UUID]database.OpeningEntry{},
		balances: map[uuid.UUID][]database.OpeningBalance{},
	}
}

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := database.NumericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func (m *memStore) GetPOSProfile(_ context.Context, name string) (database.PosProfile, error) {
	p, ok := m.profiles[name]
	if !ok {
		return database.PosProfile{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memStore) ListProfilePaymentModes(_ context.Context, profileName string) ([]database.ProfilePaymentMode, error) {
	return m.modes[profileName], nil
}

func (m *memStore) GetOpenShift(_ context.Context, arg database.GetOpenShiftParams) (database.OpeningEntry, error) {
	for _, e := range m.entries {
		if e.ProfileName == arg.ProfileName && e.UserID == arg.UserID && e.Status == "OPEN" {
			return e, nil
		}
	}
	return database.OpeningEntry{}, pgx.ErrNoRows
}

func (m *memStore) CreateOpeningEntry(_ context.Context, arg database.CreateOpeningEntryParams) (database.OpeningEntry, error) {
	if m.createOpeningErr != nil {
		return database.OpeningEntry{}, m.createOpeningErr
	}
	e := database.OpeningEntry{
		ID:          uuid.New(),
		ProfileName: arg.ProfileName,
		UserID:      arg.UserID,
		Company:     arg.Company,
		Status:      "OPEN",
		PeriodStart: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	m.entries[e.ID] = e
	return e, nil
}

func (m *memStore) CreateOpeningBalance(_ context.Context, arg database.CreateOpeningBalanceParams) error {
	m.balances[arg.OpeningEntryID] = append(m.balances[arg.OpeningEntryID], database.OpeningBalance{
		OpeningEntryID: arg.OpeningEntryID,
		ModeOfPayment:  arg.ModeOfPayment,
		Amount:         arg.Amount,
	})
	return nil
}

func (m *memStore) GetOpeningEntry(_ context.Context, id uuid.UUID) (database.OpeningEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return database.OpeningEntry{}, pgx.ErrNoRows
	}
	return e, nil
}

func (m *memStore) GetOpeningEntryForUpdate(ctx context.Context, id uuid.UUID) (database.OpeningEntry, error) {
	return m.GetOpeningEntry(ctx, id)
}

func (m *memStore) ListOpeningBalances(_ context.Context, id uuid.UUID) ([]database.OpeningBalance, error) {
	return m.balances[id], nil
}

func (m *memStore) GetShiftTotals(_ context.Context, id uuid.UUID) (database.GetShiftTotalsRow, error) {
	grand, net := decimal.Zero, decimal.Zero
	var count, qty int32
	for _, inv := range m.invoices {
		if inv.OpeningEntryID != id {
			continue
		}
		count++
		qty += inv.TotalQty
		grand = grand.Add(database.NumericToDecimal(inv.GrandTotal))
		net = net.Add(database.NumericToDecimal(inv.NetTotal))
	}
	return database.GetShiftTotalsRow{
		InvoiceCount:  count,
		GrandTotal:    database.DecimalToNumeric(grand),
		NetTotal:      database.DecimalToNumeric(net),
		TotalQuantity: qty,
	}, nil
}

func (m *memStore) ListShiftPaymentTotals(_ context.Context, id uuid.UUID) ([]database.ListShiftPaymentTotalsRow, error) {
	inShift := map[uuid.UUID]bool{}
	for _, inv := range m.invoices {
		if inv.OpeningEntryID == id {
			inShift[inv.ID] = true
		}
	}
	sums := map[string]decimal.Decimal{}
	for _, p := range m.payments {
		if inShift[p.InvoiceID] {
			sums[p.ModeOfPayment] = sums[p.ModeOfPayment].Add(database.NumericToDecimal(p.Amount))
		}
	}
	rows := []database.ListShiftPaymentTotalsRow{}
	for mode, amount := range sums {
		rows = append(rows, database.ListShiftPaymentTotalsRow{ModeOfPayment: mode, Amount: database.DecimalToNumeric(amount)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ModeOfPayment < rows[j].ModeOfPayment })
	return rows, nil
}

func (m *memStore) CloseOpeningEntry(_ context.Context, arg database.CloseOpeningEntryParams) (database.OpeningEntry, error) {
	e, ok := m.entries[arg.ID]
	if !ok || e.Status != "OPEN" {
		return database.OpeningEntry{}, pgx.ErrNoRows
	}
	e.Status = "CLOSED"
	e.PeriodEnd = pgtype.Timestamptz{Time: arg.PeriodEnd, Valid: true}
	m.entries[arg.ID] = e
	return e, nil
}

func (m *memStore) CreateClosingEntry(_ context.Context, arg database.CreateClosingEntryParams) (database.ClosingEntry, error) {
	m.closings = append(m.closings, arg)
	return database.ClosingEntry{ID: uuid.New(), OpeningEntryID: arg.OpeningEntryID}, nil
}

func (m *memStore) CreateClosingReconciliation(_ context.Context, arg database.CreateClosingReconciliationParams) error {
	m.reconciliations = append(m.reconciliations, arg)
	return nil
}

func (m *memStore) GetTableForUpdate(_ context.Context, name string) (database.RestaurantTable, error) {
	t, ok := m.tables[name]
	if !ok {
		return database.RestaurantTable{}, pgx.ErrNoRows
	}
	m.locked = append(m.locked, name)
	return t, nil
}

func (m *memStore) UpdateTableStatus(_ context.Context, arg database.UpdateTableStatusParams) (database.RestaurantTable, error) {
	t, ok := m.tables[arg.Name]
	if !ok {
		return database.RestaurantTable{}, pgx.ErrNoRows
	}
	t.Status = arg.Status
	m.tables[arg.Name] = t
	return t, nil
}

func (m *memStore) MoveDraftTickets(_ context.Context, arg database.MoveDraftTicketsParams) (int64, error) {
	if m.moveErr != nil {
		return 0, m.moveErr
	}
	var n int64
	for i := range m.tickets {
		if m.tickets[i].TableName == arg.FromTable && m.tickets[i].Status == "DRAFT" {
			m.tickets[i].TableName = arg.ToTable
			n++
		}
	}
	return n, nil
}

func (m *memStore) EnsureCustomer(_ context.Context, name string) error {
	m.customers[name] = true
	return nil
}

func (m *memStore) GetItemByCode(_ context.Context, code string) (database.Item, error) {
	item, ok := m.items[code]
	if !ok {
		return database.Item{}, pgx.ErrNoRows
	}
	return item, nil
}

func (m *memStore) CreateKitchenTicket(_ context.Context, arg database.CreateKitchenTicketParams) (database.KitchenTicket, error) {
	if m.createTicketErr != nil {
		return database.KitchenTicket{}, m.createTicketErr
	}
	t := database.KitchenTicket{
		ID:          uuid.New(),
		ProfileName: arg.ProfileName,
		TableName:   arg.TableName,
		Customer:    arg.Customer,
		Status:      "DRAFT",
		CreatedBy:   arg.CreatedBy,
		CreatedAt:   time.Now(),
	}
	m.tickets = append(m.tickets, t)
	return t, nil
}

func (m *memStore) CreateKitchenTicketItem(_ context.Context, arg database.CreateKitchenTicketItemParams) (database.KitchenTicketItem, error) {
	item := database.KitchenTicketItem{
		ID:                 uuid.New(),
		TicketID:           arg.TicketID,
		ItemCode:           arg.ItemCode,
		ItemName:           arg.ItemName,
		Rate:               arg.Rate,
		Qty:                arg.Qty,
		DiscountPercentage: arg.DiscountPercentage,
		Note:               arg.Note,
		Position:           arg.Position,
	}
	m.ticketItems = append(m.ticketItems, item)
	return item, nil
}

func (m *memStore) ListDraftTicketLines(_ context.Context, tableName string) ([]database.ListDraftTicketLinesRow, error) {
	draft := map[uuid.UUID]bool{}
	for _, t := range m.tickets {
		if t.TableName == tableName && t.Status == "DRAFT" {
			draft[t.ID] = true
		}
	}
	rows := []database.ListDraftTicketLinesRow{}
	for _, item := range m.ticketItems {
		if draft[item.TicketID] {
			rows = append(rows, database.ListDraftTicketLinesRow{
				ItemCode:           item.ItemCode,
				ItemName:           item.ItemName,
				Rate:               item.Rate,
				Qty:                item.Qty,
				DiscountPercentage: item.DiscountPercentage,
				Note:               item.Note,
			})
		}
	}
	return rows, nil
}

func (m *memStore) CreateInvoice(_ context.Context, arg database.CreateInvoiceParams) (database.Invoice, error) {
	if m.createInvoiceErr != nil {
		return database.Invoice{}, m.createInvoiceErr
	}
	inv := database.Invoice{
		ID:             uuid.New(),
		OpeningEntryID: arg.OpeningEntryID,
		ProfileName:    arg.ProfileName,
		TableName:      arg.TableName,
		Customer:       arg.Customer,
		ModeOfPayment:  arg.ModeOfPayment,
		NetTotal:       arg.NetTotal,
		GrandTotal:     arg.GrandTotal,
		TotalQty:       arg.TotalQty,
		AmountPaid:     arg.AmountPaid,
		ChangeAmount:   arg.ChangeAmount,
		CreatedBy:      arg.CreatedBy,
		CreatedAt:      time.Now(),
	}
	m.invoices = append(m.invoices, inv)
	return inv, nil
}

func (m *memStore) CreateInvoiceItem(_ context.Context, arg database.CreateInvoiceItemParams) error {
	m.invoiceItems = append(m.invoiceItems, arg)
	return nil
}

func (m *memStore) CreateInvoicePayment(_ context.Context, arg database.CreateInvoicePaymentParams) error {
	m.payments = append(m.payments, arg)
	return nil
}

func (m *memStore) SubmitDraftTickets(_ context.Context, arg database.SubmitDraftTicketsParams) (int64, error) {
	var n int64
	for i := range m.tickets {
		if m.tickets[i].TableName == arg.TableName && m.tickets[i].Status == "DRAFT" {
			m.tickets[i].Status = "SUBMITTED"
			m.tickets[i].InvoiceID = arg.InvoiceID
			n++
		}
	}
	return n, nil
}

// --- Service constructors over one shared memStore ---

type testServices struct {
	store   *memStore
	tx      *mockTx
	shift   *ShiftService
	kitchen *KitchenService
	table   *TableService
	invoice *InvoiceService
}

func newTestServices() *testServices {
	store := newMemStore()
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	return &testServices{
		store:   store,
		tx:      tx,
		shift:   NewShiftService(pool, func(db database.DBTX) ShiftStore { return store }, nil),
		kitchen: NewKitchenService(pool, func(db database.DBTX) KitchenStore { return store }, nil),
		table:   NewTableService(pool, func(db database.DBTX) TableStore { return store }, nil),
		invoice: NewInvoiceService(pool, func(db database.DBTX) InvoiceStore { return store }, nil),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
