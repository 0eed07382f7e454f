// Package terminal owns the state of one POS terminal: the shift, the table
// list, the active table and its cart.
//
// A Session serializes every operation, including its backend round trip,
// so no operation ever observes another's partial state.
package terminal

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kiwari-pos/tablepos/internal/apperr"
	"github.com/kiwari-pos/tablepos/internal/backend"
	"github.com/kiwari-pos/tablepos/internal/cart"
	"github.com/kiwari-pos/tablepos/internal/enum"
	"github.com/kiwari-pos/tablepos/internal/logger"
	"github.com/kiwari-pos/tablepos/internal/metrics"
)

// Errors returned when an operation's preconditions are not met. No backend
// call is made when one of these is returned.
var (
	ErrNoActiveTable    = apperr.New(apperr.CodeValidation, "no table selected")
	ErrEmptyCart        = apperr.New(apperr.CodeValidation, "cart is empty")
	ErrUnfiredLines     = apperr.New(apperr.CodeValidation, "send pending items to the kitchen before checkout")
	ErrTableUnavailable = apperr.New(apperr.CodeValidation, "destination table is not available")
	ErrSameTable        = apperr.New(apperr.CodeValidation, "destination is the current table")
	ErrUnknownTable     = apperr.New(apperr.CodeValidation, "unknown table")
	ErrInvalidStatus    = apperr.New(apperr.CodeValidation, "invalid table status")
	ErrShiftAlreadyOpen = apperr.New(apperr.CodeValidation, "shift already open")
	ErrNoOpenShift      = apperr.New(apperr.CodeValidation, "no open shift")
	ErrInvalidAmount    = apperr.New(apperr.CodeValidation, "amount must not be negative")
	ErrEmptyCustomer    = apperr.New(apperr.CodeValidation, "customer is required")
	ErrNoLastInvoice    = apperr.New(apperr.CodeNotFound, "no invoice settled yet")
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notice is an operator-facing message.
type Notice struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Notifier presents notices to the operator.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// ReceiptSink receives each settlement for receipt formatting.
type ReceiptSink interface {
	Receipt(ctx context.Context, s Settlement)
}

type Options struct {
	Backend         backend.Backend
	Profile         string
	DefaultCustomer string
	Notifier        Notifier
	Receipts        ReceiptSink
	Logger          *logger.Logger
	Metrics         *metrics.Terminal
	RecentLimit     int
	Now             func() time.Time
}

type Session struct {
	mu sync.Mutex

	backend     backend.Backend
	notifier    Notifier
	receipts    ReceiptSink
	log         *logger.Logger
	metrics     *metrics.Terminal
	now         func() time.Time
	recentLimit int

	profile         string
	company         string
	paymentModes    []string
	defaultCustomer string

	shiftState    ShiftState
	shiftID       string
	customer      string
	cart          *cart.Cart
	tables        []backend.Table
	activeTable   string
	lastInvoiceID string
}

func New(opts Options) *Session {
	if opts.DefaultCustomer == "" {
		opts.DefaultCustomer = enum.DefaultCustomer
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 20
	}
	return &Session{
		backend:         opts.Backend,
		notifier:        opts.Notifier,
		receipts:        opts.Receipts,
		log:             opts.Logger,
		metrics:         opts.Metrics,
		now:             opts.Now,
		recentLimit:     opts.RecentLimit,
		profile:         opts.Profile,
		defaultCustomer: opts.DefaultCustomer,
		shiftState:      NoShift,
		customer:        opts.DefaultCustomer,
		cart:            cart.New(),
	}
}

// Start reads the profile's session state and adopts an open shift if the
// backend reports one.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.backend.GetSessionState(ctx, s.profile)
	s.metrics.ObserveOperation("start", err)
	if err != nil {
		return err
	}
	s.applySessionState(st)
	if st.OpenShiftID != "" {
		s.shiftState = ShiftOpen
		s.shiftID = st.OpenShiftID
		s.log.Info(s.log.WithField(ctx, "shift_id", s.shiftID), "adopted open shift")
		if err := s.refreshTablesLocked(ctx); err != nil {
			s.log.Warn(ctx, "table list unavailable at start: "+err.Error())
		}
	}
	return nil
}

func (s *Session) applySessionState(st backend.SessionState) {
	if st.Profile != "" {
		s.profile = st.Profile
	}
	if st.Company != "" {
		s.company = st.Company
	}
	if len(st.PaymentModes) > 0 {
		s.paymentModes = append([]string(nil), st.PaymentModes...)
	}
}

// SelectCustomer sets the customer used for firing and invoicing.
func (s *Session) SelectCustomer(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyCustomer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customer = name
	return nil
}

// reset returns the session to NoShift with nothing selected.
func (s *Session) reset() {
	s.shiftState = NoShift
	s.shiftID = ""
	s.cart.Clear()
	s.tables = nil
	s.activeTable = ""
	s.lastInvoiceID = ""
	s.customer = s.defaultCustomer
}

func (s *Session) notify(ctx context.Context, sev Severity, msg string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, Notice{Severity: sev, Message: msg})
}

func (s *Session) ctx(ctx context.Context) context.Context {
	ctx = s.log.WithProfile(ctx, s.profile)
	if s.activeTable != "" {
		ctx = s.log.WithTable(ctx, s.activeTable)
	}
	return ctx
}

// --- Snapshots ---

// State is a read-only view of the whole session.
type State struct {
	Profile       string          `json:"profile"`
	Company       string          `json:"company"`
	PaymentModes  []string        `json:"payment_modes"`
	Shift         ShiftState      `json:"shift_state"`
	ShiftID       string          `json:"shift_id"`
	ActiveTable   string          `json:"active_table"`
	Customer      string          `json:"customer"`
	Cart          cart.Snapshot   `json:"cart"`
	Tables        []backend.Table `json:"tables"`
	LastInvoiceID string          `json:"last_invoice_id"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Profile:       s.profile,
		Company:       s.company,
		PaymentModes:  append([]string(nil), s.paymentModes...),
		Shift:         s.shiftState,
		ShiftID:       s.shiftID,
		ActiveTable:   s.activeTable,
		Customer:      s.customer,
		Cart:          s.cart.Snapshot(),
		Tables:        append([]backend.Table(nil), s.tables...),
		LastInvoiceID: s.lastInvoiceID,
	}
}

func (s *Session) Cart() cart.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Snapshot()
}

func (s *Session) Tables() []backend.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.Table(nil), s.tables...)
}

func (s *Session) LastInvoiceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInvoiceID
}
