package terminal

import (
	"context"

	"github.com/kiwari-pos/tablepos/internal/backend"
	"github.com/shopspring/decimal"
)

// ShiftState is the lifecycle of the terminal's cash shift.
type ShiftState string

const (
	NoShift     ShiftState = "NoShift"
	ShiftOpen   ShiftState = "Open"
	ShiftClosed ShiftState = "Closed"
)

// ShiftInfo is a read-only view of the current shift.
type ShiftInfo struct {
	State ShiftState `json:"state"`
	ID    string     `json:"id"`
}

func (s *Session) Shift() ShiftInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ShiftInfo{State: s.shiftState, ID: s.shiftID}
}

// OpenShift opens a shift with the given float. If the backend already has
// an open shift for the profile, that shift is adopted and no open call is
// made.
func (s *Session) OpenShift(ctx context.Context, openingCash decimal.Decimal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if openingCash.IsNegative() {
		return "", ErrInvalidAmount
	}
	if s.shiftState != NoShift {
		return "", ErrShiftAlreadyOpen
	}

	ctx = s.ctx(ctx)
	st, err := s.backend.GetSessionState(ctx, s.profile)
	if err != nil {
		s.metrics.ObserveOperation("open_shift", err)
		return "", err
	}
	s.applySessionState(st)

	if st.OpenShiftID != "" {
		s.shiftState = ShiftOpen
		s.shiftID = st.OpenShiftID
		s.metrics.ObserveOperation("open_shift", nil)
		s.log.Info(s.log.WithField(ctx, "shift_id", s.shiftID), "adopted existing open shift")
		s.notify(ctx, SeverityInfo, "A shift is already open for "+s.profile+"; continuing it")
		s.refreshTablesQuiet(ctx)
		return s.shiftID, nil
	}

	id, err := s.backend.OpenShift(ctx, s.profile, openingCash)
	s.metrics.ObserveOperation("open_shift", err)
	if err != nil {
		return "", err
	}
	s.shiftState = ShiftOpen
	s.shiftID = id
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"shift_id":     id,
		"opening_cash": openingCash.StringFixed(2),
	}), "shift opened")
	s.refreshTablesQuiet(ctx)
	return id, nil
}

// ShiftSummary fetches the aggregate of invoices recorded against the open shift.
func (s *Session) ShiftSummary(ctx context.Context) (backend.ShiftSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shiftState != ShiftOpen {
		return backend.ShiftSummary{}, ErrNoOpenShift
	}
	return s.backend.ShiftSummary(s.ctx(ctx), s.shiftID)
}

// CloseShift fetches the shift summary, closes the shift, and resets the
// session to NoShift. Any failure leaves the shift open locally.
func (s *Session) CloseShift(ctx context.Context) (backend.ShiftSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shiftState != ShiftOpen {
		return backend.ShiftSummary{}, ErrNoOpenShift
	}
	ctx = s.log.WithField(s.ctx(ctx), "shift_id", s.shiftID)

	summary, err := s.backend.ShiftSummary(ctx, s.shiftID)
	if err != nil {
		s.metrics.ObserveOperation("close_shift", err)
		return backend.ShiftSummary{}, err
	}

	closed, err := s.backend.CloseShift(ctx, s.shiftID)
	s.metrics.ObserveOperation("close_shift", err)
	if err != nil {
		return backend.ShiftSummary{}, err
	}
	if closed.ShiftID == "" {
		closed = summary
	}

	s.shiftState = ShiftClosed
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"invoice_count": closed.InvoiceCount,
		"total_sales":   closed.TotalSales.StringFixed(2),
	}), "shift closed")
	s.reset()
	return closed, nil
}
