package terminal

import (
	"context"
	"fmt"

	"github.com/kiwari-pos/tablepos/internal/apperr"
	"github.com/kiwari-pos/tablepos/internal/backend"
	"github.com/kiwari-pos/tablepos/internal/cart"
	"github.com/shopspring/decimal"
)

func (s *Session) AddItem(item cart.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTable == "" {
		return ErrNoActiveTable
	}
	return s.cart.AddItem(item)
}

func (s *Session) ChangeQuantity(index, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTable == "" {
		return ErrNoActiveTable
	}
	return s.cart.ChangeQuantity(index, delta)
}

func (s *Session) SetNote(index int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTable == "" {
		return ErrNoActiveTable
	}
	return s.cart.SetNote(index, text)
}

func (s *Session) SetDiscount(index int, percent decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTable == "" {
		return ErrNoActiveTable
	}
	return s.cart.SetDiscount(index, percent)
}

// Fire sends the unfired lines to the kitchen as one ticket and reloads the
// cart from the backend. With nothing unfired it returns a zero result and
// makes no call.
func (s *Session) Fire(ctx context.Context) (backend.FireResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTable == "" {
		return backend.FireResult{}, ErrNoActiveTable
	}
	unfired := s.cart.Unfired()
	if len(unfired) == 0 {
		return backend.FireResult{}, nil
	}

	ctx = s.ctx(ctx)
	res, err := s.backend.FireLines(ctx, backend.FireRequest{
		Table:    s.activeTable,
		Customer: s.customer,
		Lines:    toOrderLines(unfired),
	})
	if err != nil {
		s.metrics.ObserveOperation("fire", err)
		return backend.FireResult{}, err
	}

	// The ticket exists now. If the reload fails the lines must still never
	// be sent twice.
	lines, err := s.backend.GetFiredLines(ctx, s.activeTable)
	s.metrics.ObserveOperation("fire", err)
	if err != nil {
		s.cart.MarkFired()
		s.log.Error(ctx, "reload after fire failed", err)
		return res, fmt.Errorf("reload after fire: %w", err)
	}
	s.cart.Replace(toCartLines(lines))
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"ticket_id": res.TicketID,
		"lines":     len(unfired),
	}), "kitchen ticket fired")
	s.notify(ctx, SeverityInfo, fmt.Sprintf("Sent %d item(s) to the kitchen", len(unfired)))
	return res, nil
}

// Load replaces the cart with the active table's fired lines.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTable == "" {
		return ErrNoActiveTable
	}
	lines, err := s.backend.GetFiredLines(s.ctx(ctx), s.activeTable)
	if err != nil {
		return err
	}
	s.cart.Replace(toCartLines(lines))
	return nil
}

// ClearCart drops the pending lines of the active table. Fired lines stay
// until checkout or Release, since the kitchen already holds them.
func (s *Session) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.DiscardUnfired()
}

// HandleScan looks up a scanned code and adds the item to the cart. An
// unknown code produces a warning notice and leaves the cart untouched.
func (s *Session) HandleScan(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = s.log.WithField(s.ctx(ctx), "code", code)
	if s.activeTable == "" {
		s.metrics.ObserveScan("no_table")
		s.notify(ctx, SeverityWarning, "Select a table before scanning")
		return ErrNoActiveTable
	}

	item, err := s.backend.LookupItemByCode(ctx, code)
	switch {
	case apperr.Is(err, apperr.CodeNotFound):
		s.metrics.ObserveScan("not_found")
		s.notify(ctx, SeverityWarning, "Barcode "+code+" not found")
		return err
	case err != nil:
		s.metrics.ObserveScan("error")
		s.log.Error(ctx, "barcode lookup failed", err)
		s.notify(ctx, SeverityError, "Barcode lookup failed")
		return err
	}

	if err := s.cart.AddItem(cart.Item{Code: item.Code, Name: item.Name, Rate: item.Rate}); err != nil {
		s.metrics.ObserveScan("error")
		s.log.Error(ctx, "scanned item has an unusable rate", err)
		s.notify(ctx, SeverityError, "Barcode "+code+" has an invalid price")
		return err
	}
	s.metrics.ObserveScan("found")
	name := item.Name
	if name == "" {
		name = item.Code
	}
	s.notify(ctx, SeverityInfo, "Added "+name)
	return nil
}
