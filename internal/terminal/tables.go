package terminal

import (
	"context"
	"strings"

	"github.com/kiwari-pos/tablepos/internal/backend"
	"github.com/kiwari-pos/tablepos/internal/cart"
	"github.com/kiwari-pos/tablepos/internal/enum"
)

// RefreshTables reloads the table list from the backend.
func (s *Session) RefreshTables(ctx context.Context) ([]backend.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshTablesLocked(s.ctx(ctx)); err != nil {
		return nil, err
	}
	return append([]backend.Table(nil), s.tables...), nil
}

func (s *Session) refreshTablesLocked(ctx context.Context) error {
	tables, err := s.backend.ListTables(ctx)
	if err != nil {
		return err
	}
	s.tables = append([]backend.Table(nil), tables...)
	return nil
}

func (s *Session) refreshTablesQuiet(ctx context.Context) {
	if err := s.refreshTablesLocked(ctx); err != nil {
		s.log.Warn(s.log.WithField(ctx, "error", err.Error()), "table list refresh failed")
	}
}

func (s *Session) setLocalStatus(name, status string) {
	for i := range s.tables {
		if s.tables[i].Name == name {
			s.tables[i].Status = status
			return
		}
	}
}

func (s *Session) lookupTable(name string) (backend.Table, bool) {
	for _, t := range s.tables {
		if t.Name == name {
			return t, true
		}
	}
	return backend.Table{}, false
}

// EnterTable sets the table's status, makes it the active table and loads
// its fired lines. An empty status means Occupied.
func (s *Session) EnterTable(ctx context.Context, name, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return ErrUnknownTable
	}
	if status == "" {
		status = enum.TableStatusOccupied
	}
	if !enum.IsTableStatus(status) {
		return ErrInvalidStatus
	}
	if s.shiftState != ShiftOpen {
		return ErrNoOpenShift
	}

	ctx = s.log.WithTable(s.ctx(ctx), name)
	if err := s.backend.SetTableStatus(ctx, name, status); err != nil {
		s.metrics.ObserveOperation("enter_table", err)
		return err
	}
	s.setLocalStatus(name, status)

	lines, err := s.backend.GetFiredLines(ctx, name)
	s.metrics.ObserveOperation("enter_table", err)
	if err != nil {
		return err
	}
	s.activeTable = name
	s.cart.Replace(toCartLines(lines))
	s.log.Debug(ctx, "table entered")
	return nil
}

// SetTableStatus changes a table's status without entering it.
func (s *Session) SetTableStatus(ctx context.Context, name, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !enum.IsTableStatus(status) {
		return ErrInvalidStatus
	}
	ctx = s.log.WithTable(s.ctx(ctx), name)
	err := s.backend.SetTableStatus(ctx, name, status)
	s.metrics.ObserveOperation("set_table_status", err)
	if err != nil {
		return err
	}
	s.setLocalStatus(name, status)
	return nil
}

// Transfer moves the active table's order to another table, which must be
// Available in the current table list. Pending lines stay in the cart.
func (s *Session) Transfer(ctx context.Context, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.activeTable
	if from == "" {
		return ErrNoActiveTable
	}
	to = strings.TrimSpace(to)
	if to == from {
		return ErrSameTable
	}
	target, ok := s.lookupTable(to)
	if !ok {
		return ErrUnknownTable
	}
	if target.Status != enum.TableStatusAvailable {
		return ErrTableUnavailable
	}

	ctx = s.log.WithFields(s.ctx(ctx), map[string]any{"from": from, "to": to})
	if err := s.backend.TransferTable(ctx, from, to); err != nil {
		s.metrics.ObserveOperation("transfer", err)
		return err
	}

	s.setLocalStatus(from, enum.TableStatusAvailable)
	s.setLocalStatus(to, enum.TableStatusOccupied)
	s.activeTable = to

	pending := s.cart.Unfired()
	lines, err := s.backend.GetFiredLines(ctx, to)
	s.metrics.ObserveOperation("transfer", err)
	if err != nil {
		s.log.Error(ctx, "reload after transfer failed", err)
		return err
	}
	s.cart.Replace(toCartLines(lines))
	for _, l := range pending {
		s.restorePending(l)
	}
	s.log.Info(ctx, "table transferred")
	return nil
}

// restorePending re-adds an unfired line with its edits.
func (s *Session) restorePending(l cart.Line) {
	if err := s.cart.AddItem(cart.Item{Code: l.ItemCode, Name: l.ItemName, Rate: l.Rate}); err != nil {
		return
	}
	idx := s.cart.Len() - 1
	if l.Qty > 1 {
		_ = s.cart.ChangeQuantity(idx, l.Qty-1)
	}
	if l.Note != "" {
		_ = s.cart.SetNote(idx, l.Note)
	}
	if !l.DiscountPercentage.IsZero() {
		_ = s.cart.SetDiscount(idx, l.DiscountPercentage)
	}
}

// Release marks a table Available. Releasing the active table clears the
// cart and the selection.
func (s *Session) Release(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = s.log.WithTable(s.ctx(ctx), name)
	err := s.backend.SetTableStatus(ctx, name, enum.TableStatusAvailable)
	s.metrics.ObserveOperation("release", err)
	if err != nil {
		return err
	}
	s.setLocalStatus(name, enum.TableStatusAvailable)
	if name == s.activeTable {
		s.cart.Clear()
		s.activeTable = ""
	}
	return nil
}

func toCartLines(lines []backend.OrderLine) []cart.Line {
	out := make([]cart.Line, 0, len(lines))
	for _, l := range lines {
		name := l.ItemName
		if name == "" {
			name = l.ItemCode
		}
		out = append(out, cart.Line{
			ItemCode:           l.ItemCode,
			ItemName:           name,
			Rate:               l.Rate,
			Qty:                l.Qty,
			Note:               l.Note,
			DiscountPercentage: l.DiscountPercentage,
			IsFired:            true,
		})
	}
	return out
}

func toOrderLines(lines []cart.Line) []backend.OrderLine {
	out := make([]backend.OrderLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, backend.OrderLine{
			ItemCode:           l.ItemCode,
			ItemName:           l.ItemName,
			Rate:               l.Rate,
			Qty:                l.Qty,
			Note:               l.Note,
			DiscountPercentage: l.DiscountPercentage,
		})
	}
	return out
}
