// Package cart holds the in-progress order of the active table.
//
// A Cart is not safe for concurrent use; the terminal session serializes
// access to it.
package cart

import (
	"strings"

	"github.com/kiwari-pos/tablepos/internal/apperr"
	"github.com/shopspring/decimal"
)

// Errors returned by cart edits.
var (
	ErrLineIndex       = apperr.New(apperr.CodeValidation, "line index out of range")
	ErrLineFired       = apperr.New(apperr.CodeValidation, "line was already sent to the kitchen")
	ErrInvalidDiscount = apperr.New(apperr.CodeValidation, "discount must be between 0 and 100")
	ErrInvalidRate     = apperr.New(apperr.CodeValidation, "rate must not be negative")
	ErrPrecision       = apperr.New(apperr.CodeValidation, "at most 2 decimal places are allowed")
)

// Scale is the number of decimal places money and discounts are stored with.
const Scale = 2

// fitsScale reports whether d is stored without rounding.
func fitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(Scale))
}

var hundred = decimal.NewFromInt(100)

// Item is a catalog entry that can be added to the cart.
type Item struct {
	Code string
	Name string
	Rate decimal.Decimal
}

// Line is one row of the cart. Unfired lines merge by item code.
type Line struct {
	ItemCode           string          `json:"item_code"`
	ItemName           string          `json:"item_name"`
	Rate               decimal.Decimal `json:"rate"`
	Qty                int             `json:"qty"`
	Note               string          `json:"note"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	IsFired            bool            `json:"is_fired"`
}

// Amount is rate × qty × (1 − discount/100), unrounded.
func (l Line) Amount() decimal.Decimal {
	gross := l.Rate.Mul(decimal.NewFromInt(int64(l.Qty)))
	if l.DiscountPercentage.IsZero() {
		return gross
	}
	factor := hundred.Sub(l.DiscountPercentage).Div(hundred)
	return gross.Mul(factor)
}

type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// AddItem merges into the unfired line for item.Code or appends a new one.
// A negative rate or one with more than Scale decimals is rejected.
func (c *Cart) AddItem(item Item) error {
	if item.Rate.IsNegative() {
		return ErrInvalidRate
	}
	if !fitsScale(item.Rate) {
		return ErrPrecision
	}
	for i := range c.lines {
		if c.lines[i].ItemCode == item.Code && !c.lines[i].IsFired {
			c.lines[i].Qty++
			return nil
		}
	}
	name := strings.TrimSpace(item.Name)
	if name == "" {
		name = item.Code
	}
	c.lines = append(c.lines, Line{
		ItemCode: item.Code,
		ItemName: name,
		Rate:     item.Rate,
		Qty:      1,
	})
	return nil
}

// ChangeQuantity adds delta to the line's quantity and drops the line when
// the result is not positive.
func (c *Cart) ChangeQuantity(index, delta int) error {
	line, err := c.editable(index)
	if err != nil {
		return err
	}
	line.Qty += delta
	if line.Qty <= 0 {
		c.lines = append(c.lines[:index], c.lines[index+1:]...)
	}
	return nil
}

func (c *Cart) SetNote(index int, text string) error {
	line, err := c.editable(index)
	if err != nil {
		return err
	}
	line.Note = strings.TrimSpace(text)
	return nil
}

func (c *Cart) SetDiscount(index int, percent decimal.Decimal) error {
	line, err := c.editable(index)
	if err != nil {
		return err
	}
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return ErrInvalidDiscount
	}
	if !fitsScale(percent) {
		return ErrPrecision
	}
	line.DiscountPercentage = percent
	return nil
}

func (c *Cart) editable(index int) (*Line, error) {
	if index < 0 || index >= len(c.lines) {
		return nil, ErrLineIndex
	}
	if c.lines[index].IsFired {
		return nil, ErrLineFired
	}
	return &c.lines[index], nil
}

// Partition splits the lines into fired and unfired, preserving order.
func (c *Cart) Partition() (fired, unfired []Line) {
	for _, l := range c.lines {
		if l.IsFired {
			fired = append(fired, l)
		} else {
			unfired = append(unfired, l)
		}
	}
	return fired, unfired
}

// Unfired returns copies of the lines not yet sent to the kitchen.
func (c *Cart) Unfired() []Line {
	_, unfired := c.Partition()
	return unfired
}

// Replace discards every line and installs lines as fired.
func (c *Cart) Replace(lines []Line) {
	c.lines = make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		l.IsFired = true
		c.lines = append(c.lines, l)
	}
}

// MarkFired flags every line as fired without consulting the backend.
func (c *Cart) MarkFired() {
	for i := range c.lines {
		c.lines[i].IsFired = true
	}
}

func (c *Cart) Clear() {
	c.lines = nil
}

// DiscardUnfired drops pending lines and keeps the fired ones.
func (c *Cart) DiscardUnfired() {
	fired, _ := c.Partition()
	c.lines = fired
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// AllFired is true when the cart has lines and none are pending.
func (c *Cart) AllFired() bool {
	if len(c.lines) == 0 {
		return false
	}
	for _, l := range c.lines {
		if !l.IsFired {
			return false
		}
	}
	return true
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total is recomputed from the current lines on every call.
func (c *Cart) Total() decimal.Decimal {
	return Total(c.lines)
}

// Total sums Line.Amount over lines.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount())
	}
	return total
}

// Snapshot is a read-only view of the cart for presentation.
type Snapshot struct {
	Lines   []Line          `json:"lines"`
	Total   decimal.Decimal `json:"total"`
	Unfired int             `json:"unfired"`
}

func (c *Cart) Snapshot() Snapshot {
	_, unfired := c.Partition()
	return Snapshot{
		Lines:   c.Lines(),
		Total:   c.Total().Round(2),
		Unfired: len(unfired),
	}
}
