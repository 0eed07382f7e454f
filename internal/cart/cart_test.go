package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var (
	burger = Item{Code: "BRG", Name: "Burger", Rate: dec("12.50")}
	fries  = Item{Code: "FRY", Name: "Fries", Rate: dec("4.00")}
)

func TestAddItemMergesUnfiredLines(t *testing.T) {
	c := New()
	for i := 0; i < 5; i++ {
		c.AddItem(burger)
	}

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Qty)
	assert.False(t, lines[0].IsFired)
	assert.True(t, lines[0].DiscountPercentage.IsZero())
	assert.Empty(t, lines[0].Note)
}

func TestAddItemDoesNotMergeIntoFiredLine(t *testing.T) {
	c := New()
	c.Replace([]Line{{ItemCode: "BRG", ItemName: "Burger", Rate: dec("12.50"), Qty: 2}})

	c.AddItem(burger)

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.True(t, lines[0].IsFired)
	assert.Equal(t, 2, lines[0].Qty)
	assert.False(t, lines[1].IsFired)
	assert.Equal(t, 1, lines[1].Qty)
}

func TestAddItemFallsBackToCodeForName(t *testing.T) {
	c := New()
	c.AddItem(Item{Code: "8901234", Rate: dec("1")})
	assert.Equal(t, "8901234", c.Lines()[0].ItemName)
}

func TestChangeQuantity(t *testing.T) {
	tests := []struct {
		name    string
		delta   int
		wantLen int
		wantQty int
	}{
		{"increment", 2, 1, 4},
		{"decrement", -1, 1, 1},
		{"to zero removes", -2, 0, 0},
		{"below zero removes", -10, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			c.AddItem(burger)
			c.AddItem(burger)

			require.NoError(t, c.ChangeQuantity(0, tt.delta))
			require.Equal(t, tt.wantLen, c.Len())
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantQty, c.Lines()[0].Qty)
			}
			for _, l := range c.Lines() {
				assert.Positive(t, l.Qty)
			}
		})
	}
}

func TestChangeQuantityRemovesOnlyTargetLine(t *testing.T) {
	c := New()
	c.AddItem(burger)
	c.AddItem(fries)

	require.NoError(t, c.ChangeQuantity(0, -1))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "FRY", lines[0].ItemCode)
}

func TestFiredLinesAreImmutable(t *testing.T) {
	c := New()
	c.Replace([]Line{{ItemCode: "BRG", ItemName: "Burger", Rate: dec("12.50"), Qty: 1}})

	assert.ErrorIs(t, c.ChangeQuantity(0, -1), ErrLineFired)
	assert.ErrorIs(t, c.SetNote(0, "no onions"), ErrLineFired)
	assert.ErrorIs(t, c.SetDiscount(0, dec("10")), ErrLineFired)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Qty)
	assert.Empty(t, lines[0].Note)
}

func TestEditOutOfRange(t *testing.T) {
	c := New()
	c.AddItem(burger)

	assert.ErrorIs(t, c.ChangeQuantity(1, 1), ErrLineIndex)
	assert.ErrorIs(t, c.SetNote(-1, "x"), ErrLineIndex)
}

func TestSetDiscountBounds(t *testing.T) {
	c := New()
	c.AddItem(burger)

	assert.ErrorIs(t, c.SetDiscount(0, dec("-1")), ErrInvalidDiscount)
	assert.ErrorIs(t, c.SetDiscount(0, dec("100.01")), ErrInvalidDiscount)
	require.NoError(t, c.SetDiscount(0, dec("100")))
	assert.True(t, c.Total().IsZero())
	require.NoError(t, c.SetDiscount(0, dec("0")))
	assert.True(t, c.Total().Equal(dec("12.50")))
}

func TestSetDiscountRejectsSubCentPrecision(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(Item{Code: "STK", Name: "Steak", Rate: dec("30")}))

	assert.ErrorIs(t, c.SetDiscount(0, dec("33.335")), ErrPrecision)
	assert.True(t, c.Lines()[0].DiscountPercentage.IsZero(), "rejected discount must not be applied")

	// Trailing zeros are not extra precision.
	require.NoError(t, c.SetDiscount(0, dec("33.330")))
	assert.True(t, c.Total().Equal(dec("20.001")))
}

func TestAddItemValidatesRate(t *testing.T) {
	tests := []struct {
		name string
		rate string
		want error
	}{
		{"negative", "-5", ErrInvalidRate},
		{"three decimals", "0.125", ErrPrecision},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			assert.ErrorIs(t, c.AddItem(Item{Code: "X", Rate: dec(tt.rate)}), tt.want)
			assert.True(t, c.IsEmpty())
			assert.True(t, c.Total().IsZero())
		})
	}

	c := New()
	require.NoError(t, c.AddItem(Item{Code: "FREE", Rate: decimal.Zero}))
	assert.Equal(t, 1, c.Len())
}

func TestDiscardUnfiredKeepsFiredLines(t *testing.T) {
	c := New()
	c.Replace([]Line{{ItemCode: "BRG", ItemName: "Burger", Rate: dec("12.50"), Qty: 1}})
	require.NoError(t, c.AddItem(fries))
	require.NoError(t, c.AddItem(burger))

	c.DiscardUnfired()

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.True(t, lines[0].IsFired)
	assert.True(t, c.AllFired())
}

func TestTotalIsRecomputedAfterEdits(t *testing.T) {
	c := New()
	c.AddItem(burger)
	c.AddItem(burger)
	c.AddItem(fries)

	// 2 × 12.50 + 4.00
	assert.True(t, c.Total().Equal(dec("29")))

	require.NoError(t, c.SetDiscount(0, dec("10")))
	// 25 × 0.9 + 4
	assert.True(t, c.Total().Equal(dec("26.5")))

	require.NoError(t, c.SetNote(1, "extra salt"))
	assert.True(t, c.Total().Equal(dec("26.5")))

	require.NoError(t, c.ChangeQuantity(1, 2))
	assert.True(t, c.Total().Equal(dec("34.5")))

	assert.True(t, c.Total().Equal(Total(c.Lines())))
}

func TestTotalKeepsPrecisionUntilRounded(t *testing.T) {
	c := New()
	c.AddItem(Item{Code: "TEA", Name: "Tea", Rate: dec("3.33")})
	require.NoError(t, c.SetDiscount(0, dec("33.3")))

	// 3.33 × 0.667 = 2.22111
	assert.True(t, c.Total().Equal(dec("2.22111")))
	assert.Equal(t, "2.22", c.Snapshot().Total.StringFixed(2))
}

func TestPartitionAndAllFired(t *testing.T) {
	c := New()
	assert.False(t, c.AllFired(), "empty cart is never fully fired")

	c.Replace([]Line{{ItemCode: "BRG", Rate: dec("1"), Qty: 1}})
	assert.True(t, c.AllFired())

	c.AddItem(fries)
	assert.False(t, c.AllFired())

	fired, unfired := c.Partition()
	require.Len(t, fired, 1)
	require.Len(t, unfired, 1)
	assert.Equal(t, "FRY", unfired[0].ItemCode)
	assert.Equal(t, unfired, c.Unfired())
}

func TestReplaceMarksFiredAndDropsEmptyLines(t *testing.T) {
	c := New()
	c.AddItem(fries)

	c.Replace([]Line{
		{ItemCode: "BRG", Rate: dec("12.50"), Qty: 2},
		{ItemCode: "BAD", Rate: dec("1"), Qty: 0},
	})

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "BRG", lines[0].ItemCode)
	assert.True(t, lines[0].IsFired)
}

func TestLinesReturnsCopy(t *testing.T) {
	c := New()
	c.AddItem(burger)

	lines := c.Lines()
	lines[0].Qty = 99

	assert.Equal(t, 1, c.Lines()[0].Qty)
}

func TestClear(t *testing.T) {
	c := New()
	c.AddItem(burger)
	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())
}

func TestSnapshotCountsUnfired(t *testing.T) {
	c := New()
	c.Replace([]Line{{ItemCode: "BRG", Rate: dec("12.50"), Qty: 1}})
	c.AddItem(fries)

	snap := c.Snapshot()
	assert.Len(t, snap.Lines, 2)
	assert.Equal(t, 1, snap.Unfired)
	assert.True(t, snap.Total.Equal(dec("16.50")))
}

func TestMarkFiredBlocksEdits(t *testing.T) {
	c := New()
	c.AddItem(burger)
	c.MarkFired()

	assert.True(t, c.AllFired())
	assert.ErrorIs(t, c.ChangeQuantity(0, 1), ErrLineFired)

	c.AddItem(burger)
	assert.Equal(t, 2, c.Len(), "fired line is not a merge target")
}
