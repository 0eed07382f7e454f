// Package catalog resolves scanned codes and menu searches to priced items.
//
// A code is tried as a barcode first and then as an item code. The rate is
// taken from the profile's price list, falling back to the item's standard
// rate.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/tablepos/internal/apperr"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/kiwari-pos/tablepos/internal/logger"
	"github.com/kiwari-pos/tablepos/internal/metrics"
	"github.com/shopspring/decimal"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 200
)

var ErrItemNotFound = apperr.New(apperr.CodeNotFound, "item not found")

// Item is a priced menu item.
type Item struct {
	Code string          `json:"item_code"`
	Name string          `json:"item_name"`
	Rate decimal.Decimal `json:"rate"`
}

// Store defines the DB methods needed by the catalog.
// Satisfied by *database.Queries.
type Store interface {
	GetItemByBarcode(ctx context.Context, barcode string) (database.Item, error)
	GetItemByCode(ctx context.Context, code string) (database.Item, error)
	GetItemPrice(ctx context.Context, arg database.GetItemPriceParams) (pgtype.Numeric, error)
	SearchItems(ctx context.Context, arg database.SearchItemsParams) ([]database.SearchItemsRow, error)
}

// Cache is an optional lookup cache. Satisfied by *RedisCache.
type Cache interface {
	GetItem(ctx context.Context, priceList, code string) (Item, bool, error)
	SetItem(ctx context.Context, priceList, code string, item Item) error
}

type Catalog struct {
	store   Store
	cache   Cache
	log     *logger.Logger
	metrics *metrics.Server
}

// New creates a Catalog. cache, log and m may be nil.
func New(store Store, cache Cache, log *logger.Logger, m *metrics.Server) *Catalog {
	if log == nil {
		log = logger.Nop()
	}
	return &Catalog{store: store, cache: cache, log: log, metrics: m}
}

// Lookup resolves a scanned code for the given price list.
func (c *Catalog) Lookup(ctx context.Context, priceList, code string) (Item, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Item{}, ErrItemNotFound
	}

	if c.cache != nil {
		item, ok, err := c.cache.GetItem(ctx, priceList, code)
		if err != nil {
			c.log.Warn(c.log.WithField(ctx, "error", err.Error()), "item cache read failed")
		} else if ok {
			c.metrics.ObserveCache(true)
			return item, nil
		}
		c.metrics.ObserveCache(false)
	}

	row, err := c.store.GetItemByBarcode(ctx, code)
	if errors.Is(err, pgx.ErrNoRows) {
		row, err = c.store.GetItemByCode(ctx, code)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, fmt.Errorf("lookup item %q: %w", code, err)
	}

	rate, err := c.rate(ctx, priceList, row)
	if err != nil {
		return Item{}, err
	}
	item := Item{Code: row.Code, Name: row.Name, Rate: rate}

	if c.cache != nil {
		if err := c.cache.SetItem(ctx, priceList, code, item); err != nil {
			c.log.Warn(c.log.WithField(ctx, "error", err.Error()), "item cache write failed")
		}
	}
	return item, nil
}

func (c *Catalog) rate(ctx context.Context, priceList string, row database.Item) (decimal.Decimal, error) {
	if priceList == "" {
		return database.NumericToDecimal(row.StandardRate), nil
	}
	price, err := c.store.GetItemPrice(ctx, database.GetItemPriceParams{
		PriceList: priceList,
		ItemCode:  row.Code,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return database.NumericToDecimal(row.StandardRate), nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get item price: %w", err)
	}
	return database.NumericToDecimal(price), nil
}

// Search lists active items whose name or code contains q.
func (c *Catalog) Search(ctx context.Context, priceList, q string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	rows, err := c.store.SearchItems(ctx, database.SearchItemsParams{
		PriceList: priceList,
		Query:     strings.TrimSpace(q),
		Limit:     int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, Item{Code: r.Code, Name: r.Name, Rate: database.NumericToDecimal(r.Rate)})
	}
	return items, nil
}
