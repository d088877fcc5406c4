package store

import (
	"errors"

	"github.com/username/smartflow/backend/src/models"
)

// Category selects which reference namespace a lookup targets.
type Category string

const (
	CategoryItem   Category = "item"
	CategoryClient Category = "client"
)

// ErrUnknownCategory signals a lookup against a namespace that does not
// exist. This is a programmer error, not a runtime condition.
var ErrUnknownCategory = errors.New("unknown reference category")

// StockInfo is the current mutable state for one item.
type StockInfo struct {
	AvailableQty int
	UnitPrice    float64
}

// ReferenceStore serves the canonical entity catalog.
type ReferenceStore interface {
	// ListValid returns every canonical name in the given namespace.
	ListValid(category Category) ([]string, error)
	// LookupID returns the numeric identifier for a canonical name, or nil
	// if no row exists.
	LookupID(category Category, canonicalName string) (*int64, error)
}

// StockStore serves live stock levels and prices. GetStock returns nil when
// the item has no row.
type StockStore interface {
	GetStock(itemID int64) (*StockInfo, error)
}

// TransactionStore is the append-only fact table.
type TransactionStore interface {
	Insert(record *models.TransactionRecord) error
	ListRecent(limit int) ([]models.RecentTransaction, error)
}

// IdempotencyStore is the durable set of fingerprints already processed.
type IdempotencyStore interface {
	HasFingerprint(hash string) (bool, error)
	RecordFingerprint(hash string) error
}
