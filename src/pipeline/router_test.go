package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/smartflow/backend/src/extraction"
	"github.com/username/smartflow/backend/src/integrity"
	"github.com/username/smartflow/backend/src/logger"
	"github.com/username/smartflow/backend/src/logic"
	"github.com/username/smartflow/backend/src/models"
	"github.com/username/smartflow/backend/src/normalizer"
	"github.com/username/smartflow/backend/src/store"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// fakeBackend implements every store interface the router touches, backed by
// in-memory maps.
type fakeBackend struct {
	items     map[string]int64
	clients   map[string]int64
	stock     map[int64]store.StockInfo
	inserted  []*models.TransactionRecord
	insertErr error
	prints    map[string]bool
	idemErr   error
	nextID    int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		items:   map[string]int64{"iPhone 15": 1, "Dell XPS": 2},
		clients: map[string]int64{"Client A": 10, "TechCorp": 11},
		stock: map[int64]store.StockInfo{
			1: {AvailableQty: 50, UnitPrice: 1000},
			2: {AvailableQty: 30, UnitPrice: 1200},
		},
		prints: make(map[string]bool),
		nextID: 100,
	}
}

func (f *fakeBackend) ListValid(category store.Category) ([]string, error) {
	var src map[string]int64
	switch category {
	case store.CategoryItem:
		src = f.items
	case store.CategoryClient:
		src = f.clients
	default:
		return nil, store.ErrUnknownCategory
	}
	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeBackend) LookupID(category store.Category, name string) (*int64, error) {
	var src map[string]int64
	switch category {
	case store.CategoryItem:
		src = f.items
	case store.CategoryClient:
		src = f.clients
	default:
		return nil, store.ErrUnknownCategory
	}
	if id, ok := src[name]; ok {
		return &id, nil
	}
	return nil, nil
}

func (f *fakeBackend) GetStock(itemID int64) (*store.StockInfo, error) {
	if info, ok := f.stock[itemID]; ok {
		return &info, nil
	}
	return nil, nil
}

func (f *fakeBackend) Insert(record *models.TransactionRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.nextID++
	record.ID = f.nextID
	f.inserted = append(f.inserted, record)
	return nil
}

func (f *fakeBackend) ListRecent(limit int) ([]models.RecentTransaction, error) {
	return nil, nil
}

func (f *fakeBackend) HasFingerprint(hash string) (bool, error) {
	if f.idemErr != nil {
		return false, f.idemErr
	}
	return f.prints[hash], nil
}

func (f *fakeBackend) RecordFingerprint(hash string) error {
	if f.idemErr != nil {
		return f.idemErr
	}
	f.prints[hash] = true
	return nil
}

type stubScorer struct {
	score float64
}

func (s stubScorer) Score(quantity int, unitPrice float64) float64 { return s.score }

func newTestRouter(t *testing.T, backend *fakeBackend, scorer AnomalyScorer) *TransactionRouter {
	t.Helper()
	norm, err := normalizer.NewNormalizer(backend, 0.5)
	require.NoError(t, err)
	resolver := integrity.NewResolver(norm, backend)
	engine := logic.NewEngine(backend)
	extractor, err := extraction.NewHeuristicExtractor(backend)
	require.NoError(t, err)
	return NewTransactionRouter(extractor, resolver, engine, scorer, backend, backend)
}

func TestProcessSuccess(t *testing.T) {
	backend := newFakeBackend()
	router := newTestRouter(t, backend, stubScorer{score: 0.12})

	resp, err := router.Process(context.Background(), "Sold 5 iPhone 15 to Client A")
	require.NoError(t, err)

	assert.Equal(t, models.StatusSuccess, resp.Status)
	assert.Empty(t, resp.Error)

	require.Len(t, backend.inserted, 1)
	tx := backend.inserted[0]
	assert.Equal(t, int64(1), tx.ItemID)
	assert.Equal(t, int64(10), tx.ClientID)
	assert.Equal(t, 5, tx.Quantity)
	assert.Equal(t, 5000.0, tx.TotalPrice)
	assert.Equal(t, 0.12, tx.AnomalyScore)
	assert.False(t, tx.IsFlagged)
	assert.Equal(t, SourceTag, tx.SourceTag)

	assert.Contains(t, resp.Logs, "parsed_json")
	assert.Contains(t, resp.Logs, "normalization")
	assert.Equal(t, 0.12, resp.Logs["ml_score"])
	assert.True(t, backend.prints[Fingerprint("Sold 5 iPhone 15 to Client A")])
}

func TestProcessNegativeScoreFlagsTransaction(t *testing.T) {
	backend := newFakeBackend()
	router := newTestRouter(t, backend, stubScorer{score: -0.03})

	resp, err := router.Process(context.Background(), "Sold 5 iPhone 15 to Client A")
	require.NoError(t, err)

	assert.Equal(t, models.StatusSuccess, resp.Status)
	require.Len(t, backend.inserted, 1)
	assert.True(t, backend.inserted[0].IsFlagged, "a negative score flags but never rejects")
}

func TestProcessDuplicateRejected(t *testing.T) {
	backend := newFakeBackend()
	router := newTestRouter(t, backend, stubScorer{score: 0.1})

	const rawText = "Sold 5 iPhone 15 to Client A"
	first, err := router.Process(context.Background(), rawText)
	require.NoError(t, err)
	require.Equal(t, models.StatusSuccess, first.Status)

	// Even if the world changed since the first request, the verbatim text
	// is rejected before any gate runs.
	backend.stock[1] = store.StockInfo{AvailableQty: 0, UnitPrice: 1000}

	second, err := router.Process(context.Background(), rawText)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, second.Status)
	assert.Contains(t, second.Error, "duplicate transaction detected")
	assert.Len(t, backend.inserted, 1)
}

func TestProcessUnknownEntityRejected(t *testing.T) {
	backend := newFakeBackend()
	router := newTestRouter(t, backend, stubScorer{score: 0.1})

	resp, err := router.Process(context.Background(), "Sold 5 Samsung Galaxy to Client A")
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, resp.Status)
	assert.Contains(t, resp.Error, "unknown entity")
	assert.Contains(t, resp.Error, "item_id=none")
	assert.Empty(t, backend.inserted)
	assert.Empty(t, backend.prints, "rejected requests stay retryable")
}

func TestProcessStructuralRejection(t *testing.T) {
	backend := newFakeBackend()
	router := newTestRouter(t, backend, stubScorer{score: 0.1})

	// The heuristic extractor reads the first integer as the quantity.
	resp, err := router.Process(context.Background(), "Sold 0 iPhone 15 to Client A")
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, resp.Status)
	assert.Contains(t, resp.Error, "structural error")
	assert.Contains(t, resp.Error, "positive")
	assert.Contains(t, resp.Logs, "parsed_json")
	assert.Empty(t, backend.inserted)
}

func TestProcessInsufficientStockRejected(t *testing.T) {
	backend := newFakeBackend()
	router := newTestRouter(t, backend, stubScorer{score: 0.1})

	resp, err := router.Process(context.Background(), "Sold 51 iPhone 15 to Client A")
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, resp.Status)
	assert.Contains(t, resp.Error, "business rule violation")
	assert.Contains(t, resp.Error, "insufficient stock")
	assert.Empty(t, backend.inserted)
	assert.Empty(t, backend.prints)
}

func TestProcessBoundaryStockAllowed(t *testing.T) {
	backend := newFakeBackend()
	router := newTestRouter(t, backend, stubScorer{score: 0.1})

	resp, err := router.Process(context.Background(), "Sold 50 iPhone 15 to Client A")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, resp.Status)
}

func TestProcessInsertFailureIsStructuredRejection(t *testing.T) {
	backend := newFakeBackend()
	backend.insertErr = errors.New("disk full")
	router := newTestRouter(t, backend, stubScorer{score: 0.1})

	resp, err := router.Process(context.Background(), "Sold 5 iPhone 15 to Client A")
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, resp.Status)
	assert.Equal(t, "database commit failed", resp.Error)
	assert.Empty(t, backend.prints, "fingerprint is recorded only after a durable insert")
}

func TestProcessIdempotencyStoreErrorIsFatal(t *testing.T) {
	backend := newFakeBackend()
	backend.idemErr = errors.New("db closed")
	router := newTestRouter(t, backend, stubScorer{score: 0.1})

	_, err := router.Process(context.Background(), "Sold 5 iPhone 15 to Client A")
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.idemErr)
}

func TestFingerprintIsDeterministicAndExact(t *testing.T) {
	assert.Equal(t, Fingerprint("abc"), Fingerprint("abc"))
	assert.NotEqual(t, Fingerprint("abc"), Fingerprint("abc "))
	assert.NotEqual(t, Fingerprint("abc"), Fingerprint("Abc"))
	assert.Len(t, Fingerprint(""), 64)
}
