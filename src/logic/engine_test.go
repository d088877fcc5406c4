package logic

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/smartflow/backend/src/store"
)

type fakeStockStore struct {
	stock map[int64]store.StockInfo
	err   error
}

func (f *fakeStockStore) GetStock(itemID int64) (*store.StockInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if info, ok := f.stock[itemID]; ok {
		return &info, nil
	}
	return nil, nil
}

func TestCheckStockAllowed(t *testing.T) {
	engine := NewEngine(&fakeStockStore{stock: map[int64]store.StockInfo{
		1: {AvailableQty: 50, UnitPrice: 1000},
	}})

	decision, err := engine.CheckStock(1, 5)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 1000.0, decision.UnitPrice)
}

func TestCheckStockBoundaryInclusive(t *testing.T) {
	engine := NewEngine(&fakeStockStore{stock: map[int64]store.StockInfo{
		1: {AvailableQty: 50, UnitPrice: 1000},
	}})

	decision, err := engine.CheckStock(1, 50)
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "requesting exactly the available quantity is allowed")
}

func TestCheckStockInsufficient(t *testing.T) {
	engine := NewEngine(&fakeStockStore{stock: map[int64]store.StockInfo{
		1: {AvailableQty: 50, UnitPrice: 1000},
	}})

	decision, err := engine.CheckStock(1, 51)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "51")
	assert.Contains(t, decision.Reason, "50")
	// Price is still reported for diagnostics.
	assert.Equal(t, 1000.0, decision.UnitPrice)
}

func TestCheckStockItemNotFound(t *testing.T) {
	engine := NewEngine(&fakeStockStore{stock: map[int64]store.StockInfo{}})

	decision, err := engine.CheckStock(99, 1)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "not found")
	assert.Equal(t, 0.0, decision.UnitPrice)
}

func TestCheckStockStoreError(t *testing.T) {
	boom := errors.New("database gone")
	engine := NewEngine(&fakeStockStore{err: boom})

	_, err := engine.CheckStock(1, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
