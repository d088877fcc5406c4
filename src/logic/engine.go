package logic

import (
	"fmt"

	"github.com/username/smartflow/backend/src/models"
	"github.com/username/smartflow/backend/src/store"
)

// Engine enforces runtime business rules against the current state of the
// stock store. It does not coordinate concurrent requests for the same item;
// the persistence layer is the arbiter of cross-request consistency.
type Engine struct {
	stockStore store.StockStore
}

func NewEngine(stockStore store.StockStore) *Engine {
	return &Engine{stockStore: stockStore}
}

// CheckStock verifies that the requested quantity can be fulfilled and
// reports the current unit price. Requesting exactly the available quantity
// is allowed. A missing item row rejects with price 0; insufficient stock
// rejects but still reports the price for diagnostics.
func (e *Engine) CheckStock(itemID int64, requestedQty int) (models.StockDecision, error) {
	info, err := e.stockStore.GetStock(itemID)
	if err != nil {
		return models.StockDecision{}, fmt.Errorf("error checking stock for item %d: %w", itemID, err)
	}

	if info == nil {
		return models.StockDecision{
			Allowed:   false,
			Reason:    fmt.Sprintf("item %d not found", itemID),
			UnitPrice: 0,
		}, nil
	}

	if requestedQty > info.AvailableQty {
		return models.StockDecision{
			Allowed:   false,
			Reason:    fmt.Sprintf("insufficient stock: requested %d, available %d", requestedQty, info.AvailableQty),
			UnitPrice: info.UnitPrice,
		}, nil
	}

	return models.StockDecision{
		Allowed:   true,
		Reason:    "stock available",
		UnitPrice: info.UnitPrice,
	}, nil
}
