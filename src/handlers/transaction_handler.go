package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/smartflow/backend/src/logger"
	"github.com/username/smartflow/backend/src/models"
	"github.com/username/smartflow/backend/src/store"
	"github.com/username/smartflow/backend/src/utils"
)

const (
	ckRecentTransactions = "agg_recent_transactions"

	recentTransactionLimit = 10

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type TransactionHandler struct {
	txStore     store.TransactionStore
	reportCache *cache.Cache
}

func NewTransactionHandler(txStore store.TransactionStore, reportCache *cache.Cache) *TransactionHandler {
	return &TransactionHandler{
		txStore:     txStore,
		reportCache: reportCache,
	}
}

// HandleGetRecentTransactions serves the last persisted transactions joined
// with their dimension names, with ETag support for the dashboard's polling.
func (h *TransactionHandler) HandleGetRecentTransactions(w http.ResponseWriter, r *http.Request) {
	var transactions []models.RecentTransaction

	if cached, found := h.reportCache.Get(ckRecentTransactions); found {
		logger.L.Debug("Cache hit for recent transactions")
		transactions = cached.([]models.RecentTransaction)
	} else {
		var err error
		transactions, err = h.txStore.ListRecent(recentTransactionLimit)
		if err != nil {
			logger.L.Error("Error fetching recent transactions", "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Error fetching recent transactions: %v", err), http.StatusInternalServerError)
			return
		}
		h.reportCache.Set(ckRecentTransactions, transactions, DefaultCacheExpiration)
	}

	if transactions == nil {
		transactions = []models.RecentTransaction{}
	}

	w.Header().Set("Cache-Control", "no-cache, private")

	currentETag, etagErr := utils.GenerateETag(transactions)
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		clientETag := r.Header.Get("If-None-Match")
		for _, cETag := range strings.Split(clientETag, ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	} else {
		logger.L.Warn("Proceeding without ETag check due to ETag generation error", "error", etagErr)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(transactions); err != nil {
		logger.L.Error("Error generating JSON response for recent transactions", "error", err)
	}
}
