package normalizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/username/smartflow/backend/src/logger"
	"github.com/username/smartflow/backend/src/store"
)

// Normalizer maps noisy input names onto the canonical entity catalog.
// Reference lists are loaded at construction and cached for the component's
// lifetime; staleness versus the backing store is accepted. Reads are safe
// for concurrent use.
type Normalizer struct {
	refStore store.ReferenceStore
	cutoff   float64

	mu           sync.RWMutex
	validItems   []string
	validClients []string
}

// NewNormalizer builds a normalizer and performs the initial reference load.
func NewNormalizer(refStore store.ReferenceStore, cutoff float64) (*Normalizer, error) {
	n := &Normalizer{refStore: refStore, cutoff: cutoff}
	if err := n.Refresh(); err != nil {
		return nil, fmt.Errorf("error loading reference data: %w", err)
	}
	return n, nil
}

// Refresh reloads both reference lists from the backing store.
func (n *Normalizer) Refresh() error {
	items, err := n.refStore.ListValid(store.CategoryItem)
	if err != nil {
		return err
	}
	clients, err := n.refStore.ListValid(store.CategoryClient)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.validItems = items
	n.validClients = clients
	n.mu.Unlock()

	logger.L.Info("Reference cache refreshed", "items", len(items), "clients", len(clients))
	return nil
}

// Normalize finds the canonical entity for the input, or reports no match.
// Exact matches (case-insensitive, whitespace-trimmed) always win; otherwise
// the single highest-scoring fuzzy candidate at or above the cutoff is
// chosen, earliest entry winning ties. An unknown category is a programmer
// error and returns a non-nil error.
func (n *Normalizer) Normalize(input string, category store.Category) (string, bool, error) {
	if input == "" {
		return "", false, nil
	}

	var referenceList []string
	n.mu.RLock()
	switch category {
	case store.CategoryItem:
		referenceList = n.validItems
	case store.CategoryClient:
		referenceList = n.validClients
	default:
		n.mu.RUnlock()
		return "", false, fmt.Errorf("%w: %q", store.ErrUnknownCategory, category)
	}
	n.mu.RUnlock()

	trimmed := strings.TrimSpace(input)

	for _, validEntity := range referenceList {
		if strings.EqualFold(trimmed, validEntity) {
			return validEntity, true, nil
		}
	}

	bestScore := 0.0
	bestEntity := ""
	for _, validEntity := range referenceList {
		score := Ratio(trimmed, validEntity)
		if score > bestScore {
			bestScore = score
			bestEntity = validEntity
		}
	}
	if bestScore >= n.cutoff {
		logger.L.Debug("Fuzzy match accepted", "input", input, "match", bestEntity, "score", bestScore)
		return bestEntity, true, nil
	}

	return "", false, nil
}
