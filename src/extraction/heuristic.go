package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/username/smartflow/backend/src/models"
	"github.com/username/smartflow/backend/src/store"
)

const (
	unknownItem   = "Unknown Item"
	unknownClient = "Unknown Client"
)

var firstInteger = regexp.MustCompile(`\b(\d+)\b`)

// HeuristicExtractor is the cheap local fallback when the remote model is
// unavailable: keyword matching against the reference catalog for item and
// client, first integer in the text for quantity.
type HeuristicExtractor struct {
	items   []string
	clients []string
}

// NewHeuristicExtractor loads keyword lists from the reference catalog at
// construction.
func NewHeuristicExtractor(refStore store.ReferenceStore) (*HeuristicExtractor, error) {
	items, err := refStore.ListValid(store.CategoryItem)
	if err != nil {
		return nil, fmt.Errorf("error loading item keywords: %w", err)
	}
	clients, err := refStore.ListValid(store.CategoryClient)
	if err != nil {
		return nil, fmt.Errorf("error loading client keywords: %w", err)
	}
	return &HeuristicExtractor{items: items, clients: clients}, nil
}

func (e *HeuristicExtractor) Extract(ctx context.Context, rawText string) (models.ExtractedPayload, error) {
	rawLower := strings.ToLower(rawText)

	item := unknownItem
	for _, candidate := range e.items {
		if strings.Contains(rawLower, strings.ToLower(candidate)) {
			item = candidate
			break
		}
	}

	client := unknownClient
	for _, candidate := range e.clients {
		if strings.Contains(rawLower, strings.ToLower(candidate)) {
			client = candidate
			break
		}
	}

	qty := 1
	if match := firstInteger.FindStringSubmatch(rawText); match != nil {
		if parsed, err := strconv.Atoi(match[1]); err == nil {
			qty = parsed
		}
	}

	return models.ExtractedPayload{
		"item":   item,
		"qty":    qty,
		"client": client,
		"action": "sold (heuristic)",
	}, nil
}
