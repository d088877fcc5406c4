package integrity

import (
	"github.com/username/smartflow/backend/src/models"
	"github.com/username/smartflow/backend/src/normalizer"
	"github.com/username/smartflow/backend/src/store"
)

// Resolver turns raw entity names into stable dimension-table identifiers.
// It fails closed: unresolved references yield nil identifiers, which the
// pipeline treats as terminal.
type Resolver struct {
	normalizer *normalizer.Normalizer
	refStore   store.ReferenceStore
}

func NewResolver(n *normalizer.Normalizer, refStore store.ReferenceStore) *Resolver {
	return &Resolver{normalizer: n, refStore: refStore}
}

// Resolve normalizes both names and looks up their identifiers. If either
// name fails normalization, both identifiers come back nil and no ID lookup
// is attempted. The trace always carries both normalized values for
// diagnostics, nil where normalization failed.
func (r *Resolver) Resolve(rawItem, rawClient string) (models.ResolvedIDs, map[string]any, error) {
	trace := make(map[string]any)

	canonItem, itemOK, err := r.normalizer.Normalize(rawItem, store.CategoryItem)
	if err != nil {
		return models.ResolvedIDs{}, trace, err
	}
	canonClient, clientOK, err := r.normalizer.Normalize(rawClient, store.CategoryClient)
	if err != nil {
		return models.ResolvedIDs{}, trace, err
	}

	if itemOK {
		trace["normalized_item"] = canonItem
	} else {
		trace["normalized_item"] = nil
	}
	if clientOK {
		trace["normalized_client"] = canonClient
	} else {
		trace["normalized_client"] = nil
	}

	if !itemOK || !clientOK {
		return models.ResolvedIDs{}, trace, nil
	}

	itemID, err := r.refStore.LookupID(store.CategoryItem, canonItem)
	if err != nil {
		return models.ResolvedIDs{}, trace, err
	}
	clientID, err := r.refStore.LookupID(store.CategoryClient, canonClient)
	if err != nil {
		return models.ResolvedIDs{}, trace, err
	}

	return models.ResolvedIDs{ItemID: itemID, ClientID: clientID}, trace, nil
}
