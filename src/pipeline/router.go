package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/username/smartflow/backend/src/extraction"
	"github.com/username/smartflow/backend/src/integrity"
	"github.com/username/smartflow/backend/src/logger"
	"github.com/username/smartflow/backend/src/logic"
	"github.com/username/smartflow/backend/src/models"
	"github.com/username/smartflow/backend/src/store"
	"github.com/username/smartflow/backend/src/validation"
)

// SourceTag marks rows written by this API version.
const SourceTag = "API_V1"

// AnomalyScorer is the scoring contract the router depends on. More negative
// means more anomalous; negative means flagged.
type AnomalyScorer interface {
	Score(quantity int, unitPrice float64) float64
}

// TransactionRouter sequences the validation gates over one raw request and
// commits the final decision exactly once. Gates run strictly in order; the
// first failure short-circuits to a rejection carrying the partial trace.
type TransactionRouter struct {
	extractor extraction.Extractor
	resolver  *integrity.Resolver
	engine    *logic.Engine
	scorer    AnomalyScorer
	txStore   store.TransactionStore
	idemStore store.IdempotencyStore
}

func NewTransactionRouter(
	extractor extraction.Extractor,
	resolver *integrity.Resolver,
	engine *logic.Engine,
	scorer AnomalyScorer,
	txStore store.TransactionStore,
	idemStore store.IdempotencyStore,
) *TransactionRouter {
	return &TransactionRouter{
		extractor: extractor,
		resolver:  resolver,
		engine:    engine,
		scorer:    scorer,
		txStore:   txStore,
		idemStore: idemStore,
	}
}

// Fingerprint is the deterministic hash identifying a raw request for
// duplicate detection. Byte-exact: no trimming, no normalization.
func Fingerprint(rawText string) string {
	hash := sha256.Sum256([]byte(rawText))
	return hex.EncodeToString(hash[:])
}

// Process runs the full pipeline for one raw request. Rejections come back
// inside the response with a reason and partial trace; the returned error is
// reserved for infrastructure faults (unreachable reference store, corrupt
// configuration) that the caller should treat as fatal.
func (r *TransactionRouter) Process(ctx context.Context, rawText string) (*models.PipelineResponse, error) {
	response := &models.PipelineResponse{
		Status: models.StatusRejected,
		Logs:   make(map[string]any),
	}

	// Gate 0: idempotency. The check here and the commit after persistence
	// are not atomic; two identical concurrent requests may both pass.
	// Accepted failure mode is at-most-one-wins.
	requestHash := Fingerprint(rawText)
	duplicate, err := r.idemStore.HasFingerprint(requestHash)
	if err != nil {
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if duplicate {
		logger.L.Info("Duplicate request rejected", "hash", requestHash)
		response.Error = "duplicate transaction detected (idempotency guard)"
		return response, nil
	}

	// Gate 1: extraction. The resilient extractor degrades to the heuristic
	// fallback internally, so a hard failure here means even the fallback
	// produced nothing.
	payload, err := r.extractor.Extract(ctx, rawText)
	if err != nil || len(payload) == 0 {
		logger.L.Warn("Extraction produced no payload", "error", err)
		response.Error = "extraction failed to produce a structured record"
		return response, nil
	}
	response.Logs["parsed_json"] = payload

	// Gate 2: structural validation. All violations are reported together.
	result := validation.ValidateStructure(payload)
	if !result.Valid {
		response.Error = "structural error: " + strings.Join(result.Errors, "; ")
		return response, nil
	}
	record, ok := validation.ToRecord(payload)
	if !ok {
		response.Error = "structural error: payload could not be converted"
		return response, nil
	}

	// Gate 3: entity resolution.
	ids, normTrace, err := r.resolver.Resolve(record.Item, record.Client)
	response.Logs["normalization"] = normTrace
	if err != nil {
		return nil, fmt.Errorf("entity resolution failed: %w", err)
	}
	if ids.ItemID == nil || ids.ClientID == nil {
		response.Error = fmt.Sprintf("unknown entity: item_id=%s, client_id=%s",
			formatID(ids.ItemID), formatID(ids.ClientID))
		return response, nil
	}

	// Gate 4: business rules.
	decision, err := r.engine.CheckStock(*ids.ItemID, record.Quantity)
	if err != nil {
		return nil, fmt.Errorf("stock check failed: %w", err)
	}
	if !decision.Allowed {
		response.Error = "business rule violation: " + decision.Reason
		return response, nil
	}

	// Gate 5: anomaly scoring. Never rejects; the scorer falls back to a
	// normal score if misconfigured.
	score := r.scorer.Score(record.Quantity, decision.UnitPrice)
	response.Logs["ml_score"] = score

	transaction := &models.TransactionRecord{
		ClientID:     *ids.ClientID,
		ItemID:       *ids.ItemID,
		Quantity:     record.Quantity,
		TotalPrice:   float64(record.Quantity) * decision.UnitPrice,
		AnomalyScore: score,
		IsFlagged:    score < 0,
		SourceTag:    SourceTag,
	}

	// Persist, then lock the fingerprint. A request that failed any earlier
	// gate must remain retryable verbatim, so the fingerprint is only
	// recorded after a successful insert.
	if err := r.txStore.Insert(transaction); err != nil {
		logger.L.Error("Transaction insert failed", "error", err)
		response.Error = "database commit failed"
		return response, nil
	}

	if err := r.idemStore.RecordFingerprint(requestHash); err != nil {
		// The transaction is already durable; a missed fingerprint only
		// weakens duplicate detection for this exact text.
		logger.L.Warn("Failed to record idempotency fingerprint", "hash", requestHash, "error", err)
	}

	response.Status = models.StatusSuccess
	response.Data = transaction
	return response, nil
}

func formatID(id *int64) string {
	if id == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *id)
}
