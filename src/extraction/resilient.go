package extraction

import (
	"context"
	"time"

	"github.com/username/smartflow/backend/src/logger"
	"github.com/username/smartflow/backend/src/models"
)

// ResilientExtractor tries the primary extractor with a bounded number of
// attempts and degrades to the fallback on any failure. Extraction failures
// are never surfaced to the pipeline; the pipeline always receives some
// structured payload to validate.
type ResilientExtractor struct {
	primary     Extractor
	fallback    Extractor
	maxAttempts int
	retryWait   time.Duration
}

func NewResilientExtractor(primary, fallback Extractor, maxAttempts int) *ResilientExtractor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ResilientExtractor{
		primary:     primary,
		fallback:    fallback,
		maxAttempts: maxAttempts,
		retryWait:   2 * time.Second,
	}
}

func (e *ResilientExtractor) Extract(ctx context.Context, rawText string) (models.ExtractedPayload, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		payload, err := e.primary.Extract(ctx, rawText)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		logger.L.Warn("Primary extraction attempt failed", "attempt", attempt, "maxAttempts", e.maxAttempts, "error", err)

		if attempt < e.maxAttempts {
			select {
			case <-time.After(e.retryWait):
			case <-ctx.Done():
				attempt = e.maxAttempts // stop retrying, fall back now
			}
		}
	}

	logger.L.Warn("Primary extraction exhausted, switching to heuristic fallback", "error", lastErr)
	return e.fallback.Extract(ctx, rawText)
}
