package extraction

import (
	"context"
	"errors"

	"github.com/username/smartflow/backend/src/models"
)

// Extractor turns free text into a structured, untrusted payload.
type Extractor interface {
	Extract(ctx context.Context, rawText string) (models.ExtractedPayload, error)
}

// ErrExtractionFailed wraps any failure to obtain a structured payload from
// an extractor.
var ErrExtractionFailed = errors.New("extraction failed")
