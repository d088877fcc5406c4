package extraction

import (
	"fmt"

	"github.com/username/smartflow/backend/src/config"
	"github.com/username/smartflow/backend/src/store"
)

// GetExtractor assembles the configured extraction chain. The heuristic
// fallback is always constructed; the remote provider wraps it behind the
// resilience layer.
func GetExtractor(refStore store.ReferenceStore) (Extractor, error) {
	fallback, err := NewHeuristicExtractor(refStore)
	if err != nil {
		return nil, err
	}

	switch config.Cfg.ExtractorProvider {
	case "gemini":
		primary := NewGeminiExtractor(
			config.Cfg.GeminiEndpoint,
			config.Cfg.GeminiModel,
			config.Cfg.GeminiAPIKey,
			config.Cfg.ExtractionTimeout,
		)
		return NewResilientExtractor(primary, fallback, config.Cfg.ExtractionMaxAttempts), nil
	case "heuristic":
		return fallback, nil
	default:
		return nil, fmt.Errorf("no extractor available for provider: %s", config.Cfg.ExtractorProvider)
	}
}
