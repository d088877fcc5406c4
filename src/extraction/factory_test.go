package extraction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/smartflow/backend/src/config"
)

func TestGetExtractor(t *testing.T) {
	refStore := &fakeReferenceStore{
		items:   []string{"iPhone 15"},
		clients: []string{"Client A"},
	}

	testCases := []struct {
		provider string
		want     any
		wantErr  bool
	}{
		{provider: "gemini", want: &ResilientExtractor{}},
		{provider: "heuristic", want: &HeuristicExtractor{}},
		{provider: "carrier-pigeon", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.provider, func(t *testing.T) {
			config.Cfg = &config.AppConfig{
				ExtractorProvider:     tc.provider,
				GeminiModel:           "gemini-1.5-flash",
				GeminiEndpoint:        "https://example.invalid/v1beta",
				ExtractionTimeout:     time.Second,
				ExtractionMaxAttempts: 2,
			}

			extractor, err := GetExtractor(refStore)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.provider)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tc.want, extractor)
		})
	}
}
