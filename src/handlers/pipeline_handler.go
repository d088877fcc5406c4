package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/patrickmn/go-cache"
	"github.com/username/smartflow/backend/src/config"
	"github.com/username/smartflow/backend/src/logger"
	"github.com/username/smartflow/backend/src/models"
	"github.com/username/smartflow/backend/src/utils"
	"github.com/username/smartflow/backend/src/validation"
)

// Pipeline is the request-processing contract consumed by the HTTP layer.
type Pipeline interface {
	Process(ctx context.Context, rawText string) (*models.PipelineResponse, error)
}

// ProcessRequest is the input schema for the process endpoint.
type ProcessRequest struct {
	Text string `json:"text"`
}

type PipelineHandler struct {
	pipeline    Pipeline
	reportCache *cache.Cache
}

func NewPipelineHandler(pipeline Pipeline, reportCache *cache.Cache) *PipelineHandler {
	return &PipelineHandler{
		pipeline:    pipeline,
		reportCache: reportCache,
	}
}

// HandleProcess runs the validation pipeline for one raw request. Rejections
// are returned with status 200 and a REJECTED body so callers can surface
// the reason; only infrastructure faults map to 5xx.
func (h *PipelineHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxRequestBytes)

	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.L.Warn("Failed to decode process request body", "error", err)
		utils.SendJSONError(w, "invalid request body: expected JSON with a 'text' field", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateRawText(req.Text, config.Cfg.MaxRequestBytes); err != nil {
		if errors.Is(err, validation.ErrValidationFailed) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		utils.SendJSONError(w, "request validation error", http.StatusInternalServerError)
		return
	}

	result, err := h.pipeline.Process(r.Context(), req.Text)
	if err != nil {
		logger.L.Error("Pipeline infrastructure fault", "error", err)
		utils.SendJSONError(w, "An internal error occurred while processing the transaction. Please try again later.", http.StatusInternalServerError)
		return
	}

	if result.Status == models.StatusSuccess {
		// New fact rows invalidate the dashboard cache.
		h.reportCache.Delete(ckRecentTransactions)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Error encoding JSON response for pipeline result", "error", err)
	}
}
