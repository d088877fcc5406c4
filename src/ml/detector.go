package ml

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/username/smartflow/backend/src/logger"
)

const (
	trainingRows  = 1000
	contamination = 0.05
	trainingSeed  = 42
)

// Detector scores transactions for anomalousness with a pre-fitted isolation
// forest. Scoring is a pure function of the fitted model; a detector without
// a model falls back to a normal score rather than failing the pipeline.
type Detector struct {
	forest *IsolationForest
}

// NewDetector loads the model from modelPath, or trains a new one on
// synthetic normal data and saves it there when no saved model exists.
// Initialization is explicit: the pipeline never mutates model state after
// construction.
func NewDetector(modelPath string) (*Detector, error) {
	if _, err := os.Stat(modelPath); err == nil {
		forest, loadErr := loadModel(modelPath)
		if loadErr != nil {
			return nil, fmt.Errorf("error loading anomaly model from %s: %w", modelPath, loadErr)
		}
		logger.L.Info("Anomaly model loaded", "path", modelPath, "trees", len(forest.Trees))
		return &Detector{forest: forest}, nil
	}

	logger.L.Info("Anomaly model not found. Training new model on synthetic data...", "path", modelPath)
	forest, err := trainSynthetic()
	if err != nil {
		return nil, fmt.Errorf("error training anomaly model: %w", err)
	}
	if err := saveModel(modelPath, forest); err != nil {
		return nil, fmt.Errorf("error saving anomaly model to %s: %w", modelPath, err)
	}
	logger.L.Info("Anomaly model trained and saved", "path", modelPath)
	return &Detector{forest: forest}, nil
}

// Score returns the anomaly score for one transaction. Negative means
// flagged. A detector without a fitted model reports 1.0, the normal
// fallback.
func (d *Detector) Score(quantity int, unitPrice float64) float64 {
	if d == nil || d.forest == nil {
		return 1.0
	}
	return d.forest.DecisionFunction([2]float64{float64(quantity), unitPrice})
}

// trainSynthetic generates normal sales behavior to fit against: small
// quantities in [1,10) and prices in [100,2000).
func trainSynthetic() (*IsolationForest, error) {
	rng := rand.New(rand.NewSource(trainingSeed))
	data := make([][2]float64, trainingRows)
	for i := range data {
		qty := 1 + rng.Intn(9)
		price := 100 + rng.Intn(1900)
		data[i] = [2]float64{float64(qty), float64(price)}
	}
	return Fit(data, contamination, trainingSeed)
}

func loadModel(path string) (*IsolationForest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var forest IsolationForest
	if err := json.Unmarshal(raw, &forest); err != nil {
		return nil, fmt.Errorf("corrupt model file: %w", err)
	}
	if len(forest.Trees) == 0 || forest.SampleSize <= 0 {
		return nil, fmt.Errorf("corrupt model file: no trees")
	}
	return &forest, nil
}

func saveModel(path string, forest *IsolationForest) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	raw, err := json.Marshal(forest)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
