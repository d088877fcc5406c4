package ml

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/smartflow/backend/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestNewDetectorTrainsAndSaves(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "isolation_forest.json")

	detector, err := NewDetector(modelPath)
	require.NoError(t, err)
	require.NotNil(t, detector)

	_, err = os.Stat(modelPath)
	assert.NoError(t, err, "model file should be written on first training")
}

func TestScoreOrdering(t *testing.T) {
	detector, err := NewDetector(filepath.Join(t.TempDir(), "model.json"))
	require.NoError(t, err)

	normal := detector.Score(5, 1000)
	large := detector.Score(50, 1000)
	extreme := detector.Score(500, 100000)

	// Further from the trained normal region means a lower score.
	assert.Greater(t, normal, large)
	assert.Greater(t, large, extreme)
	// A point far outside quantity [1,10) and price [100,2000) is flagged.
	assert.Less(t, extreme, 0.0)
	// A point in the middle of the trained region is not.
	assert.GreaterOrEqual(t, normal, 0.0)
}

func TestScoreIsDeterministicAcrossReload(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.json")

	first, err := NewDetector(modelPath)
	require.NoError(t, err)
	second, err := NewDetector(modelPath) // loads the saved model
	require.NoError(t, err)

	for _, tc := range [][2]float64{{2, 1000}, {50, 1000}, {9, 1999}} {
		assert.Equal(t, first.Score(int(tc[0]), tc[1]), second.Score(int(tc[0]), tc[1]),
			"loaded model must reproduce the trained model's scores")
	}
}

func TestNilDetectorFallsBackToNormal(t *testing.T) {
	var detector *Detector
	assert.Equal(t, 1.0, detector.Score(5, 1000))

	empty := &Detector{}
	assert.Equal(t, 1.0, empty.Score(5, 1000))
}

func TestNewDetectorRejectsCorruptModel(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(modelPath, []byte("{not json"), 0o644))

	_, err := NewDetector(modelPath)
	require.Error(t, err)
}

func TestFitValidatesInput(t *testing.T) {
	_, err := Fit(nil, 0.05, 42)
	require.Error(t, err)

	_, err = Fit([][2]float64{{1, 100}}, 1.5, 42)
	require.Error(t, err)
}

func TestFitFlagsApproximatelyContaminationFraction(t *testing.T) {
	forest, err := Fit(syntheticRows(t), 0.05, 42)
	require.NoError(t, err)

	flagged := 0
	for _, row := range syntheticRows(t) {
		if forest.DecisionFunction(row) < 0 {
			flagged++
		}
	}
	// The offset is the 5% quantile of training scores, so close to 5% of
	// the training data lands below zero.
	assert.InDelta(t, 50, flagged, 25)
}

func syntheticRows(t *testing.T) [][2]float64 {
	t.Helper()
	rng := rand.New(rand.NewSource(trainingSeed))
	rows := make([][2]float64, trainingRows)
	for i := range rows {
		qty := 1 + rng.Intn(9)
		price := 100 + rng.Intn(1900)
		rows[i] = [2]float64{float64(qty), float64(price)}
	}
	return rows
}
