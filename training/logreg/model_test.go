package logreg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"spot-trainer/training"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_Learns(t *testing.T) {
	x, y := SyntheticDataset(400, 3, 0, 7)
	m := New(3, 1)
	require.NoError(t, m.Compile(training.CompileOptions{Optimizer: "sgd", LearningRate: 0.5}))

	history, err := m.Fit(context.Background(), training.FitOptions{
		X: x, Y: y, BatchSize: 16, Epochs: 30, ValidationSplit: 0.25, Shuffle: true,
	})
	require.NoError(t, err)

	require.Len(t, history.Epochs, 30)
	first, last := history.Logs[0], history.Last()
	assert.Less(t, last["loss"], first["loss"])
	assert.Greater(t, last["acc"], 0.9)
	assert.Contains(t, last, "val_loss")
	assert.Contains(t, last, "val_acc")
}

func TestModel_NoValidationKeysWithoutSplit(t *testing.T) {
	x, y := SyntheticDataset(50, 2, 0, 3)
	m := New(2, 1)
	require.NoError(t, m.Compile(training.CompileOptions{}))

	history, err := m.Fit(context.Background(), training.FitOptions{X: x, Y: y, Epochs: 1})
	require.NoError(t, err)
	assert.NotContains(t, history.Last(), "val_loss")
	assert.NotContains(t, history.Last(), "val_acc")
}

func TestModel_FitValidation(t *testing.T) {
	m := New(2, 1)
	_, err := m.Fit(context.Background(), training.FitOptions{X: [][]float64{{1, 2}}, Y: []float64{1}, Epochs: 1})
	assert.ErrorIs(t, err, ErrNotCompiled)

	require.NoError(t, m.Compile(training.CompileOptions{}))

	_, err = m.Fit(context.Background(), training.FitOptions{X: [][]float64{{1}}, Y: []float64{1}, Epochs: 1})
	assert.ErrorContains(t, err, "features")

	_, err = m.Fit(context.Background(), training.FitOptions{X: [][]float64{{1, 2}}, Y: nil, Epochs: 1})
	assert.Error(t, err)

	_, err = m.Fit(context.Background(), training.FitOptions{X: [][]float64{{1, 2}}, Y: []float64{0}, Epochs: 1, ValidationSplit: 1})
	assert.Error(t, err)
}

func TestModel_CompileRejectsUnknownOptimizer(t *testing.T) {
	m := New(2, 1)
	assert.Error(t, m.Compile(training.CompileOptions{Optimizer: "adam"}))
	assert.Error(t, m.Compile(training.CompileOptions{Loss: "mse"}))
}

func TestModel_WeightsRoundTrip(t *testing.T) {
	x, y := SyntheticDataset(100, 4, 0.05, 11)
	trained := New(4, 1)
	require.NoError(t, trained.Compile(training.CompileOptions{LearningRate: 0.3}))
	_, err := trained.Fit(context.Background(), training.FitOptions{X: x, Y: y, Epochs: 3})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "job.h5")
	require.NoError(t, trained.SaveWeights(path))

	fresh := New(4, 99)
	require.NoError(t, fresh.LoadWeights(path))
	assert.Equal(t, trained.Weights, fresh.Weights)
	assert.Equal(t, trained.Bias, fresh.Bias)
}

func TestModel_LoadWeightsErrors(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "three.h5")
	require.NoError(t, New(3, 1).SaveWeights(path))
	assert.ErrorContains(t, New(2, 1).LoadWeights(path), "features")

	garbage := filepath.Join(dir, "garbage.h5")
	require.NoError(t, os.WriteFile(garbage, []byte("not zlib"), 0o644))
	assert.Error(t, New(2, 1).LoadWeights(garbage))

	assert.Error(t, New(2, 1).LoadWeights(filepath.Join(dir, "missing.h5")))
}

func TestSyntheticDataset_Deterministic(t *testing.T) {
	x1, y1 := SyntheticDataset(20, 3, 0.1, 5)
	x2, y2 := SyntheticDataset(20, 3, 0.1, 5)
	assert.Equal(t, x1, x2)
	assert.Equal(t, y1, y2)
	assert.Len(t, x1[0], 3)
}
