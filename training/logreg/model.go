// Package logreg is a minimal binary logistic-regression model trained with
// mini-batch SGD. It implements training.Model and is what cmd/trainer runs.
package logreg

import (
	"compress/zlib"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"

	"spot-trainer/core/models"
	"spot-trainer/training"
)

// ErrNotCompiled is returned by Fit before Compile
var ErrNotCompiled = errors.New("model must be compiled before fit")

const (
	defaultLearningRate = 0.1
	defaultBatchSize    = 32
	epsilon             = 1e-12
)

// Model is a logistic-regression classifier
type Model struct {
	Weights []float64
	Bias    float64

	learningRate float64
	compiled     bool
	rng          *rand.Rand
}

// weightsFile is the on-disk checkpoint layout
type weightsFile struct {
	Features int       `json:"features"`
	Weights  []float64 `json:"weights"`
	Bias     float64   `json:"bias"`
}

// New creates a zero-initialised model for the given number of features.
// seed drives batch shuffling.
func New(features int, seed int64) *Model {
	return &Model{
		Weights: make([]float64, features),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Compile configures the optimiser. Only plain SGD on binary cross-entropy is supported.
func (m *Model) Compile(opts training.CompileOptions) error {
	switch opts.Optimizer {
	case "", "sgd":
	default:
		return fmt.Errorf("unsupported optimizer %q", opts.Optimizer)
	}
	switch opts.Loss {
	case "", "binary_crossentropy":
	default:
		return fmt.Errorf("unsupported loss %q", opts.Loss)
	}

	m.learningRate = opts.LearningRate
	if m.learningRate <= 0 {
		m.learningRate = defaultLearningRate
	}
	m.compiled = true
	return nil
}

// Fit trains on X/Y. The last ValidationSplit fraction of the samples is held
// out for val_loss/val_acc.
func (m *Model) Fit(ctx context.Context, opts training.FitOptions) (*training.History, error) {
	if !m.compiled {
		return nil, ErrNotCompiled
	}
	if len(opts.X) == 0 || len(opts.X) != len(opts.Y) {
		return nil, fmt.Errorf("need matching non-empty inputs, got %d samples and %d labels", len(opts.X), len(opts.Y))
	}
	for i, row := range opts.X {
		if len(row) != len(m.Weights) {
			return nil, fmt.Errorf("sample %d has %d features, model has %d", i, len(row), len(m.Weights))
		}
	}
	if opts.ValidationSplit < 0 || opts.ValidationSplit >= 1 {
		return nil, fmt.Errorf("validation split %.2f out of range [0, 1)", opts.ValidationSplit)
	}

	nVal := int(float64(len(opts.X)) * opts.ValidationSplit)
	nTrain := len(opts.X) - nVal
	trainX, trainY := opts.X[:nTrain], opts.Y[:nTrain]
	valX, valY := opts.X[nTrain:], opts.Y[nTrain:]

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	order := make([]int, nTrain)
	for i := range order {
		order[i] = i
	}

	step := func(ctx context.Context, epoch int) (models.EpochLogs, error) {
		if opts.Shuffle {
			m.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		for start := 0; start < nTrain; start += batchSize {
			end := start + batchSize
			if end > nTrain {
				end = nTrain
			}
			m.sgdStep(trainX, trainY, order[start:end])
		}

		loss, acc := m.Evaluate(trainX, trainY)
		logs := models.EpochLogs{models.LogLoss: loss, models.LogAcc: acc}
		if nVal > 0 {
			valLoss, valAcc := m.Evaluate(valX, valY)
			logs[models.LogValLoss] = valLoss
			logs[models.LogValAcc] = valAcc
		}
		return logs, nil
	}

	return training.RunEpochs(ctx, opts.InitialEpoch, opts.Epochs, step, opts.Callbacks)
}

func (m *Model) sgdStep(x [][]float64, y []float64, batch []int) {
	grad := make([]float64, len(m.Weights))
	var gradBias float64
	for _, i := range batch {
		diff := m.Predict(x[i]) - y[i]
		for j, v := range x[i] {
			grad[j] += diff * v
		}
		gradBias += diff
	}
	scale := m.learningRate / float64(len(batch))
	for j := range m.Weights {
		m.Weights[j] -= scale * grad[j]
	}
	m.Bias -= scale * gradBias
}

// Predict returns P(y=1 | x)
func (m *Model) Predict(x []float64) float64 {
	z := m.Bias
	for j, v := range x {
		z += m.Weights[j] * v
	}
	return 1 / (1 + math.Exp(-z))
}

// Evaluate returns mean binary cross-entropy and accuracy on x/y
func (m *Model) Evaluate(x [][]float64, y []float64) (loss, accuracy float64) {
	if len(x) == 0 {
		return 0, 0
	}
	var correct int
	for i := range x {
		p := m.Predict(x[i])
		loss -= y[i]*math.Log(p+epsilon) + (1-y[i])*math.Log(1-p+epsilon)
		if (p >= 0.5) == (y[i] >= 0.5) {
			correct++
		}
	}
	n := float64(len(x))
	return loss / n, float64(correct) / n
}

// SaveWeights writes the parameters as zlib-compressed JSON, overwriting path
func (m *Model) SaveWeights(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	zw := zlib.NewWriter(file)
	err = json.NewEncoder(zw).Encode(weightsFile{
		Features: len(m.Weights),
		Weights:  m.Weights,
		Bias:     m.Bias,
	})
	if closeErr := zw.Close(); err == nil {
		err = closeErr
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return err
}

// LoadWeights replaces the parameters with those stored at path
func (m *Model) LoadWeights(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	zr, err := zlib.NewReader(file)
	if err != nil {
		return fmt.Errorf("weights file %s: %w", path, err)
	}
	defer zr.Close()

	var wf weightsFile
	if err := json.NewDecoder(zr).Decode(&wf); err != nil {
		return fmt.Errorf("weights file %s: %w", path, err)
	}
	if wf.Features != len(m.Weights) || len(wf.Weights) != len(m.Weights) {
		return fmt.Errorf("weights file %s has %d features, model has %d", path, wf.Features, len(m.Weights))
	}

	copy(m.Weights, wf.Weights)
	m.Bias = wf.Bias
	return nil
}
