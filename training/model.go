package training

import (
	"context"

	"spot-trainer/core/models"
	"spot-trainer/core/monitoring"
	"spot-trainer/storage"
)

// Model is the training library's model. The session only decorates these
// calls; optimisation, data handling and the epoch loop stay in the library.
type Model interface {
	storage.WeightsLoader
	storage.WeightsSaver

	Compile(opts CompileOptions) error
	Fit(ctx context.Context, opts FitOptions) (*History, error)
}

// CompileOptions are passed through to Model.Compile
type CompileOptions struct {
	Optimizer    string
	Loss         string
	Metrics      []string
	LearningRate float64
}

// FitOptions are passed through to Model.Fit. Epochs is the index of the
// final epoch, so training runs InitialEpoch..Epochs-1.
type FitOptions struct {
	X               [][]float64
	Y               []float64
	BatchSize       int
	Epochs          int
	InitialEpoch    int
	ValidationSplit float64
	Shuffle         bool
	Callbacks       []monitoring.EpochEndHandler
}

// History records the epochs a Fit call ran
type History struct {
	Epochs  []int
	Logs    []models.EpochLogs
	Stopped bool // A handler returned StopTraining
}

// Last returns the logs of the final epoch run, or nil
func (h *History) Last() models.EpochLogs {
	if h == nil || len(h.Logs) == 0 {
		return nil
	}
	return h.Logs[len(h.Logs)-1]
}
