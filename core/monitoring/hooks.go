package monitoring

import (
	"context"

	"spot-trainer/core/models"
)

// Signal tells the epoch driver whether to keep training
type Signal int

const (
	// Continue lets the driver run the next handler and epoch
	Continue Signal = iota
	// StopTraining ends training immediately: no later handler for this
	// epoch runs, and no later epoch starts.
	StopTraining
)

func (s Signal) String() string {
	if s == StopTraining {
		return "stop_training"
	}
	return "continue"
}

// EpochEndHandler runs after every epoch with that epoch's logs
type EpochEndHandler func(ctx context.Context, epoch int, logs models.EpochLogs) (Signal, error)
