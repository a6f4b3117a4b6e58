package training

import (
	"context"
	"fmt"

	"spot-trainer/core/models"
	"spot-trainer/core/monitoring"
)

// EpochFunc trains a single epoch and returns its logs
type EpochFunc func(ctx context.Context, epoch int) (models.EpochLogs, error)

// RunEpochs is the epoch loop for Model implementations. After each epoch the
// handlers run in order; the first StopTraining ends the loop before any
// remaining handler or epoch. Handler errors end the loop and are returned.
func RunEpochs(
	ctx context.Context,
	initialEpoch int,
	epochs int,
	step EpochFunc,
	handlers []monitoring.EpochEndHandler,
) (*History, error) {
	history := &History{}

	for epoch := initialEpoch; epoch < epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return history, err
		}

		logs, err := step(ctx, epoch)
		if err != nil {
			return history, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		history.Epochs = append(history.Epochs, epoch)
		history.Logs = append(history.Logs, logs)

		for _, handler := range handlers {
			signal, err := handler(ctx, epoch, logs)
			if err != nil {
				return history, fmt.Errorf("epoch %d end: %w", epoch, err)
			}
			if signal == monitoring.StopTraining {
				history.Stopped = true
				return history, nil
			}
		}
	}

	return history, nil
}
