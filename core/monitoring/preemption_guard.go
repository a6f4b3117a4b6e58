package monitoring

import (
	"context"
	"fmt"

	"spot-trainer/core/models"
	"spot-trainer/core/preemption"
	"spot-trainer/storage"

	"go.uber.org/zap"
)

// CheckpointSaver uploads the model's current weights
type CheckpointSaver interface {
	Save(ctx context.Context, model storage.WeightsSaver) error
}

// HaltNotifier announces that the job stopped because of pre-emption
type HaltNotifier interface {
	Halt(ctx context.Context) error
}

// PreemptionGuard checks for a termination notice after every epoch. On the
// first notice it saves a checkpoint, announces the halt and stops training.
type PreemptionGuard struct {
	detector    preemption.Detector
	checkpoints CheckpointSaver
	notifier    HaltNotifier
	model       storage.WeightsSaver
	logger      *zap.Logger

	triggered    bool
	checkpointed bool
	haltEpoch    int
}

// NewPreemptionGuard creates a guard for model
func NewPreemptionGuard(
	detector preemption.Detector,
	checkpoints CheckpointSaver,
	notifier HaltNotifier,
	model storage.WeightsSaver,
	logger *zap.Logger,
) *PreemptionGuard {
	return &PreemptionGuard{
		detector:    detector,
		checkpoints: checkpoints,
		notifier:    notifier,
		model:       model,
		logger:      logger,
	}
}

// OnEpochEnd is the guard's EpochEndHandler
func (g *PreemptionGuard) OnEpochEnd(ctx context.Context, epoch int, _ models.EpochLogs) (Signal, error) {
	if g.triggered {
		return StopTraining, nil
	}
	if !g.detector.IsDying(ctx) {
		return Continue, nil
	}

	g.triggered = true
	g.haltEpoch = epoch
	g.logger.Warn("instance is being reclaimed, checkpointing and halting", zap.Int("epoch", epoch))

	if err := g.checkpoints.Save(ctx, g.model); err != nil {
		return StopTraining, fmt.Errorf("failed to checkpoint at epoch %d: %w", epoch, err)
	}
	g.checkpointed = true

	if err := g.notifier.Halt(ctx); err != nil {
		return StopTraining, fmt.Errorf("failed to announce halt at epoch %d: %w", epoch, err)
	}

	return StopTraining, nil
}

// Triggered reports whether a notice was observed
func (g *PreemptionGuard) Triggered() bool {
	return g.triggered
}

// Checkpointed reports whether the checkpoint was uploaded after the notice
func (g *PreemptionGuard) Checkpointed() bool {
	return g.checkpointed
}

// HaltEpoch is the epoch after which the notice was observed
func (g *PreemptionGuard) HaltEpoch() int {
	return g.haltEpoch
}
