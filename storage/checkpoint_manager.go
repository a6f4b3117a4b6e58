package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"spot-trainer/config"

	"go.uber.org/zap"
)

// CheckpointManager keeps a job's single remote checkpoint in sync with the
// model: it restores the checkpoint before training and overwrites it when the
// instance is about to be reclaimed.
type CheckpointManager struct {
	store     ObjectStore
	bucket    string
	key       string
	localPath string
	logger    *zap.Logger
}

// NewCheckpointManager creates a new checkpoint manager for cfg's job
func NewCheckpointManager(cfg *config.Config, store ObjectStore, logger *zap.Logger) *CheckpointManager {
	return &CheckpointManager{
		store:     store,
		bucket:    cfg.BucketName,
		key:       cfg.CheckpointKey(),
		localPath: cfg.CheckpointPath(),
		logger:    logger.With(zap.String("bucket", cfg.BucketName), zap.String("key", cfg.CheckpointKey())),
	}
}

// Exists reports whether the job has a checkpoint. A missing object is not an
// error; anything else the store returns is.
func (cm *CheckpointManager) Exists(ctx context.Context) (bool, error) {
	exists, err := cm.store.Exists(ctx, cm.bucket, cm.key)
	if err != nil {
		return false, fmt.Errorf("failed to check checkpoint %s in bucket %s: %w", cm.key, cm.bucket, err)
	}
	return exists, nil
}

// Restore downloads the job's checkpoint, if there is one, and loads it into
// model. It reports whether weights were loaded.
func (cm *CheckpointManager) Restore(ctx context.Context, model WeightsLoader) (bool, error) {
	exists, err := cm.Exists(ctx)
	if err != nil {
		return false, err
	}
	if !exists {
		cm.logger.Info("no existing checkpoint, starting from fresh weights")
		return false, nil
	}

	cm.logger.Info("existing checkpoint found", zap.String("path", cm.localPath))

	if err := cm.ensureLocalDir(); err != nil {
		return false, err
	}
	if err := cm.store.Download(ctx, cm.bucket, cm.key, cm.localPath); err != nil {
		return false, fmt.Errorf("failed to download checkpoint %s from bucket %s: %w", cm.key, cm.bucket, err)
	}
	if err := model.LoadWeights(cm.localPath); err != nil {
		return false, fmt.Errorf("failed to load checkpoint %s: %w", cm.localPath, err)
	}

	return true, nil
}

// Save writes model's weights locally and uploads them over the job's checkpoint
func (cm *CheckpointManager) Save(ctx context.Context, model WeightsSaver) error {
	if err := cm.ensureLocalDir(); err != nil {
		return err
	}
	if err := model.SaveWeights(cm.localPath); err != nil {
		return fmt.Errorf("failed to save weights to %s: %w", cm.localPath, err)
	}

	cm.logger.Info("uploading checkpoint file", zap.String("path", cm.localPath))
	if err := cm.store.Upload(ctx, cm.localPath, cm.bucket, cm.key); err != nil {
		return fmt.Errorf("failed to upload checkpoint %s to bucket %s: %w", cm.key, cm.bucket, err)
	}

	return nil
}

// LocalPath is where checkpoints are staged on disk
func (cm *CheckpointManager) LocalPath() string {
	return cm.localPath
}

func (cm *CheckpointManager) ensureLocalDir() error {
	if err := os.MkdirAll(filepath.Dir(cm.localPath), 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return nil
}
