package storage

import (
	"context"

	"go.uber.org/zap"
)

// DevStore stands in for remote storage in dev mode. Every call is logged
// and skipped; nothing ever exists.
type DevStore struct {
	logger *zap.Logger
}

// NewDevStore creates a new dev-mode store
func NewDevStore(logger *zap.Logger) *DevStore {
	return &DevStore{logger: logger}
}

// Exists always reports the object as absent
func (s *DevStore) Exists(_ context.Context, bucket, key string) (bool, error) {
	s.logger.Info("skipping checking if there are existing checkpoints",
		zap.String("bucket", bucket), zap.String("key", key))
	return false, nil
}

// Download does nothing
func (s *DevStore) Download(_ context.Context, bucket, key, localPath string) error {
	s.logger.Info("skipping loading checkpoint",
		zap.String("bucket", bucket), zap.String("key", key), zap.String("path", localPath))
	return nil
}

// Upload does nothing
func (s *DevStore) Upload(_ context.Context, localPath, bucket, key string) error {
	s.logger.Info("skipping saving checkpoint file to remote storage",
		zap.String("path", localPath), zap.String("bucket", bucket), zap.String("key", key))
	return nil
}
