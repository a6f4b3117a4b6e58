package monitoring

import (
	"context"
	"fmt"

	"spot-trainer/core/models"

	"go.uber.org/zap"
)

// MetricsSink receives per-epoch reports
type MetricsSink interface {
	Metrics(ctx context.Context, report models.MetricsReport) error
}

// MetricsHook reports each epoch's loss and accuracy. Epochs missing either
// figure are skipped without error.
func MetricsHook(sink MetricsSink, logger *zap.Logger) EpochEndHandler {
	return func(ctx context.Context, epoch int, logs models.EpochLogs) (Signal, error) {
		report, ok := models.BuildMetricsReport(epoch, logs)
		if !ok {
			logger.Debug("epoch logs lack loss or accuracy, not reporting", zap.Int("epoch", epoch))
			return Continue, nil
		}
		if err := sink.Metrics(ctx, report); err != nil {
			return Continue, fmt.Errorf("failed to report metrics for epoch %d: %w", epoch, err)
		}
		return Continue, nil
	}
}
