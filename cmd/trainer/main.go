package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"spot-trainer/api/jobcontrol"
	"spot-trainer/config"
	"spot-trainer/core/spec"
	"spot-trainer/logging"
	"spot-trainer/providers"
	"spot-trainer/storage"
	"spot-trainer/training"
	"spot-trainer/training/logreg"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.DevMode, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	runID := uuid.NewString()
	logger = logger.With(zap.String("job_id", cfg.JobID), zap.String("run_id", runID))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := run(ctx, cfg, runID, logger)
	if err != nil {
		logger.Fatal("training failed", zap.Error(err), zap.String("context", cfg.ErrorContext()))
	}

	if result.State == training.StateCheckpointedAndHalted {
		logger.Info("checkpoint saved after pre-emption notice, exiting", zap.Int("epoch", result.HaltEpoch))
		logger.Sync()
		os.Exit(0)
	}

	logger.Info("training completed", zap.Int("epochs", len(result.History.Epochs)), zap.Any("final", result.History.Last()))
}

func run(ctx context.Context, cfg *config.Config, runID string, logger *zap.Logger) (*training.Result, error) {
	runSpec := spec.Default()
	if cfg.TrainingSpecPath != "" {
		var err error
		if runSpec, err = spec.LoadFile(cfg.TrainingSpecPath); err != nil {
			return nil, err
		}
	}

	collaborators, err := providers.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	checkpoints := storage.NewCheckpointManager(cfg, collaborators.Store, logger)

	var notifier training.Notifier
	if cfg.DevMode {
		notifier = jobcontrol.NewDevNotifier(cfg, logger)
	} else {
		notifier = jobcontrol.NewHTTPNotifier(cfg, runID, logger)
	}

	t, d := runSpec.Training, runSpec.Data
	model := logreg.New(d.Features, t.Seed)
	x, y := logreg.SyntheticDataset(d.Samples, d.Features, d.Noise, t.Seed)

	session := training.NewSession(model, checkpoints, collaborators.Detector, notifier, logger)
	if err := session.Compile(ctx, training.CompileOptions{
		Optimizer:    t.Optimizer,
		Loss:         t.Loss,
		Metrics:      t.Metrics,
		LearningRate: t.LearningRate,
	}); err != nil {
		return nil, err
	}

	opts := fitOptions(runSpec, cfg, session.Restored(), x, y)
	if opts.InitialEpoch > 0 {
		logger.Info("resuming from checkpoint", zap.Int("initial_epoch", opts.InitialEpoch), zap.Int("epochs", opts.Epochs))
	}
	return session.Fit(ctx, opts)
}

// fitOptions builds the Fit call for runSpec. RESUME_EPOCH only applies when
// weights were actually restored; a fresh model always starts at epoch 0.
func fitOptions(runSpec *spec.RunSpec, cfg *config.Config, restored bool, x [][]float64, y []float64) training.FitOptions {
	t := runSpec.Training
	opts := training.FitOptions{
		X:               x,
		Y:               y,
		BatchSize:       t.BatchSize,
		Epochs:          t.Epochs,
		ValidationSplit: t.ValidationSplit,
		Shuffle:         runSpec.ShuffleEnabled(),
	}
	if restored {
		opts.InitialEpoch = cfg.ResumeEpoch
	}
	return opts
}
