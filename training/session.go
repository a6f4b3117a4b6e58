package training

import (
	"context"
	"errors"
	"fmt"

	"spot-trainer/core/monitoring"
	"spot-trainer/core/preemption"
	"spot-trainer/storage"

	"go.uber.org/zap"
)

// ErrSessionState is returned when Compile or Fit is called out of order
var ErrSessionState = errors.New("invalid session state")

// State is the lifecycle state of a training session
type State string

const (
	StateNotStarted            State = "not_started"
	StateRunning               State = "running"
	StateCheckpointedAndHalted State = "checkpointed_and_halted"
	StateCompleted             State = "completed"
	StateFailed                State = "failed"
)

// Checkpointer restores and saves the job's remote checkpoint
type Checkpointer interface {
	Restore(ctx context.Context, model storage.WeightsLoader) (bool, error)
	Save(ctx context.Context, model storage.WeightsSaver) error
}

// Notifier is the job control API as seen by a session
type Notifier interface {
	monitoring.MetricsSink
	monitoring.HaltNotifier
	Start(ctx context.Context) error
}

// Result describes how Fit ended
type Result struct {
	State     State
	History   *History
	HaltEpoch int // Valid when State is StateCheckpointedAndHalted
}

// Session wraps one job's model. Compile resumes from the job's checkpoint;
// Fit announces the run and installs the metrics and pre-emption hooks ahead
// of any caller callbacks.
type Session struct {
	model       Model
	checkpoints Checkpointer
	detector    preemption.Detector
	notifier    Notifier
	logger      *zap.Logger

	state    State
	compiled bool
	restored bool
}

// NewSession creates a new session around model
func NewSession(
	model Model,
	checkpoints Checkpointer,
	detector preemption.Detector,
	notifier Notifier,
	logger *zap.Logger,
) *Session {
	return &Session{
		model:       model,
		checkpoints: checkpoints,
		detector:    detector,
		notifier:    notifier,
		logger:      logger,
		state:       StateNotStarted,
	}
}

// State returns the current state
func (s *Session) State() State {
	return s.state
}

// Restored reports whether Compile loaded weights from a checkpoint
func (s *Session) Restored() bool {
	return s.restored
}

// Compile restores the job's checkpoint, if any, and then compiles the model.
// A restore failure aborts before the model is compiled. Once a restore has
// succeeded, further Compile calls are rejected.
func (s *Session) Compile(ctx context.Context, opts CompileOptions) error {
	if s.state != StateNotStarted {
		return fmt.Errorf("%w: compile in state %s", ErrSessionState, s.state)
	}
	if s.compiled {
		return fmt.Errorf("%w: already compiled", ErrSessionState)
	}

	restored, err := s.checkpoints.Restore(ctx, s.model)
	if err != nil {
		return err
	}
	s.compiled = true
	s.restored = restored

	return s.model.Compile(opts)
}

// Fit runs training. It returns StateCheckpointedAndHalted when a
// pre-emption notice stopped training after a successful checkpoint; the
// caller is expected to exit the process promptly in that case.
func (s *Session) Fit(ctx context.Context, opts FitOptions) (*Result, error) {
	if s.state != StateNotStarted {
		return nil, fmt.Errorf("%w: fit in state %s", ErrSessionState, s.state)
	}
	s.state = StateRunning

	if err := s.notifier.Start(ctx); err != nil {
		s.state = StateFailed
		return &Result{State: s.state}, fmt.Errorf("failed to announce start: %w", err)
	}

	guard := monitoring.NewPreemptionGuard(s.detector, s.checkpoints, s.notifier, s.model, s.logger)
	handlers := make([]monitoring.EpochEndHandler, 0, len(opts.Callbacks)+2)
	handlers = append(handlers, monitoring.MetricsHook(s.notifier, s.logger), guard.OnEpochEnd)
	handlers = append(handlers, opts.Callbacks...)
	opts.Callbacks = handlers

	history, err := s.model.Fit(ctx, opts)
	result := &Result{History: history}

	switch {
	case guard.Checkpointed():
		s.state = StateCheckpointedAndHalted
		result.HaltEpoch = guard.HaltEpoch()
	case err != nil:
		s.state = StateFailed
	default:
		s.state = StateCompleted
	}
	result.State = s.state

	if err != nil {
		return result, err
	}

	s.logger.Info("training finished", zap.String("state", string(s.state)))
	return result, nil
}
