package spec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunSpec represents the YAML training run specification
type RunSpec struct {
	Training RunSpecTraining `yaml:"training"`
	Data     RunSpecData     `yaml:"data"`
}

// RunSpecTraining represents the training section of the spec
type RunSpecTraining struct {
	Epochs          int      `yaml:"epochs"`
	BatchSize       int      `yaml:"batch_size"`
	ValidationSplit float64  `yaml:"validation_split"`
	LearningRate    float64  `yaml:"learning_rate"`
	Optimizer       string   `yaml:"optimizer"`
	Loss            string   `yaml:"loss"`
	Metrics         []string `yaml:"metrics"`
	Shuffle         *bool    `yaml:"shuffle,omitempty"`
	Seed            int64    `yaml:"seed"`
}

// RunSpecData represents the synthetic dataset the trainer fits
type RunSpecData struct {
	Samples  int     `yaml:"samples"`
	Features int     `yaml:"features"`
	Noise    float64 `yaml:"noise"`
}

// Default returns the run used when no spec file is given
func Default() *RunSpec {
	rs := &RunSpec{}
	rs.applyDefaults()
	return rs
}

// ParseRunSpec parses a YAML run specification, fills defaults and validates it
func ParseRunSpec(specYAML string) (*RunSpec, error) {
	var rs RunSpec
	if err := yaml.Unmarshal([]byte(specYAML), &rs); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	rs.applyDefaults()
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// LoadFile reads and parses the spec at path
func LoadFile(path string) (*RunSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read training spec: %w", err)
	}
	return ParseRunSpec(string(data))
}

// ShuffleEnabled defaults to true when the spec leaves it unset
func (rs *RunSpec) ShuffleEnabled() bool {
	return rs.Training.Shuffle == nil || *rs.Training.Shuffle
}

// Validate checks ranges after defaults are applied
func (rs *RunSpec) Validate() error {
	t, d := rs.Training, rs.Data
	switch {
	case t.Epochs < 1:
		return fmt.Errorf("training.epochs must be positive, got %d", t.Epochs)
	case t.BatchSize < 1:
		return fmt.Errorf("training.batch_size must be positive, got %d", t.BatchSize)
	case t.ValidationSplit < 0 || t.ValidationSplit >= 1:
		return fmt.Errorf("training.validation_split must be in [0, 1), got %g", t.ValidationSplit)
	case t.LearningRate <= 0:
		return fmt.Errorf("training.learning_rate must be positive, got %g", t.LearningRate)
	case d.Samples < 1:
		return fmt.Errorf("data.samples must be positive, got %d", d.Samples)
	case d.Features < 1:
		return fmt.Errorf("data.features must be positive, got %d", d.Features)
	case d.Noise < 0 || d.Noise > 0.5:
		return fmt.Errorf("data.noise must be in [0, 0.5], got %g", d.Noise)
	}
	return nil
}

func (rs *RunSpec) applyDefaults() {
	if rs.Training.Epochs == 0 {
		rs.Training.Epochs = 10
	}
	if rs.Training.BatchSize == 0 {
		rs.Training.BatchSize = 32
	}
	if rs.Training.LearningRate == 0 {
		rs.Training.LearningRate = 0.1
	}
	if rs.Training.Optimizer == "" {
		rs.Training.Optimizer = "sgd"
	}
	if rs.Training.Loss == "" {
		rs.Training.Loss = "binary_crossentropy"
	}
	if len(rs.Training.Metrics) == 0 {
		rs.Training.Metrics = []string{"accuracy"}
	}
	if rs.Data.Samples == 0 {
		rs.Data.Samples = 1000
	}
	if rs.Data.Features == 0 {
		rs.Data.Features = 4
	}
}
