package main

import (
	"testing"

	"spot-trainer/config"
	"spot-trainer/core/spec"

	"github.com/stretchr/testify/assert"
)

func TestFitOptions_ResumeEpoch(t *testing.T) {
	runSpec := spec.Default()
	cfg := &config.Config{ResumeEpoch: 4}
	x, y := [][]float64{{1}}, []float64{1}

	fresh := fitOptions(runSpec, cfg, false, x, y)
	assert.Zero(t, fresh.InitialEpoch)
	assert.Equal(t, runSpec.Training.Epochs, fresh.Epochs)
	assert.True(t, fresh.Shuffle)

	resumed := fitOptions(runSpec, cfg, true, x, y)
	assert.Equal(t, 4, resumed.InitialEpoch)
	assert.Equal(t, runSpec.Training.BatchSize, resumed.BatchSize)
}
