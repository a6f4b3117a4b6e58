package models

import (
	"encoding/json"
	"math"
)

// Well-known epoch log keys. The short accuracy names are what older training
// libraries emit; the long ones are accepted as aliases.
const (
	LogLoss        = "loss"
	LogAcc         = "acc"
	LogAccuracy    = "accuracy"
	LogValLoss     = "val_loss"
	LogValAcc      = "val_acc"
	LogValAccuracy = "val_accuracy"
)

// EpochLogs maps metric name to value for one finished epoch
type EpochLogs map[string]float64

// Get returns the first present value among keys
func (l EpochLogs) Get(keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := l[k]; ok {
			return v, true
		}
	}
	return 0, false
}

// MetricsReport is the body POSTed to {app_domain}/{job_id}/metrics
type MetricsReport struct {
	Epoch      int                `json:"epoch"`
	Training   TrainingMetrics    `json:"training"`
	Validation *ValidationMetrics `json:"validation,omitempty"`
}

// TrainingMetrics holds the mandatory training figures
type TrainingMetrics struct {
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
}

// ValidationMetrics holds whichever validation figures the epoch produced
type ValidationMetrics struct {
	Loss     *float64 `json:"loss,omitempty"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

// MarshalJSON writes NaN and ±Inf, which a diverging model can produce, as null
func (m TrainingMetrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Loss     json.RawMessage `json:"loss"`
		Accuracy json.RawMessage `json:"accuracy"`
	}{
		Loss:     encodeFloat(m.Loss),
		Accuracy: encodeFloat(m.Accuracy),
	})
}

// MarshalJSON omits absent figures and writes non-finite ones as null
func (m ValidationMetrics) MarshalJSON() ([]byte, error) {
	var out struct {
		Loss     json.RawMessage `json:"loss,omitempty"`
		Accuracy json.RawMessage `json:"accuracy,omitempty"`
	}
	if m.Loss != nil {
		out.Loss = encodeFloat(*m.Loss)
	}
	if m.Accuracy != nil {
		out.Accuracy = encodeFloat(*m.Accuracy)
	}
	return json.Marshal(out)
}

func encodeFloat(v float64) json.RawMessage {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return json.RawMessage("null")
	}
	b, _ := json.Marshal(v)
	return b
}

// BuildMetricsReport builds the report for an epoch. It returns false when
// either training loss or training accuracy is missing.
func BuildMetricsReport(epoch int, logs EpochLogs) (MetricsReport, bool) {
	loss, hasLoss := logs.Get(LogLoss)
	acc, hasAcc := logs.Get(LogAcc, LogAccuracy)
	if !hasLoss || !hasAcc {
		return MetricsReport{}, false
	}

	report := MetricsReport{
		Epoch:    epoch,
		Training: TrainingMetrics{Loss: loss, Accuracy: acc},
	}

	var validation ValidationMetrics
	if v, ok := logs.Get(LogValLoss); ok {
		validation.Loss = &v
	}
	if v, ok := logs.Get(LogValAcc, LogValAccuracy); ok {
		validation.Accuracy = &v
	}
	if validation.Loss != nil || validation.Accuracy != nil {
		report.Validation = &validation
	}

	return report, true
}
