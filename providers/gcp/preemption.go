package gcp

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultPreemptedURL answers TRUE once a preemptible/spot VM has been told to stop
const DefaultPreemptedURL = "http://metadata.google.internal/computeMetadata/v1/instance/preempted"

// PreemptionDetector polls the Compute Engine metadata server
type PreemptionDetector struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewPreemptionDetector creates a new detector. An empty url uses DefaultPreemptedURL.
func NewPreemptionDetector(url string, timeout time.Duration, logger *zap.Logger) *PreemptionDetector {
	if url == "" {
		url = DefaultPreemptedURL
	}
	return &PreemptionDetector{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// IsDying reports whether the instance has been preempted. Probe failures
// count as healthy.
func (d *PreemptionDetector) IsDying(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		d.logger.Warn("failed to build preemption probe", zap.Error(err))
		return false
	}
	req.Header.Set("Metadata-Flavor", "Google")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("preemption probe failed, assuming healthy", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		d.logger.Warn("unexpected metadata server status", zap.Int("status", resp.StatusCode))
		return false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		d.logger.Warn("failed to read preemption flag", zap.Error(err))
		return false
	}

	if strings.TrimSpace(string(body)) != "TRUE" {
		return false
	}

	d.logger.Warn("instance preempted")
	return true
}
