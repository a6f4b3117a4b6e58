package preemption

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Detector reports whether the current instance has received a termination notice
type Detector interface {
	IsDying(ctx context.Context) bool
}

// DetectorFunc adapts a function to Detector
type DetectorFunc func(ctx context.Context) bool

// IsDying calls f
func (f DetectorFunc) IsDying(ctx context.Context) bool {
	return f(ctx)
}

// Never is the dev-mode detector: the instance is never reclaimed
var Never Detector = DetectorFunc(func(context.Context) bool { return false })

// HTTPDetector probes a metadata URL that answers 200 once a termination
// notice exists (the EC2 spot instance-action document, by default).
//
// A probe is a single GET with no retry. Any non-200 status or transport
// failure counts as healthy; the next epoch probes again.
type HTTPDetector struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPDetector creates a detector polling url with the given per-probe timeout
func NewHTTPDetector(url string, timeout time.Duration, logger *zap.Logger) *HTTPDetector {
	return &HTTPDetector{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// IsDying performs one probe
func (d *HTTPDetector) IsDying(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		d.logger.Warn("failed to build pre-emption probe", zap.String("url", d.url), zap.Error(err))
		return false
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("pre-emption probe failed, assuming healthy", zap.String("url", d.url), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		d.logger.Debug("no pre-emption notice", zap.Int("status", resp.StatusCode))
		return false
	}

	d.logger.Warn("pre-emption notice received", zap.String("url", d.url))
	return true
}
