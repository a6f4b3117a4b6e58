package jobcontrol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"spot-trainer/config"
	"spot-trainer/core/models"

	"go.uber.org/zap"
)

// Notification actions, appended to {app_domain}/{job_id}/
const (
	ActionStart   = "start"
	ActionMetrics = "metrics"
	ActionHalt    = "halt"
)

// RunIDHeader carries the id of the instance lease sending a notification
const RunIDHeader = "X-Run-ID"

// Notifier reports job lifecycle and metrics to the job control API
type Notifier interface {
	Start(ctx context.Context) error
	Metrics(ctx context.Context, report models.MetricsReport) error
	Halt(ctx context.Context) error
}

// ActionURL builds {domain}/{job_id}/{action}
func ActionURL(domain, jobID, action string) string {
	return fmt.Sprintf("%s/%s/%s", domain, url.PathEscape(jobID), action)
}

// HTTPNotifier posts notifications to the job control API. Notifications are
// fire-and-forget: a transport failure is returned to the caller, but a
// non-2xx answer is only logged.
type HTTPNotifier struct {
	domain string
	jobID  string
	runID  string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPNotifier creates a notifier for cfg's job
func NewHTTPNotifier(cfg *config.Config, runID string, logger *zap.Logger) *HTTPNotifier {
	return &HTTPNotifier{
		domain: cfg.AppDomain,
		jobID:  cfg.JobID,
		runID:  runID,
		client: &http.Client{Timeout: cfg.NotifyTimeout},
		logger: logger,
	}
}

// Start posts an empty body to /start
func (n *HTTPNotifier) Start(ctx context.Context) error {
	return n.post(ctx, ActionStart, nil)
}

// Metrics posts the epoch report to /metrics
func (n *HTTPNotifier) Metrics(ctx context.Context, report models.MetricsReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}
	return n.post(ctx, ActionMetrics, body)
}

// Halt posts an empty body to /halt
func (n *HTTPNotifier) Halt(ctx context.Context) error {
	return n.post(ctx, ActionHalt, nil)
}

func (n *HTTPNotifier) post(ctx context.Context, action string, body []byte) error {
	target := ActionURL(n.domain, n.jobID, action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", target, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if n.runID != "" {
		req.Header.Set(RunIDHeader, n.runID)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", target, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.logger.Warn("job control API rejected notification",
			zap.String("url", target), zap.Int("status", resp.StatusCode))
		return nil
	}

	n.logger.Debug("notification sent", zap.String("url", target))
	return nil
}

// DevNotifier logs the notifications it would have sent
type DevNotifier struct {
	domain string
	jobID  string
	logger *zap.Logger
}

// NewDevNotifier creates a dev-mode notifier for cfg's job
func NewDevNotifier(cfg *config.Config, logger *zap.Logger) *DevNotifier {
	return &DevNotifier{domain: cfg.AppDomain, jobID: cfg.JobID, logger: logger}
}

// Start logs the skipped start notification
func (n *DevNotifier) Start(context.Context) error {
	n.logger.Info("skipping making a POST request",
		zap.String("url", ActionURL(n.domain, n.jobID, ActionStart)))
	return nil
}

// Metrics logs the skipped report
func (n *DevNotifier) Metrics(_ context.Context, report models.MetricsReport) error {
	n.logger.Info("skipping sending data",
		zap.String("url", ActionURL(n.domain, n.jobID, ActionMetrics)), zap.Any("data", report))
	return nil
}

// Halt logs the skipped halt notification
func (n *DevNotifier) Halt(context.Context) error {
	n.logger.Info("skipping making a POST request",
		zap.String("url", ActionURL(n.domain, n.jobID, ActionHalt)))
	return nil
}
