package azure

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultScheduledEventsURL is the Azure Instance Metadata Service scheduled events endpoint
const DefaultScheduledEventsURL = "http://169.254.169.254/metadata/scheduledevents?api-version=2020-07-01"

// ScheduledEvents is the IMDS scheduled events document
type ScheduledEvents struct {
	DocumentIncarnation int              `json:"DocumentIncarnation"`
	Events              []ScheduledEvent `json:"Events"`
}

// ScheduledEvent is a single pending platform event
type ScheduledEvent struct {
	EventID      string   `json:"EventId"`
	EventType    string   `json:"EventType"` // Preempt for evicted spot VMs
	ResourceType string   `json:"ResourceType"`
	Resources    []string `json:"Resources"`
	EventStatus  string   `json:"EventStatus"`
	NotBefore    string   `json:"NotBefore"`
}

// EvictionDetector watches for Preempt scheduled events on Azure spot VMs
type EvictionDetector struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewEvictionDetector creates a new detector. An empty url uses DefaultScheduledEventsURL.
func NewEvictionDetector(url string, timeout time.Duration, logger *zap.Logger) *EvictionDetector {
	if url == "" {
		url = DefaultScheduledEventsURL
	}
	return &EvictionDetector{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// IsDying reports whether a Preempt event is scheduled. Probe failures count as healthy.
func (d *EvictionDetector) IsDying(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		d.logger.Warn("failed to build scheduled events probe", zap.Error(err))
		return false
	}
	req.Header.Set("Metadata", "true")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("scheduled events probe failed, assuming healthy", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		d.logger.Warn("unexpected scheduled events status", zap.Int("status", resp.StatusCode))
		return false
	}

	var doc ScheduledEvents
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		d.logger.Warn("failed to decode scheduled events", zap.Error(err))
		return false
	}

	for _, ev := range doc.Events {
		if ev.EventType == "Preempt" {
			d.logger.Warn("spot eviction scheduled",
				zap.String("event_id", ev.EventID), zap.String("not_before", ev.NotBefore))
			return true
		}
	}
	return false
}
