package jobcontrol

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"spot-trainer/config"
	"spot-trainer/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type received struct {
	path  string
	runID string
	body  []byte
	ctype string
}

func newReceiver(t *testing.T, status int) (*httptest.Server, *[]received) {
	var got []received
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		got = append(got, received{
			path:  r.URL.Path,
			runID: r.Header.Get(RunIDHeader),
			body:  body,
			ctype: r.Header.Get("Content-Type"),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestHTTPNotifier_Lifecycle(t *testing.T) {
	srv, got := newReceiver(t, http.StatusNoContent)
	cfg := &config.Config{AppDomain: srv.URL, JobID: "job123", NotifyTimeout: time.Second}
	n := NewHTTPNotifier(cfg, "run-1", zap.NewNop())
	ctx := context.Background()

	report, ok := models.BuildMetricsReport(0, models.EpochLogs{"loss": 0.4, "acc": 0.8, "val_loss": 0.5})
	require.True(t, ok)

	require.NoError(t, n.Start(ctx))
	require.NoError(t, n.Metrics(ctx, report))
	require.NoError(t, n.Halt(ctx))

	require.Len(t, *got, 3)
	assert.Equal(t, "/job123/start", (*got)[0].path)
	assert.Empty(t, (*got)[0].body)
	assert.Equal(t, "/job123/metrics", (*got)[1].path)
	assert.Equal(t, "application/json", (*got)[1].ctype)
	assert.Equal(t, "/job123/halt", (*got)[2].path)
	assert.Empty(t, (*got)[2].body)
	for _, r := range *got {
		assert.Equal(t, "run-1", r.runID)
	}

	var decoded models.MetricsReport
	require.NoError(t, json.Unmarshal((*got)[1].body, &decoded))
	assert.Equal(t, report.Training, decoded.Training)
	require.NotNil(t, decoded.Validation)
	assert.Equal(t, 0.5, *decoded.Validation.Loss)
}

func TestHTTPNotifier_MetricsWithNonFiniteValues(t *testing.T) {
	srv, got := newReceiver(t, http.StatusOK)
	cfg := &config.Config{AppDomain: srv.URL, JobID: "job123", NotifyTimeout: time.Second}
	n := NewHTTPNotifier(cfg, "", zap.NewNop())

	report, ok := models.BuildMetricsReport(4, models.EpochLogs{"loss": math.NaN(), "acc": 0.5, "val_acc": math.Inf(-1)})
	require.True(t, ok)

	require.NoError(t, n.Metrics(context.Background(), report))
	require.Len(t, *got, 1)
	assert.JSONEq(t, `{"epoch":4,"training":{"loss":null,"accuracy":0.5},"validation":{"accuracy":null}}`, string((*got)[0].body))
}

func TestHTTPNotifier_RejectedIsLoggedNotReturned(t *testing.T) {
	srv, got := newReceiver(t, http.StatusInternalServerError)
	core, logs := observer.New(zap.WarnLevel)
	cfg := &config.Config{AppDomain: srv.URL, JobID: "job123", NotifyTimeout: time.Second}
	n := NewHTTPNotifier(cfg, "", zap.New(core))

	assert.NoError(t, n.Start(context.Background()))
	assert.Len(t, *got, 1, "no retry")
	assert.Equal(t, 1, logs.FilterMessage("job control API rejected notification").Len())
}

func TestHTTPNotifier_TransportErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	domain := srv.URL
	srv.Close()

	cfg := &config.Config{AppDomain: domain, JobID: "job123", NotifyTimeout: time.Second}
	n := NewHTTPNotifier(cfg, "", zap.NewNop())

	err := n.Halt(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/job123/halt")
}

func TestDevNotifier_LogsInsteadOfPosting(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cfg := &config.Config{AppDomain: "http://localhost:8080", JobID: "dev_job_id"}
	n := NewDevNotifier(cfg, zap.New(core))
	ctx := context.Background()

	require.NoError(t, n.Start(ctx))
	require.NoError(t, n.Metrics(ctx, models.MetricsReport{Epoch: 1}))
	require.NoError(t, n.Halt(ctx))

	posts := logs.FilterMessage("skipping making a POST request").All()
	require.Len(t, posts, 2)
	assert.Equal(t, "http://localhost:8080/dev_job_id/start", posts[0].ContextMap()["url"])
	assert.Equal(t, "http://localhost:8080/dev_job_id/halt", posts[1].ContextMap()["url"])
	assert.Equal(t, 1, logs.FilterMessage("skipping sending data").Len())
}

func TestActionURL_EscapesJobID(t *testing.T) {
	assert.Equal(t, "http://x/a%2Fb/start", ActionURL("http://x", "a/b", ActionStart))
}
