package preemption

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHTTPDetector_Status(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{name: "notice present", status: http.StatusOK, want: true},
		{name: "no notice", status: http.StatusNotFound, want: false},
		{name: "server error", status: http.StatusInternalServerError, want: false},
		{name: "unauthorized", status: http.StatusUnauthorized, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits++
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/latest/meta-data/spot/instance-action", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			d := NewHTTPDetector(srv.URL+"/latest/meta-data/spot/instance-action", time.Second, zap.NewNop())
			assert.Equal(t, tt.want, d.IsDying(context.Background()))
			assert.Equal(t, 1, hits, "single probe, no retry")
		})
	}
}

func TestHTTPDetector_TransportFailureIsHealthy(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	d := NewHTTPDetector(url, time.Second, zap.New(core))

	assert.False(t, d.IsDying(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("pre-emption probe failed, assuming healthy").Len())
}

func TestHTTPDetector_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	d := NewHTTPDetector(srv.URL, 50*time.Millisecond, zap.NewNop())
	assert.False(t, d.IsDying(context.Background()))
}

func TestNever(t *testing.T) {
	assert.False(t, Never.IsDying(context.Background()))
}
