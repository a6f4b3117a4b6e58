package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"DEV_MODE", "JOB_ID", "BUCKET_NAME", "APP_DOMAIN", "CHECKPOINT_EXT",
		"CHECKPOINT_DIR", "STORAGE_BACKEND", "PREEMPTION_PROVIDER", "PREEMPTION_URL",
		"PREEMPTION_TIMEOUT", "NOTIFY_TIMEOUT", "RESUME_EPOCH",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_DevDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.DevMode)
	assert.Equal(t, "dev_job_id", cfg.JobID)
	assert.Equal(t, "dev_bucket", cfg.BucketName)
	assert.Equal(t, "http://localhost:8080", cfg.AppDomain)
	assert.Equal(t, "dev_job_id.h5", cfg.CheckpointFile())
	assert.Equal(t, DefaultSpotActionURL, cfg.PreemptionURL)
	assert.Equal(t, 2*time.Second, cfg.PreemptionTimeout)
	assert.Zero(t, cfg.ResumeEpoch)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_RemoteMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEV_MODE", "false")
	t.Setenv("JOB_ID", "job123")
	t.Setenv("BUCKET_NAME", "weights")
	t.Setenv("APP_DOMAIN", "https://club.example.com/")
	t.Setenv("CHECKPOINT_DIR", "/tmp/ckpt")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.False(t, cfg.DevMode)
	assert.Equal(t, "https://club.example.com", cfg.AppDomain)
	assert.Equal(t, "job123.h5", cfg.CheckpointKey())
	assert.Equal(t, filepath.Join("/tmp/ckpt", "job123.h5"), cfg.CheckpointPath())
	assert.Equal(t, "JOB_ID: job123. BUCKET_NAME: weights. CHECKPOINT_FILE: job123.h5.", cfg.ErrorContext())
}

func TestValidate_MissingRequired(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEV_MODE", "false")
	t.Setenv("JOB_ID", "job123")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.ErrorIs(t, err, ErrMissingRequired)
	assert.Contains(t, err.Error(), "BUCKET_NAME")
	assert.Contains(t, err.Error(), "APP_DOMAIN")
	assert.NotContains(t, err.Error(), "JOB_ID")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "dev mode", key: "DEV_MODE", val: "maybe"},
		{name: "probe timeout", key: "PREEMPTION_TIMEOUT", val: "soon"},
		{name: "notify timeout", key: "NOTIFY_TIMEOUT", val: "10"},
		{name: "resume epoch", key: "RESUME_EPOCH", val: "three"},
		{name: "negative resume epoch", key: "RESUME_EPOCH", val: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_CheckpointExtWithoutDot(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHECKPOINT_EXT", "weights")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev_job_id.weights", cfg.CheckpointFile())
}

func TestValidate_UnsupportedBackends(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEV_MODE", "0")
	t.Setenv("JOB_ID", "j")
	t.Setenv("BUCKET_NAME", "b")
	t.Setenv("APP_DOMAIN", "http://x")
	t.Setenv("STORAGE_BACKEND", "ftp")

	cfg, err := Load()
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "STORAGE_BACKEND")

	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("PREEMPTION_PROVIDER", "oracle")
	cfg, err = Load()
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "PREEMPTION_PROVIDER")
}

func TestLoad_ResumeEpoch(t *testing.T) {
	clearEnv(t)
	t.Setenv("RESUME_EPOCH", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.ResumeEpoch)
}
