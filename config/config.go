package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrMissingRequired is returned when a setting required outside dev mode is unset
var ErrMissingRequired = errors.New("missing required configuration")

// Storage backends
const (
	StorageS3   = "s3"
	StorageFile = "file"
)

// Pre-emption providers
const (
	PreemptionAWS     = "aws"
	PreemptionAWSIMDS = "aws-imds"
	PreemptionGCP     = "gcp"
	PreemptionAzure   = "azure"
	PreemptionNone    = "none"
)

// DefaultSpotActionURL is the EC2 metadata path that answers 200 once a spot
// interruption notice has been issued.
const DefaultSpotActionURL = "http://169.254.169.254/latest/meta-data/spot/instance-action"

const (
	devJobID     = "dev_job_id"
	devBucket    = "dev_bucket"
	devAppDomain = "http://localhost:8080"
)

// Config holds the application configuration. It is built once at process
// start and passed by pointer to every component that needs it.
type Config struct {
	// Mode
	DevMode bool

	// Job
	JobID      string
	BucketName string
	AppDomain  string

	// Checkpoint
	CheckpointExt  string
	CheckpointDir  string
	StorageBackend string
	FileStoreRoot  string

	// AWS
	AWSRegion  string
	S3Endpoint string

	// Pre-emption
	PreemptionProvider string
	PreemptionURL      string
	PreemptionTimeout  time.Duration

	// Job control API
	NotifyTimeout time.Duration

	// Logging
	LogLevel string

	// Trainer
	TrainingSpecPath string
	ResumeEpoch      int // First epoch to run after a checkpoint is restored

	// Server
	ServerPort  string
	DatabaseURL string
}

// Load loads configuration from environment variables. Dev-mode defaults are
// applied to the job settings; use Validate to enforce remote-mode requirements.
func Load() (*Config, error) {
	devMode, err := getEnvBool("DEV_MODE", true)
	if err != nil {
		return nil, err
	}
	preemptionTimeout, err := getEnvDuration("PREEMPTION_TIMEOUT", 2*time.Second)
	if err != nil {
		return nil, err
	}
	notifyTimeout, err := getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	resumeEpoch, err := getEnvInt("RESUME_EPOCH", 0)
	if err != nil {
		return nil, err
	}
	if resumeEpoch < 0 {
		return nil, fmt.Errorf("invalid RESUME_EPOCH %d: must not be negative", resumeEpoch)
	}

	cfg := &Config{
		DevMode:            devMode,
		JobID:              os.Getenv("JOB_ID"),
		BucketName:         os.Getenv("BUCKET_NAME"),
		AppDomain:          strings.TrimRight(os.Getenv("APP_DOMAIN"), "/"),
		CheckpointExt:      getEnv("CHECKPOINT_EXT", ".h5"),
		CheckpointDir:      getEnv("CHECKPOINT_DIR", "."),
		StorageBackend:     getEnv("STORAGE_BACKEND", StorageS3),
		FileStoreRoot:      getEnv("FILE_STORE_ROOT", "checkpoints"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		PreemptionProvider: getEnv("PREEMPTION_PROVIDER", PreemptionAWS),
		PreemptionURL:      getEnv("PREEMPTION_URL", DefaultSpotActionURL),
		PreemptionTimeout:  preemptionTimeout,
		NotifyTimeout:      notifyTimeout,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		TrainingSpecPath:   os.Getenv("TRAINING_SPEC"),
		ResumeEpoch:        resumeEpoch,
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
	}

	if !strings.HasPrefix(cfg.CheckpointExt, ".") {
		cfg.CheckpointExt = "." + cfg.CheckpointExt
	}

	if cfg.DevMode {
		if cfg.JobID == "" {
			cfg.JobID = devJobID
		}
		if cfg.BucketName == "" {
			cfg.BucketName = devBucket
		}
		if cfg.AppDomain == "" {
			cfg.AppDomain = devAppDomain
		}
	}

	return cfg, nil
}

// Validate checks the settings the trainer needs outside dev mode
func (c *Config) Validate() error {
	if c.DevMode {
		return nil
	}

	var missing []string
	if c.JobID == "" {
		missing = append(missing, "JOB_ID")
	}
	if c.BucketName == "" {
		missing = append(missing, "BUCKET_NAME")
	}
	if c.AppDomain == "" {
		missing = append(missing, "APP_DOMAIN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}

	switch c.StorageBackend {
	case StorageS3, StorageFile:
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.PreemptionProvider {
	case PreemptionAWS, PreemptionAWSIMDS, PreemptionGCP, PreemptionAzure, PreemptionNone:
	default:
		return fmt.Errorf("unsupported PREEMPTION_PROVIDER %q", c.PreemptionProvider)
	}

	return nil
}

// CheckpointFile is the checkpoint file name, also used as the remote key
func (c *Config) CheckpointFile() string {
	return c.JobID + c.CheckpointExt
}

// CheckpointKey is the object key the job's checkpoint lives under
func (c *Config) CheckpointKey() string {
	return c.CheckpointFile()
}

// CheckpointPath is where the checkpoint is staged on local disk
func (c *Config) CheckpointPath() string {
	return filepath.Join(c.CheckpointDir, c.CheckpointFile())
}

// ErrorContext describes the job for fatal diagnostics
func (c *Config) ErrorContext() string {
	return fmt.Sprintf("JOB_ID: %s. BUCKET_NAME: %s. CHECKPOINT_FILE: %s.", c.JobID, c.BucketName, c.CheckpointFile())
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
