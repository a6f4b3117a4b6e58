// Package providers selects the object store and pre-emption detector for
// the cloud the trainer runs on.
package providers

import (
	"context"
	"fmt"

	"spot-trainer/config"
	"spot-trainer/core/preemption"
	"spot-trainer/providers/aws"
	"spot-trainer/providers/azure"
	"spot-trainer/providers/gcp"
	"spot-trainer/storage"

	"go.uber.org/zap"
)

// Collaborators are the cloud-facing dependencies of a training session
type Collaborators struct {
	Store    storage.ObjectStore
	Detector preemption.Detector
}

// Build returns no-op collaborators in dev mode, otherwise the configured
// storage backend and pre-emption provider.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Collaborators, error) {
	if cfg.DevMode {
		return &Collaborators{
			Store:    storage.NewDevStore(logger),
			Detector: preemption.Never,
		}, nil
	}

	var awsClient *aws.Client
	awsClientFor := func() (*aws.Client, error) {
		if awsClient != nil {
			return awsClient, nil
		}
		client, err := aws.NewClient(ctx, cfg.AWSRegion, cfg.S3Endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS client: %w", err)
		}
		awsClient = client
		return client, nil
	}

	c := &Collaborators{}

	switch cfg.StorageBackend {
	case config.StorageS3:
		client, err := awsClientFor()
		if err != nil {
			return nil, err
		}
		c.Store = client.ObjectStore(logger)
	case config.StorageFile:
		c.Store = storage.NewFileStore(cfg.FileStoreRoot)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}

	// PREEMPTION_URL defaults to the EC2 address; other clouds only take it when overridden
	overrideURL := ""
	if cfg.PreemptionURL != config.DefaultSpotActionURL {
		overrideURL = cfg.PreemptionURL
	}

	switch cfg.PreemptionProvider {
	case config.PreemptionAWS:
		c.Detector = preemption.NewHTTPDetector(cfg.PreemptionURL, cfg.PreemptionTimeout, logger)
	case config.PreemptionAWSIMDS:
		client, err := awsClientFor()
		if err != nil {
			return nil, err
		}
		c.Detector = client.SpotDetector(cfg.PreemptionTimeout, logger)
	case config.PreemptionGCP:
		c.Detector = gcp.NewPreemptionDetector(overrideURL, cfg.PreemptionTimeout, logger)
	case config.PreemptionAzure:
		c.Detector = azure.NewEvictionDetector(overrideURL, cfg.PreemptionTimeout, logger)
	case config.PreemptionNone:
		c.Detector = preemption.Never
	default:
		return nil, fmt.Errorf("unsupported pre-emption provider %q", cfg.PreemptionProvider)
	}

	logger.Info("collaborators selected",
		zap.String("storage", cfg.StorageBackend), zap.String("preemption", cfg.PreemptionProvider))
	return c, nil
}
