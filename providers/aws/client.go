package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Client is the AWS provider client
type Client struct {
	s3Client   *s3.Client
	imdsClient *imds.Client
}

// NewClient creates a new AWS client. A non-empty endpoint points S3 at an
// S3-compatible service (MinIO, localstack) using path-style addressing.
func NewClient(ctx context.Context, region string, endpoint string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{
		s3Client:   s3Client,
		imdsClient: imds.NewFromConfig(cfg, disableRetries),
	}, nil
}

// disableRetries keeps each pre-emption probe to a single request
func disableRetries(o *imds.Options) {
	o.Retryer = aws.NopRetryer{}
}

// ObjectStore returns the S3-backed checkpoint store
func (c *Client) ObjectStore(logger *zap.Logger) *S3Store {
	return NewS3Store(c.s3Client, logger)
}

// SpotDetector returns an IMDSv2-based spot interruption detector
func (c *Client) SpotDetector(timeout time.Duration, logger *zap.Logger) *SpotDetector {
	return NewSpotDetector(c.imdsClient, timeout, logger)
}
