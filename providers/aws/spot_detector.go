package aws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"go.uber.org/zap"
)

const instanceActionPath = "spot/instance-action"

// imdsAPI is the subset of the IMDS client the detector uses
type imdsAPI interface {
	GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
}

// InstanceAction is the spot/instance-action metadata document
type InstanceAction struct {
	Action string `json:"action"` // stop | terminate | hibernate
	Time   string `json:"time"`
}

// SpotDetector polls the spot instance-action document through the SDK's
// IMDS client, which handles IMDSv2 session tokens. Like the plain HTTP
// probe, any failure counts as healthy.
type SpotDetector struct {
	client  imdsAPI
	timeout time.Duration
	logger  *zap.Logger
}

// NewSpotDetector creates a new spot interruption detector
func NewSpotDetector(client imdsAPI, timeout time.Duration, logger *zap.Logger) *SpotDetector {
	return &SpotDetector{client: client, timeout: timeout, logger: logger}
}

// IsDying reports whether an interruption notice is present
func (d *SpotDetector) IsDying(ctx context.Context) bool {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	out, err := d.client.GetMetadata(ctx, &imds.GetMetadataInput{Path: instanceActionPath})
	if err != nil {
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
			d.logger.Debug("no spot interruption notice")
			return false
		}
		d.logger.Warn("spot interruption probe failed, assuming healthy", zap.Error(err))
		return false
	}
	defer out.Content.Close()

	var action InstanceAction
	body, err := io.ReadAll(out.Content)
	if err == nil {
		err = json.Unmarshal(body, &action)
	}
	if err != nil {
		d.logger.Warn("unreadable spot instance-action document", zap.Error(err))
	}

	d.logger.Warn("spot interruption notice received",
		zap.String("action", action.Action), zap.String("time", action.Time))
	return true
}
