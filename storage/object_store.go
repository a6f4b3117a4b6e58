package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by an ObjectStore when the requested object does not exist
var ErrNotFound = errors.New("object not found")

// ObjectStore stores named blobs under a bucket/key pair. Implementations
// report a missing object as (false, nil) from Exists and ErrNotFound from
// Download; every other failure is returned unchanged.
type ObjectStore interface {
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Download(ctx context.Context, bucket, key, localPath string) error
	Upload(ctx context.Context, localPath, bucket, key string) error
}

// WeightsLoader loads model parameters from a local file
type WeightsLoader interface {
	LoadWeights(path string) error
}

// WeightsSaver writes model parameters to a local file, overwriting it
type WeightsSaver interface {
	SaveWeights(path string) error
}
