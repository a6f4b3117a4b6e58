package aws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"spot-trainer/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// s3API is the subset of the S3 client the store uses
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store implements storage.ObjectStore on AWS S3
type S3Store struct {
	client s3API
	logger *zap.Logger
}

// NewS3Store creates a new S3 store
func NewS3Store(client s3API, logger *zap.Logger) *S3Store {
	return &S3Store{client: client, logger: logger}
}

// Exists issues a HEAD for the object. Only a 404 maps to false.
func (s *S3Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			s.logger.Debug("object does not exist in S3", zap.String("bucket", bucket), zap.String("key", key))
			return false, nil
		}
		s.logger.Error("failed to HEAD object in S3",
			zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

// Download streams the object into localPath
func (s *S3Store) Download(ctx context.Context, bucket, key, localPath string) error {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("s3://%s/%s: %w", bucket, key, storage.ErrNotFound)
		}
		s.logger.Error("could not retrieve object from S3",
			zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		return err
	}
	defer result.Body.Close()

	localFile, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}

	n, err := io.Copy(localFile, result.Body)
	if closeErr := localFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}

	s.logger.Debug("downloaded object from S3",
		zap.String("bucket", bucket), zap.String("key", key), zap.Int64("num_bytes", n))
	return nil
}

// Upload puts localPath at bucket/key, replacing any existing object
func (s *S3Store) Upload(ctx context.Context, localPath, bucket, key string) error {
	local, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer local.Close()

	info, err := local.Stat()
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          local,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		s.logger.Error("error while writing local file to S3",
			zap.String("path", localPath), zap.String("bucket", bucket), zap.Error(err))
		return err
	}

	s.logger.Debug("uploaded object to S3",
		zap.String("path", localPath), zap.String("bucket", bucket), zap.String("key", key),
		zap.Int64("num_bytes", info.Size()))
	return nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}
