package aws

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spot-trainer/storage"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeS3 struct {
	headErr error
	getErr  error
	putErr  error
	objects map[string]string

	puts []*s3.PutObjectInput
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[*in.Bucket+"/"+*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func responseError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New(http.StatusText(status)),
		},
	}
}

func TestS3Store_Exists(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string]string{"weights/job123.h5": "w"}}
	store := NewS3Store(fake, zap.NewNop())

	exists, err := store.Exists(ctx, "weights", "job123.h5")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "weights", "other.h5")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestS3Store_ExistsErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantErr   bool
		wantExist bool
	}{
		{name: "bare 404", err: responseError(http.StatusNotFound)},
		{name: "permission denied", err: responseError(http.StatusForbidden), wantErr: true},
		{name: "network", err: errors.New("dial tcp: connection refused"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewS3Store(&fakeS3{headErr: tt.err}, zap.NewNop())
			exists, err := store.Exists(context.Background(), "b", "k")
			if tt.wantErr {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantExist, exists)
		})
	}
}

func TestS3Store_DownloadUpload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fake := &fakeS3{objects: map[string]string{}}
	store := NewS3Store(fake, zap.NewNop())

	src := filepath.Join(dir, "job123.h5")
	require.NoError(t, os.WriteFile(src, []byte("weights-v1"), 0o644))
	require.NoError(t, store.Upload(ctx, src, "weights", "job123.h5"))

	require.Len(t, fake.puts, 1)
	assert.Equal(t, int64(len("weights-v1")), *fake.puts[0].ContentLength)

	dst := filepath.Join(dir, "restored.h5")
	require.NoError(t, store.Download(ctx, "weights", "job123.h5", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "weights-v1", string(data))
}

func TestS3Store_DownloadMissing(t *testing.T) {
	store := NewS3Store(&fakeS3{objects: map[string]string{}}, zap.NewNop())
	err := store.Download(context.Background(), "weights", "job123.h5", filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestS3Store_UploadErrorPropagates(t *testing.T) {
	boom := responseError(http.StatusForbidden)
	store := NewS3Store(&fakeS3{objects: map[string]string{}, putErr: boom}, zap.NewNop())

	src := filepath.Join(t.TempDir(), "job.h5")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	err := store.Upload(context.Background(), src, "weights", "job.h5")
	assert.ErrorIs(t, err, boom)
}
