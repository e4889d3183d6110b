package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/muhammadolammi/atsresume/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	objects  map[string][]byte
	types    map[string]string
	failures int // transient failures before each call succeeds
	calls    int
}

func (f *fakeObjects) fail() bool {
	f.calls++
	return f.calls <= f.failures
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.fail() {
		return nil, errors.New("connection reset")
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.fail() {
		return nil, errors.New("connection reset")
	}
	key := aws.ToString(in.Key)
	data, ok := f.objects[key]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentType:   aws.String(f.types[key]),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func newTestR2(f *fakeObjects) *R2 {
	return NewWithClient(f, "resumes").WithRetryPolicy(retry.Policy{Attempts: 3, Backoff: time.Millisecond})
}

func TestStat(t *testing.T) {
	f := &fakeObjects{
		objects: map[string][]byte{"batch-1/jane.pdf": []byte("%PDF-1.4")},
		types:   map[string]string{"batch-1/jane.pdf": "application/pdf"},
	}
	info, err := newTestR2(f).Stat(context.Background(), "batch-1/jane.pdf")
	require.NoError(t, err)
	assert.Equal(t, ObjectInfo{Key: "batch-1/jane.pdf", ContentType: "application/pdf", Size: 8}, info)
}

func TestStat_NotFoundIsNotRetried(t *testing.T) {
	f := &fakeObjects{}
	_, err := newTestR2(f).Stat(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, 1, f.calls)
}

func TestDownload_RetriesTransientFailures(t *testing.T) {
	f := &fakeObjects{
		objects:  map[string][]byte{"jane.pdf": []byte("%PDF-1.4 body")},
		failures: 2,
	}
	data, err := newTestR2(f).Download(context.Background(), "jane.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))
	assert.Equal(t, 3, f.calls)
}

func TestObjectFile(t *testing.T) {
	f := &fakeObjects{objects: map[string][]byte{"uploads/2024/jane.pdf": []byte("%PDF-1.7")}}
	r := newTestR2(f)

	file := r.Object(ObjectInfo{Key: "uploads/2024/jane.pdf", ContentType: "application/pdf", Size: 8})
	assert.Equal(t, "jane.pdf", file.Name())
	assert.Equal(t, "application/pdf", file.MediaType())
	assert.Equal(t, int64(8), file.Size())
	assert.Equal(t, 0, f.calls, "handle must not download until opened")

	rc, err := file.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "%PDF-1.7", string(data))
}
