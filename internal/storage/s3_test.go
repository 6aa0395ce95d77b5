package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBucket = "staging-bucket"

// fakeS3 is a path-style object store. Missing keys answer 404 NoSuchKey,
// or an empty 404 for HEAD, the way S3-compatible servers do.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	deletes []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/"+testBucket+"/")

	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]

	switch r.Method {
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.objects[key] = body
		w.Header().Set("ETag", `"0123456789abcdef"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		if !ok {
			noSuchKey(w, key)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)
	case http.MethodDelete:
		f.deletes = append(f.deletes, key)
		if !ok {
			noSuchKey(w, key)
			return
		}
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) keys() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := make([]string, 0, len(f.objects))
	for k := range f.objects {
		stored = append(stored, k)
	}
	return stored, append([]string(nil), f.deletes...)
}

func noSuchKey(w http.ResponseWriter, key string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusNotFound)
	io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
		`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>`+key+`</Key></Error>`)
}

func newFakeS3Backend(t *testing.T, prefix string) (*S3Backend, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:                     "us-east-1",
		BaseEndpoint:               aws.String(srv.URL),
		UsePathStyle:               true,
		Credentials:                credentials.NewStaticCredentialsProvider("test", "test", ""),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
		RetryMaxAttempts:           1,
	})
	return NewS3Backend(client, testBucket, prefix), fake
}

func TestS3BackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	b, fake := newFakeS3Backend(t, "gateway")

	n, err := b.Put(ctx, "uploads/a.pdf", strings.NewReader("%PDF-1.7 body"))
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)
	stored, _ := fake.keys()
	assert.Equal(t, []string{"gateway/uploads/a.pdf"}, stored)

	ok, err := b.Exists(ctx, "uploads/a.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := b.Get(ctx, "uploads/a.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 body", string(data))

	require.NoError(t, b.Delete(ctx, "uploads/a.pdf"))
	ok, err = b.Exists(ctx, "uploads/a.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3BackendMissingKeys(t *testing.T) {
	ctx := context.Background()
	b, fake := newFakeS3Backend(t, "")

	_, err := b.Get(ctx, "uploads/gone.pdf")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	ok, err := b.Exists(ctx, "uploads/gone.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, b.Delete(ctx, "uploads/gone.pdf"))
	_, deletes := fake.keys()
	assert.Equal(t, []string{"uploads/gone.pdf"}, deletes)
}

func TestS3BackendRejectsBadKeys(t *testing.T) {
	b, fake := newFakeS3Backend(t, "")

	_, err := b.Put(context.Background(), "../escape.pdf", strings.NewReader("x"))
	assert.Error(t, err)
	assert.Error(t, b.Delete(context.Background(), "uploads/../../abs.pdf"))
	stored, deletes := fake.keys()
	assert.Empty(t, stored)
	assert.Empty(t, deletes)
}
