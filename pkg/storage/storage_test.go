package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewKey(t *testing.T) {
	assert.Equal(t, "review/job-1.json", ReviewKey("job-1"))

	id, ok := JobIDFromReviewKey(ReviewKey("job-1"))
	assert.True(t, ok)
	assert.Equal(t, "job-1", id)

	for _, key := range []string{"review/.json", "other/job.json", "review/a/b.json", "review/job.txt"} {
		_, ok := JobIDFromReviewKey(key)
		assert.False(t, ok, key)
	}
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewLocalStore(root)

	_, err := s.Get(ctx, ReviewKey("job-1"))
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Put(ctx, ReviewKey("job-1"), []byte(`{"v":1}`)))
	require.NoError(t, s.Put(ctx, ReviewKey("job-1"), []byte(`{"v":2}`)))
	require.NoError(t, s.Put(ctx, ReviewKey("job-2"), []byte(`{}`)))
	require.NoError(t, s.Put(ctx, "other/x.json", []byte(`{}`)))

	data, err := s.Get(ctx, ReviewKey("job-1"))
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))

	info, err := os.Stat(filepath.Join(root, "review", "job-1.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	keys, err := s.List(ctx, ReviewPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"review/job-1.json", "review/job-2.json"}, keys)

	entries, err := os.ReadDir(filepath.Join(root, "review"))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestLocalStoreMissingRoot(t *testing.T) {
	s := NewLocalStore(filepath.Join(t.TempDir(), "absent"))
	keys, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStoresRejectEscapingKeys(t *testing.T) {
	ctx := context.Background()
	for _, s := range []BlobStore{NewLocalStore(t.TempDir()), NewMemoryStore()} {
		for _, key := range []string{"", "/etc/passwd", "../x.json", "review/../../x"} {
			assert.Error(t, s.Put(ctx, key, []byte("x")), "%T %q", s, key)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "review/a.json")
	assert.True(t, errors.Is(err, ErrNotFound))

	buf := []byte("one")
	require.NoError(t, s.Put(ctx, "review/a.json", buf))
	buf[0] = 'X'

	data, err := s.Get(ctx, "review/a.json")
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	require.NoError(t, s.Put(ctx, "z.json", nil))
	keys, err := s.List(ctx, "review/")
	require.NoError(t, err)
	assert.Equal(t, []string{"review/a.json"}, keys)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, dir, AWSOptions{})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)

	s, err = Open(ctx, "file://"+dir, AWSOptions{})
	require.NoError(t, err)
	assert.Equal(t, dir, s.(*LocalStore).Root)

	s, err = Open(ctx, "https://review.example.com/api/", AWSOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://review.example.com/api", s.(*HTTPStore).BaseURL)

	s, err = Open(ctx, "s3://bucket/reviews/", AWSOptions{Region: "us-east-1"})
	require.NoError(t, err)
	assert.Equal(t, "bucket", s.(*S3Store).Bucket)
	assert.Equal(t, "reviews", s.(*S3Store).Prefix)

	s, err = Open(ctx, "dynamodb://reviews", AWSOptions{Region: "us-east-1"})
	require.NoError(t, err)
	assert.Equal(t, "reviews", s.(*DynamoStore).Table)

	for _, bad := range []string{"", "ftp://x", "s3:///nobucket", "dynamodb://"} {
		_, err := Open(ctx, bad, AWSOptions{})
		assert.Error(t, err, bad)
	}
}
