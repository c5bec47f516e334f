package s3

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	mu   sync.Mutex
	keys map[string][]byte
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{keys: make(map[string][]byte)}
}

func (f *fakeUploader) UploadWithContext(_ aws.Context, input *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	data := make([]byte, 0)
	buf := make([]byte, 4096)
	for {
		n, err := input.Body.Read(buf)
		data = append(data, buf[:n]...)
		if err != nil {
			break
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[aws.StringValue(input.Key)] = data
	return &s3manager.UploadOutput{}, nil
}

func newTestUploader(fake *fakeUploader) *Uploader {
	return &Uploader{uploader: fake, bucket: "test-bucket"}
}

func TestUploadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	fake := newFakeUploader()
	u := newTestUploader(fake)

	require.NoError(t, u.UploadFile(context.Background(), path, "remote/a.txt"))
	assert.Equal(t, []byte("hello"), fake.keys["remote/a.txt"])
}

func TestUploadBuffer(t *testing.T) {
	fake := newFakeUploader()
	u := newTestUploader(fake)

	require.NoError(t, u.UploadBuffer(context.Background(), []byte("data"), "remote/b.bin"))
	assert.Equal(t, []byte("data"), fake.keys["remote/b.bin"])
}

func TestUploadFolderUploadsEveryRegularFileUnderItsRelativePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("1"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("2"), 0o644))

	fake := newFakeUploader()
	u := newTestUploader(fake)

	require.NoError(t, u.UploadFolder(context.Background(), dir, "snapshots/run1"))

	assert.Equal(t, []byte("1"), fake.keys["snapshots/run1/a.txt"])
	assert.Equal(t, []byte("2"), fake.keys["snapshots/run1/sub/b.txt"])
	assert.Len(t, fake.keys, 2)
}

func TestUploadFolderPropagatesUploadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("1"), 0o644))

	u := &Uploader{uploader: erroringUploader{}, bucket: "test-bucket"}

	err := u.UploadFolder(context.Background(), dir, "snapshots")
	assert.Error(t, err)
}

type erroringUploader struct{}

func (erroringUploader) UploadWithContext(aws.Context, *s3manager.UploadInput, ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	return nil, assert.AnError
}
