package blob

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_PutGet(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	audio := []byte("RIFF....WAVEfmt ")
	require.NoError(t, fs.Put(ctx, "voice/s-1/q-1.wav", bytes.NewReader(audio), int64(len(audio)), "audio/wav"))

	rc, err := fs.Get(ctx, "voice/s-1/q-1.wav")
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, audio, got)
}

func TestFS_Overwrite(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Put(ctx, "k", bytes.NewReader([]byte("one")), 3, ""))
	require.NoError(t, fs.Put(ctx, "k", bytes.NewReader([]byte("two")), 3, ""))

	rc, err := fs.Get(ctx, "k")
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "two", string(got))
}

func TestFS_Missing(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	require.NoError(t, err)
	_, err = fs.Get(context.Background(), "voice/none.wav")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFS_RejectsEscapingKeys(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"../etc/passwd", "a/../../b", ""} {
		err := fs.Put(context.Background(), key, bytes.NewReader(nil), 0, "")
		assert.Error(t, err, key)
	}
}

func TestMinIO(t *testing.T) {
	endpoint := os.Getenv("BRIGADE_TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("BRIGADE_TEST_MINIO_ENDPOINT not set")
	}
	ctx := context.Background()
	m, err := NewMinIO(ctx, MinIOConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("BRIGADE_TEST_MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("BRIGADE_TEST_MINIO_SECRET_KEY"),
		Bucket:    "brigade-test",
	})
	require.NoError(t, err)

	require.NoError(t, m.Put(ctx, "voice/t.wav", bytes.NewReader([]byte("abc")), 3, "audio/wav"))
	rc, err := m.Get(ctx, "voice/t.wav")
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "abc", string(got))

	_, err = m.Get(ctx, "voice/missing.wav")
	assert.ErrorIs(t, err, ErrNotFound)
}
