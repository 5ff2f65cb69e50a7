package tempfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelease_RemovesOnce(t *testing.T) {
	p := filepath.Join(t.TempDir(), "upload.jpg")
	require.NoError(t, os.WriteFile(p, []byte("img"), 0o600))

	f := Own(p)
	assert.FileExists(t, p)

	f.Release()
	assert.NoFileExists(t, p)

	// A new file at the same path must survive a second Release.
	require.NoError(t, os.WriteFile(p, []byte("other"), 0o600))
	f.Release()
	assert.FileExists(t, p)
}

func TestRelease_MissingAndEmpty(t *testing.T) {
	Own(filepath.Join(t.TempDir(), "gone.jpg")).Release()
	Own("").Release()

	var nilFile *File
	nilFile.Release()
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	f, err := Write(dir, "img-*.jpg", []byte("bytes"))
	require.NoError(t, err)

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(data))
	assert.Equal(t, dir, filepath.Dir(f.Path()))

	f.Release()
	assert.NoFileExists(t, f.Path())
}
