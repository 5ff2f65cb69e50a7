// Package tempfile scopes local files owned by a single request so that they
// are removed exactly once on every exit path.
package tempfile

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

type File struct {
	path string
	once sync.Once
}

// Own takes ownership of an existing file. An empty path yields a File whose
// Release is a no-op.
func Own(path string) *File {
	return &File{path: path}
}

// Write stores data in a new file under dir (os.TempDir when empty).
func Write(dir, pattern string, data []byte) (*File, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}
	tf := Own(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		tf.Release()
		return nil, err
	}
	if err := f.Close(); err != nil {
		tf.Release()
		return nil, err
	}
	return tf, nil
}

func (f *File) Path() string {
	return f.path
}

// Release removes the file. Only the first call acts; failures are logged.
func (f *File) Release() {
	if f == nil {
		return
	}
	f.once.Do(func() {
		if f.path == "" {
			return
		}
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warnw("failed to remove temporary file", "path", f.path, "error", err)
		}
	})
}
