package stories

import (
	"os"
	"path/filepath"
)

// FileBackend stores story media files in a directory.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Remove permanently deletes a story media file, a missing file is not an error.
func (fb *FileBackend) Remove(name string) error {
	if name == "" {
		return nil
	}

	err := os.Remove(filepath.Join(fb.path, filepath.Base(name)))
	if os.IsNotExist(err) {
		return nil
	}

	return err
}
