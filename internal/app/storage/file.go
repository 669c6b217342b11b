package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const tempFilePrefix = "pact-tmp-"

// FileStore keeps one JSON file per key inside a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, key)
}

func (s *FileStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(s.Path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "read %s", s.Path(key))
	}
	return data, true, nil
}

func (s *FileStore) Write(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrapf(err, "create pact directory %s", s.dir)
	}
	return writeFileAtomic(s.Path(key), data, 0o644)
}

// Clear removes the pact directory and everything in it.
func (s *FileStore) Clear() error {
	log.Infof("clearing pacts in %s", s.dir)
	if err := os.RemoveAll(s.dir); err != nil {
		return errors.Wrapf(err, "remove pact directory %s", s.dir)
	}
	return nil
}

// writeFileAtomic writes to a temp file in the same directory and renames it over filename,
// so readers never observe a partially written document.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(filename), tempFilePrefix+"*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmpFile.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return errors.Wrap(err, "chmod temp file")
	}
	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return errors.Wrapf(err, "rename temp file to %s", filename)
	}
	return nil
}
