package storage

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Store reads and writes pact documents by key. Read reports a missing document with
// found == false and no error.
type Store interface {
	Read(ctx context.Context, key string) (data []byte, found bool, err error)
	Write(ctx context.Context, key string, data []byte) error
}

// ErrInvalidKey is returned for keys that would escape the store.
var ErrInvalidKey = errors.New("invalid document key")

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" || key == "." || key == ".." {
		return errors.Wrapf(ErrInvalidKey, "%q", key)
	}
	if strings.ContainsAny(key, `/\`) || filepath.Base(key) != key {
		return errors.Wrapf(ErrInvalidKey, "%q contains a path separator", key)
	}
	return nil
}
