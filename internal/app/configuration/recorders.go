package configuration

import (
	"path/filepath"
	"sync"

	"github.com/form3tech-oss/pact-recorder/internal/app/pactrecorder"
	"github.com/form3tech-oss/pact-recorder/internal/app/storage"
	"github.com/pkg/errors"
)

// recorders holds one Recorder per pact directory, so every server writing to a directory
// shares its document locks.
var recorders sync.Map

func recorderFor(dir string) *pactrecorder.Recorder {
	key := absDir(dir)
	recorder, _ := recorders.LoadOrStore(key, pactrecorder.NewRecorder(storage.NewFileStore(key)))
	return recorder.(*pactrecorder.Recorder)
}

// CleanPacts removes the pacts written to dir by previous runs.
func CleanPacts(dir string) error {
	return storage.NewFileStore(absDir(dir)).Clear()
}

// CleanAllPacts removes the pacts of every directory a recorder has been configured for.
func CleanAllPacts() error {
	var result error
	recorders.Range(func(_, value interface{}) bool {
		store, ok := value.(*pactrecorder.Recorder).Store().(*storage.FileStore)
		if !ok {
			return true
		}
		if err := store.Clear(); err != nil {
			result = errors.Wrapf(err, "clean %s", store.Dir())
			return false
		}
		return true
	})
	return result
}

func absDir(dir string) string {
	if dir == "" {
		dir = "pacts"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Clean(dir)
	}
	return abs
}
