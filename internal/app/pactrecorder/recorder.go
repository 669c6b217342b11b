package pactrecorder

import (
	"context"
	"sync"

	"github.com/form3tech-oss/pact-recorder/internal/app/contract"
	"github.com/form3tech-oss/pact-recorder/internal/app/storage"
	log "github.com/sirupsen/logrus"
)

// Recorder folds interactions into stored pact documents. The read, merge and write of one
// document run under that document's lock, so concurrent records never lose an interaction.
type Recorder struct {
	store storage.Store
	locks documentLocks
}

func NewRecorder(store storage.Store) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) Store() storage.Store {
	return r.store
}

// Record merges interaction into the document of identity and returns the stored bytes.
// Store errors are returned as they are.
func (r *Recorder) Record(ctx context.Context, interaction *contract.Interaction, identity contract.Identity) ([]byte, error) {
	key := contract.DocumentKey(identity)

	unlock := r.locks.lock(key)
	defer unlock()

	existing, found, err := r.store.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		existing = nil
	}

	document, err := contract.Merge(interaction, identity, existing)
	if err != nil {
		return nil, err
	}

	if err := r.store.Write(ctx, key, document); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"method": interaction.Request.Method,
		"path":   interaction.Request.Path,
	}).Infof("recorded interaction '%s' into %s", interaction.Description, key)
	return document, nil
}

func (r *Recorder) Document(ctx context.Context, identity contract.Identity) ([]byte, bool, error) {
	key := contract.DocumentKey(identity)

	unlock := r.locks.lock(key)
	defer unlock()
	return r.store.Read(ctx, key)
}

type documentLocks struct {
	locks sync.Map
}

func (l *documentLocks) lock(key string) func() {
	value, _ := l.locks.LoadOrStore(key, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
