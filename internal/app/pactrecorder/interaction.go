package pactrecorder

import (
	"sync"
	"time"
)

// recordedInteraction tracks how often a description was written to a pact during a session.
type recordedInteraction struct {
	mu          sync.RWMutex
	description string
	alias       string
	method      string
	path        string
	pact        string
	recordCount int
	lastRecord  time.Time
}

// InteractionSummary is the JSON view of a recorded interaction.
type InteractionSummary struct {
	Description  string    `json:"description"`
	Alias        string    `json:"alias,omitempty"`
	Method       string    `json:"method"`
	Path         string    `json:"path"`
	Pact         string    `json:"pact"`
	RecordCount  int       `json:"record_count"`
	LastRecorded time.Time `json:"last_recorded"`
}

func newRecordedInteraction(description, alias string) *recordedInteraction {
	return &recordedInteraction{description: description, alias: alias}
}

func (i *recordedInteraction) StoreRecord(method, path, pact string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.method = method
	i.path = path
	i.pact = pact
	i.recordCount++
	i.lastRecord = time.Now().UTC()
}

func (i *recordedInteraction) HasRecords(count int) bool {
	return i.getRecordCount() >= count
}

func (i *recordedInteraction) getRecordCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.recordCount
}

func (i *recordedInteraction) Summary() InteractionSummary {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return InteractionSummary{
		Description:  i.description,
		Alias:        i.alias,
		Method:       i.method,
		Path:         i.path,
		Pact:         i.pact,
		RecordCount:  i.recordCount,
		LastRecorded: i.lastRecord,
	}
}
