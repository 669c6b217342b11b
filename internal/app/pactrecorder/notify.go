package pactrecorder

import (
	"context"
	"sync"
	"time"
)

// notify wakes every waiter whenever an interaction is recorded.
type notify struct {
	mu       sync.Mutex
	recorded chan struct{}
}

func newNotify() *notify {
	return &notify{recorded: make(chan struct{})}
}

func (n *notify) Wait(ctx context.Context, timeout time.Duration) {
	n.mu.Lock()
	recorded := n.recorded
	n.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-recorded:
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (n *notify) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	close(n.recorded)
	n.recorded = make(chan struct{})
}
