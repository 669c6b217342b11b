package pactrecorder

import (
	"sync"

	"github.com/form3tech-oss/pact-recorder/internal/app/contract"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Session holds the identity and header blocklist applied to captures. Tests set it up,
// record, and reset it so configuration does not leak into the next test.
type Session struct {
	mu        sync.RWMutex
	defaults  contract.Identity
	base      *contract.Blocklist
	identity  contract.Identity
	blocklist *contract.Blocklist
}

func NewSession(identity contract.Identity, blocklist *contract.Blocklist) *Session {
	return &Session{
		defaults:  identity,
		base:      blocklist,
		identity:  identity,
		blocklist: blocklist,
	}
}

func (s *Session) SetIdentity(identity contract.Identity) error {
	if err := identity.Validate(); err != nil {
		return errors.Wrap(err, "invalid pact identity")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	log.Infof("recording pacts for consumer '%s' and provider '%s'", identity.ConsumerName, identity.ProviderName)
	return nil
}

func (s *Session) AddHeaderBlocklist(headers ...string) *contract.Blocklist {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocklist = s.blocklist.With(headers...)
	return s.blocklist
}

func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = s.defaults
	s.blocklist = s.base
}

// Snapshot returns the values to thread through a single build and merge.
func (s *Session) Snapshot() (contract.Identity, *contract.Blocklist) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.blocklist
}
