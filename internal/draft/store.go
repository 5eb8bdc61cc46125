package draft

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/astlabs/run-portal/pkg/models"
)

// ErrNotFound is returned for unknown, expired, or already-claimed drafts.
var ErrNotFound = errors.New("draft not found")

type entry struct {
	draft     models.RunDraft
	expiresAt time.Time
}

// Store holds in-progress run drafts between the creation and review steps.
// Each draft lives until its TTL or until it is claimed, whichever comes
// first; a claim removes the draft so a run is never submitted twice.
type Store struct {
	mu     sync.Mutex
	drafts map[string]entry
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates a draft store with the given time-to-live.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		drafts: make(map[string]entry),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Put stores a draft keyed by its run ID, replacing any previous draft
// under the same key.
func (s *Store) Put(d models.RunDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.RunID] = entry{draft: d, expiresAt: s.now().Add(s.ttl)}
}

// Peek returns a draft without consuming it.
func (s *Store) Peek(id string) (models.RunDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.drafts[id]
	if !ok || s.now().After(e.expiresAt) {
		delete(s.drafts, id)
		return models.RunDraft{}, ErrNotFound
	}
	return e.draft, nil
}

// Claim atomically reads and deletes a draft. Exactly one caller can claim
// a given draft; everyone else gets ErrNotFound.
func (s *Store) Claim(id string) (models.RunDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.drafts[id]
	if !ok {
		return models.RunDraft{}, ErrNotFound
	}
	delete(s.drafts, id)
	if s.now().After(e.expiresAt) {
		return models.RunDraft{}, ErrNotFound
	}
	return e.draft, nil
}

// Len reports how many drafts are currently held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

// Sweep runs until ctx is done, periodically evicting expired drafts.
func (s *Store) Sweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, e := range s.drafts {
		if now.After(e.expiresAt) {
			delete(s.drafts, id)
		}
	}
}
