package drafts

import (
	"context"
	"sync"
	"time"

	"pontes/internal/triage/models"
	"pontes/pkg/platform/sentinel"
)

type entry struct {
	draft     models.Draft
	expiresAt time.Time
}

// InMemoryStore mirrors RedisStore semantics, expiry included, for single
// instance deployments and tests.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InMemoryStore{entries: make(map[string]entry), ttl: ttl, now: time.Now}
}

func (s *InMemoryStore) Get(_ context.Context, userID string) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, userID)
		return nil, sentinel.ErrNotFound
	}
	out := e.draft
	out.Answers = e.draft.Answers.Clone()
	return &out, nil
}

func (s *InMemoryStore) Save(_ context.Context, draft *models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *draft
	stored.Answers = draft.Answers.Clone()
	s.entries[draft.UserID] = entry{draft: stored, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}
