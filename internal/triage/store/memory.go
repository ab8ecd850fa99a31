// Package store persists one normalized triage record per user.
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"pontes/internal/triage/models"
	"pontes/pkg/platform/sentinel"
)

// InMemoryStore keeps records in a map keyed by user id.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]models.Record)}
}

func (s *InMemoryStore) FindByUserID(_ context.Context, userID string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyRecord(rec), nil
}

// Upsert creates the user's record or merges rec into the stored one.
func (s *InMemoryStore) Upsert(_ context.Context, rec *models.Record) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[rec.UserID]
	if !ok {
		created := *copyRecord(*rec)
		if created.ID == uuid.Nil {
			created.ID = uuid.New()
		}
		s.records[rec.UserID] = created
		return copyRecord(created), nil
	}
	stored.Merge(copyRecord(*rec), rec.UpdatedAt)
	s.records[rec.UserID] = stored
	return copyRecord(stored), nil
}

func copyRecord(rec models.Record) *models.Record {
	out := rec
	out.Interests = cloneStrings(rec.Interests)
	out.Urgencies = cloneStrings(rec.Urgencies)
	out.Answers = rec.Answers.Clone()
	if rec.CompletedAt != nil {
		at := *rec.CompletedAt
		out.CompletedAt = &at
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}
