// Package drafts keeps each user's in-progress questionnaire between requests.
package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pontes/internal/triage/models"
	"pontes/pkg/platform/sentinel"
)

const draftKeyPrefix = "triage:draft:"

// DefaultTTL bounds how long an untouched draft survives.
const DefaultTTL = 30 * 24 * time.Hour

// RedisStore stores drafts as JSON values with a sliding TTL: every save
// resets the expiry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedis constructs a Redis-backed draft store.
func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func draftKey(userID string) string {
	return draftKeyPrefix + userID
}

// Get returns sentinel.ErrNotFound when the user has no live draft.
func (s *RedisStore) Get(ctx context.Context, userID string) (*models.Draft, error) {
	raw, err := s.client.Get(ctx, draftKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get draft: %v", sentinel.ErrUnavailable, err)
	}
	var draft models.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &draft, nil
}

func (s *RedisStore) Save(ctx context.Context, draft *models.Draft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(draft.UserID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: save draft: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

// Delete is a no-op when the draft does not exist.
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, draftKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: delete draft: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}
