package models

import (
	"time"
)

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, set when denied
}

// Policy bounds requests per key over a sliding window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// UserKey namespaces per-user buckets.
func UserKey(userID string) string {
	return "rl:user:" + userID
}
