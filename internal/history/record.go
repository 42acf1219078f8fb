package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// dayLayout buckets records per calendar day in the runner's local time.
const dayLayout = "2006-01-02"

// Record is the stored outcome of one identity's run.
type Record struct {
	RunID       string    `json:"runId"`
	Name        string    `json:"name,omitempty"`
	ScoreBefore string    `json:"scoreBefore,omitempty"`
	ScoreAfter  string    `json:"scoreAfter,omitempty"`
	Success     bool      `json:"success"`
	Outcome     string    `json:"outcome"`
	Message     string    `json:"message,omitempty"`
	CheckedAt   time.Time `json:"checkedAt"`
}

// Store persists run records keyed by openid and day.
type Store interface {
	Save(ctx context.Context, openid string, rec *Record) error
	Get(ctx context.Context, openid string, day time.Time) (*Record, error)
}

// Day formats t as a storage bucket.
func Day(t time.Time) string { return t.Format(dayLayout) }

// subject hides the openid in keys.
func subject(openid string) string {
	sum := sha256.Sum256([]byte(openid))
	return hex.EncodeToString(sum[:])
}

// NopStore discards records; used when Redis is not configured.
type NopStore struct{}

func (NopStore) Save(ctx context.Context, openid string, rec *Record) error { return nil }
func (NopStore) Get(ctx context.Context, openid string, day time.Time) (*Record, error) {
	return nil, nil
}
