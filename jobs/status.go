package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// lastRunKey holds the JSON summary of the most recent reconciliation run.
const lastRunKey = "roleviz:jobs:directory_sync:last_run"

// ErrNoRunRecorded reports that no reconciliation run has completed yet.
var ErrNoRunRecorded = errors.New("jobs: no run recorded")

// RunStatus captures the outcome of a reconciliation run for the ops
// endpoints. Error carries the message when the run aborted before the
// lifecycle phase.
type RunStatus struct {
	Reason       string           `json:"reason,omitempty"`
	DryRun       bool             `json:"dry_run"`
	Watermark    time.Time        `json:"watermark"`
	FinishedAt   time.Time        `json:"finished_at"`
	Error        string           `json:"error,omitempty"`
	Roles        RunEntityStatus  `json:"roles"`
	Resources    RunEntityStatus  `json:"resources"`
	Associations RunEntityStatus  `json:"associations"`
	Marked       map[string]int64 `json:"marked,omitempty"`
	Purged       map[string]int64 `json:"purged,omitempty"`
}

// RunEntityStatus reports how one entity type fared during a run.
type RunEntityStatus struct {
	Found  int  `json:"found"`
	Stored int  `json:"stored"`
	Failed bool `json:"failed"`
}

// StatusStore persists the last run summary in Redis, next to the queue
// it describes.
type StatusStore struct {
	client *redis.Client
}

// NewStatusStore wraps the Redis client shared with the queue.
func NewStatusStore(client *redis.Client) *StatusStore {
	return &StatusStore{client: client}
}

// RecordRun stores status as the most recent run.
func (s *StatusStore) RecordRun(ctx context.Context, status RunStatus) error {
	if s == nil || s.client == nil {
		return nil
	}
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("jobs: marshal run status: %w", err)
	}
	if err := s.client.Set(ctx, lastRunKey, data, 0).Err(); err != nil {
		return fmt.Errorf("jobs: store run status: %w", err)
	}
	return nil
}

// LastRun loads the most recent run status.
func (s *StatusStore) LastRun(ctx context.Context) (RunStatus, error) {
	var status RunStatus
	if s == nil || s.client == nil {
		return status, ErrNoRunRecorded
	}
	data, err := s.client.Get(ctx, lastRunKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return status, ErrNoRunRecorded
	}
	if err != nil {
		return status, fmt.Errorf("jobs: load run status: %w", err)
	}
	if err := json.Unmarshal(data, &status); err != nil {
		return status, fmt.Errorf("jobs: decode run status: %w", err)
	}
	return status, nil
}
