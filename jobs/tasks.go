package jobs

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDirectorySync is the task type for a directory reconciliation run.
	TaskDirectorySync = "directory:sync"
)

var validate = validator.New()

// DirectorySyncPayload parameterises one reconciliation run. DryRun
// limits the run to counting directory entries; Reason is free text
// carried into the run's log lines.
type DirectorySyncPayload struct {
	DryRun bool   `json:"dry_run"`
	Reason string `json:"reason,omitempty" validate:"omitempty,max=200"`
}

// NewDirectorySyncTask constructs an Asynq task. Reconciliation runs are
// never retried: the next scheduled run supersedes any failed one.
func NewDirectorySyncTask(payload DirectorySyncPayload) (*asynq.Task, error) {
	if err := validate.Struct(&payload); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDirectorySync, data, asynq.MaxRetry(0)), nil
}
