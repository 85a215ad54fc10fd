package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/roleviz/roleviz/internal/app"
	"github.com/roleviz/roleviz/internal/directory"
	jobmetrics "github.com/roleviz/roleviz/internal/jobs"
	"github.com/roleviz/roleviz/internal/sync"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DirectorySession is what a reconciliation run needs from the directory:
// searches while the run lasts, then a close.
type DirectorySession interface {
	sync.Directory
	Close() error
}

// DirectorySyncJob runs one reconciliation pass per task. Each run dials
// a fresh LDAP connection; the vault drops idle binds between the nightly
// schedules, so there is nothing to keep alive.
type DirectorySyncJob struct {
	Config  *app.Config
	Store   sync.Store
	Status  *StatusStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Dial    func(addr, bindDN, password string) (DirectorySession, error)

	clock func() time.Time
}

// NewDirectorySyncJob wires dependencies for the reconciliation handler.
func NewDirectorySyncJob(cfg *app.Config, store sync.Store, status *StatusStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *DirectorySyncJob {
	return &DirectorySyncJob{
		Config:  cfg,
		Store:   store,
		Status:  status,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes directory sync tasks.
func (j *DirectorySyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Config == nil {
		return errors.New("directory sync: handler not configured")
	}
	var payload DirectorySyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := validate.Struct(payload); err != nil {
		return asynq.SkipRetry
	}
	dryRun := payload.DryRun || j.Config.DryRun

	tracker := j.metrics().Track(TaskDirectorySync)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	if payload.Reason != "" {
		logger = logger.With(slog.String("reason", payload.Reason))
	}

	dir, err := j.dialer()(j.Config.LDAPAddr(), j.Config.LDAPBindDN, j.Config.LDAPPassword)
	if err != nil {
		resultErr = err
		logger.Error("directory connect", slog.Any("error", err))
		j.recordStatus(ctx, logger, RunStatus{
			Reason:     payload.Reason,
			DryRun:     dryRun,
			FinishedAt: j.now(),
			Error:      err.Error(),
		})
		return resultErr
	}
	defer dir.Close()

	svc := sync.NewService(j.Store, logger, sync.Options{
		DryRun:       dryRun,
		PurgeAgeDays: j.Config.PurgeAgeDays,
		DumpDir:      j.Config.DebugDumpDir,
	})
	summary, runErr := svc.Run(ctx, dir)
	j.recordStatus(ctx, logger, j.statusFromSummary(payload, summary, runErr))
	if runErr != nil {
		resultErr = runErr
		return resultErr
	}

	j.metrics().SetEntityRows("roles", summary.Roles.Found, summary.Roles.Stored)
	j.metrics().SetEntityRows("resources", summary.Resources.Found, summary.Resources.Stored)
	j.metrics().SetEntityRows("associations", summary.Associations.Found, summary.Associations.Stored)
	for _, table := range sync.LifecycleTables {
		j.metrics().SetLifecycleRows(table, summary.Marked[table], summary.Purged[table])
	}
	return resultErr
}

func (j *DirectorySyncJob) statusFromSummary(payload DirectorySyncPayload, summary sync.Summary, runErr error) RunStatus {
	status := RunStatus{
		Reason:       payload.Reason,
		DryRun:       summary.DryRun,
		Watermark:    summary.Watermark,
		FinishedAt:   j.now(),
		Roles:        RunEntityStatus(summary.Roles),
		Resources:    RunEntityStatus(summary.Resources),
		Associations: RunEntityStatus(summary.Associations),
		Marked:       summary.Marked,
		Purged:       summary.Purged,
	}
	if runErr != nil {
		status.Error = runErr.Error()
	}
	return status
}

func (j *DirectorySyncJob) recordStatus(ctx context.Context, logger *slog.Logger, status RunStatus) {
	if err := j.Status.RecordRun(ctx, status); err != nil {
		logger.Warn("record run status", slog.Any("error", err))
	}
}

func (j *DirectorySyncJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDirectorySync))
	}
	return slog.Default().With(slog.String("job", TaskDirectorySync))
}

func (j *DirectorySyncJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DirectorySyncJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *DirectorySyncJob) dialer() func(addr, bindDN, password string) (DirectorySession, error) {
	if j.Dial != nil {
		return j.Dial
	}
	return func(addr, bindDN, password string) (DirectorySession, error) {
		return directory.Dial(addr, bindDN, password)
	}
}
