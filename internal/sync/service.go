package sync

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/roleviz/roleviz/internal/directory"
)

// Directory is the slice of the directory client the service reads from.
type Directory interface {
	Search(q directory.Query) ([]directory.Entry, error)
}

// Store persists decoded entries and drives the deletion lifecycle.
type Store interface {
	UpsertRoles(ctx context.Context, roles []Role, watermark time.Time) error
	UpsertResources(ctx context.Context, resources []Resource, watermark time.Time) error
	UpsertAssociations(ctx context.Context, assocs []Association, watermark time.Time) error
	MarkStale(ctx context.Context, table string, watermark time.Time) (int64, error)
	PurgeDeleted(ctx context.Context, table string, cutoff time.Time) (int64, error)
}

// Options control a reconciliation run.
type Options struct {
	DryRun       bool
	PurgeAgeDays int
	DumpDir      string
}

// Service reconciles the directory role model into PostgreSQL.
type Service struct {
	store Store
	log   *slog.Logger
	opts  Options
	clock func() time.Time
}

// NewService constructs a reconciliation service. store may be nil when
// opts.DryRun is set.
func NewService(store Store, logger *slog.Logger, opts Options) *Service {
	return &Service{store: store, log: logger, opts: opts}
}

func (s *Service) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.log != nil {
		return s.log
	}
	return slog.Default()
}

// Run executes one reconciliation pass. The watermark is captured once
// at the start; every row touched this run carries it, and the lifecycle
// phase treats anything older as stale. Failures of a single entity type
// are logged and skipped; only context cancellation aborts the run.
func (s *Service) Run(ctx context.Context, dir Directory) (Summary, error) {
	watermark := s.now()
	log := s.logger().With(slog.String("run_id", uuid.New().String()))

	summary := Summary{
		Watermark: watermark,
		DryRun:    s.opts.DryRun,
		Marked:    make(map[string]int64),
		Purged:    make(map[string]int64),
	}

	log.Info("reconciliation started",
		slog.Time("watermark", watermark),
		slog.Bool("dry_run", s.opts.DryRun),
	)

	if s.opts.DryRun {
		return s.runCounts(ctx, dir, log, summary)
	}

	summary.Roles = s.syncRoles(ctx, dir, log, watermark)
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	summary.Resources = s.syncResources(ctx, dir, log, watermark)
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	summary.Associations = s.syncAssociations(ctx, dir, log, watermark)
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	s.runLifecycle(ctx, log, watermark, &summary)

	log.Info("reconciliation finished",
		slog.Int("roles", summary.Roles.Stored),
		slog.Int("resources", summary.Resources.Stored),
		slog.Int("associations", summary.Associations.Stored),
	)
	return summary, ctx.Err()
}

// runCounts only reports how many entries each subtree holds.
func (s *Service) runCounts(ctx context.Context, dir Directory, log *slog.Logger, summary Summary) (Summary, error) {
	counts := []struct {
		name    string
		query   directory.Query
		outcome *EntityOutcome
	}{
		{"roles", directory.RolesQuery(), &summary.Roles},
		{"resources", directory.ResourcesQuery(), &summary.Resources},
		{"associations", directory.AssociationsQuery(), &summary.Associations},
	}
	for _, c := range counts {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		query := c.query
		query.Attributes = []string{"dn"}
		entries, err := dir.Search(query)
		if err != nil {
			log.Error("count failed", slog.String("entity", c.name), slog.Any("error", err))
			c.outcome.Failed = true
			continue
		}
		c.outcome.Found = len(entries)
		log.Info("counted entries", slog.String("entity", c.name), slog.Int("count", len(entries)))
	}
	return summary, nil
}

func (s *Service) syncRoles(ctx context.Context, dir Directory, log *slog.Logger, watermark time.Time) EntityOutcome {
	var outcome EntityOutcome

	entries, err := dir.Search(directory.RolesQuery())
	s.dump(log, "roles_raw_data.json", entries)
	if err != nil {
		log.Error("role search failed", slog.Any("error", err))
		outcome.Failed = true
		return outcome
	}
	outcome.Found = len(entries)
	log.Info("fetched roles", slog.Int("count", len(entries)))

	roles := make([]Role, 0, len(entries))
	for _, e := range entries {
		roles = append(roles, RoleFromEntry(e))
	}

	if err := s.store.UpsertRoles(ctx, roles, watermark); err != nil {
		log.Error("role reconciliation failed", slog.Any("error", err))
		outcome.Failed = true
		return outcome
	}
	outcome.Stored = len(roles)
	return outcome
}

func (s *Service) syncResources(ctx context.Context, dir Directory, log *slog.Logger, watermark time.Time) EntityOutcome {
	var outcome EntityOutcome

	entries, err := dir.Search(directory.ResourcesQuery())
	s.dump(log, "resources_raw_data.json", entries)
	if err != nil {
		log.Error("resource search failed", slog.Any("error", err))
		outcome.Failed = true
		return outcome
	}
	outcome.Found = len(entries)
	log.Info("fetched resources", slog.Int("count", len(entries)))

	degraded := 0
	resources := make([]Resource, 0, len(entries))
	for _, e := range entries {
		r := ResourceFromEntry(e)
		if ent := r.Entitlement; ent.XML != "" && ent.Src == "" && ent.ID == "" && ent.ParamID == "" {
			degraded++
		}
		resources = append(resources, r)
	}
	if degraded > 0 {
		log.Warn("entitlement payloads left undecoded", slog.Int("count", degraded))
	}

	if err := s.store.UpsertResources(ctx, resources, watermark); err != nil {
		log.Error("resource reconciliation failed", slog.Any("error", err))
		outcome.Failed = true
		return outcome
	}
	outcome.Stored = len(resources)
	return outcome
}

func (s *Service) syncAssociations(ctx context.Context, dir Directory, log *slog.Logger, watermark time.Time) EntityOutcome {
	var outcome EntityOutcome

	entries, err := dir.Search(directory.AssociationsQuery())
	s.dump(log, "associations_raw_data.json", entries)
	if err != nil {
		log.Error("association search failed", slog.Any("error", err))
		outcome.Failed = true
		return outcome
	}
	outcome.Found = len(entries)
	log.Info("fetched associations", slog.Int("count", len(entries)))

	degraded := 0
	assocs := make([]Association, 0, len(entries))
	for _, e := range entries {
		a := AssociationFromEntry(e)
		if a.RawParams != "" && a.ParamsJSON == "" {
			degraded++
		}
		assocs = append(assocs, a)
	}
	if degraded > 0 {
		log.Warn("dynamic parameter payloads left undecoded", slog.Int("count", degraded))
	}

	if err := s.store.UpsertAssociations(ctx, assocs, watermark); err != nil {
		log.Error("association reconciliation failed", slog.Any("error", err))
		outcome.Failed = true
		return outcome
	}
	outcome.Stored = len(assocs)
	return outcome
}

// runLifecycle marks untouched rows deleted, then purges rows deleted
// longer than the retention window. Rows of a type whose fetch failed
// this run will be marked stale too; the purge window gives operators
// time to notice before data is dropped.
func (s *Service) runLifecycle(ctx context.Context, log *slog.Logger, watermark time.Time, summary *Summary) {
	if summary.Roles.Failed || summary.Resources.Failed || summary.Associations.Failed {
		log.Warn("lifecycle runs with failed entity types; their rows will age out",
			slog.Bool("roles_failed", summary.Roles.Failed),
			slog.Bool("resources_failed", summary.Resources.Failed),
			slog.Bool("associations_failed", summary.Associations.Failed),
		)
	}

	for _, table := range LifecycleTables {
		n, err := s.store.MarkStale(ctx, table, watermark)
		if err != nil {
			log.Error("mark stale failed", slog.String("table", table), slog.Any("error", err))
			continue
		}
		summary.Marked[table] = n
		log.Info("marked stale rows", slog.String("table", table), slog.Int64("rows", n))
	}

	cutoff := watermark.AddDate(0, 0, -s.opts.PurgeAgeDays)
	for _, table := range LifecycleTables {
		n, err := s.store.PurgeDeleted(ctx, table, cutoff)
		if err != nil {
			log.Error("purge failed", slog.String("table", table), slog.Any("error", err))
			continue
		}
		summary.Purged[table] = n
		log.Info("purged deleted rows", slog.String("table", table), slog.Int64("rows", n))
	}
}

// dump writes the raw search result to the debug directory. Disabled
// unless a directory is configured; runs on failed searches too so the
// file reflects what the run actually saw.
func (s *Service) dump(log *slog.Logger, name string, entries []directory.Entry) {
	if s.opts.DumpDir == "" {
		return
	}
	if err := os.MkdirAll(s.opts.DumpDir, 0o755); err != nil {
		log.Warn("debug dump failed", slog.String("file", name), slog.Any("error", err))
		return
	}
	path := filepath.Join(s.opts.DumpDir, name)
	file, err := os.Create(path)
	if err != nil {
		log.Warn("debug dump failed", slog.String("file", name), slog.Any("error", err))
		return
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		log.Warn("debug dump failed", slog.String("file", name), slog.Any("error", err))
		return
	}
	log.Debug("wrote debug dump", slog.String("file", path))
}
