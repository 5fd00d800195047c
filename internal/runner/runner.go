// Package runner scans many containers concurrently and gathers the results
// into a single report. A container that cannot be opened or listed is
// reported and skipped; it never stops the other scans.
package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/resscan/internal/models"
	"github.com/harrison/resscan/internal/modindex"
	"github.com/harrison/resscan/internal/policy"
	"github.com/harrison/resscan/internal/scan"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is used when Config.Workers is not positive
const DefaultWorkers = 4

// Config wires a Runner to its collaborators.
type Config struct {
	Source    scan.PoolSource
	Evaluator policy.Evaluator
	Options   scan.Options
	Workers   int
	// Index, when set, receives the modification times of every scanned
	// container.
	Index  *modindex.Index
	Logger scan.Logger
	// OnResult, when set, is called after each container finishes. Calls are
	// serialised.
	OnResult func(done, total int, result models.ContainerResult)
}

// Runner drives scan units over a list of containers.
type Runner struct {
	cfg Config
}

// New creates a Runner
func New(cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Runner{cfg: cfg}
}

// Run scans every container and returns results in input order. The only
// error is cancellation of ctx; per-container failures show up as skipped
// results.
func (r *Runner) Run(ctx context.Context, refs []models.ContainerRef) (*models.ScanReport, error) {
	report := &models.ScanReport{
		RunID:      uuid.NewString(),
		StartedAt:  time.Now(),
		Containers: make([]models.ContainerResult, len(refs)),
	}
	mtimes := make([]map[string]time.Time, len(refs))

	var (
		progressMu sync.Mutex
		done       int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for i, ref := range refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, lm := r.scanOne(gctx, ref)
			report.Containers[i] = result
			mtimes[i] = lm

			if r.cfg.OnResult != nil {
				progressMu.Lock()
				done++
				r.cfg.OnResult(done, len(refs), result)
				progressMu.Unlock()
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan cancelled: %w", err)
	}
	report.Duration = time.Since(report.StartedAt)

	if r.cfg.Index != nil {
		merged := make(map[string]time.Time)
		for _, lm := range mtimes {
			for file, t := range lm {
				merged[file] = t
			}
		}
		if err := r.cfg.Index.Record(ctx, merged); err != nil {
			r.warn(fmt.Sprintf("Could not update modification index %s: %v", r.cfg.Index.Path(), err))
		}
	}
	return report, nil
}

// scanOne builds a unit for ref, scans it and closes it.
func (r *Runner) scanOne(ctx context.Context, ref models.ContainerRef) (models.ContainerResult, map[string]time.Time) {
	start := time.Now()
	unit := scan.NewUnit(ref, r.cfg.Evaluator, r.cfg.Source, r.cfg.Options, r.cfg.Logger)
	defer unit.Close()

	unit.Scan(ctx, r.cfg.Logger)

	result := models.ContainerResult{
		Container: ref,
		Skipped:   unit.Skipped(),
	}
	classfiles := make(map[string]bool)
	for _, res := range unit.ClassfileMatches() {
		classfiles[res.Path()] = true
	}
	for _, res := range unit.FileMatches() {
		entry := models.ResourceEntry{Path: res.Path(), Classfile: classfiles[res.Path()]}
		if loc, err := res.Locator(); err == nil {
			entry.Locator = loc.String()
		} else {
			r.debug(err.Error())
		}
		result.Resources = append(result.Resources, entry)
	}
	result.Classfiles = len(classfiles)

	lm := unit.LastModified()
	if t, ok := lm[ref.File]; ok {
		result.LastModified = t
	}
	result.Duration = time.Since(start)
	return result, lm
}

// Stale returns the containers whose backing file changed since the index
// last recorded it, sorted by file. Containers without a backing file and
// system containers are never stale.
func (r *Runner) Stale(ctx context.Context, refs []models.ContainerRef) ([]models.ContainerRef, error) {
	if r.cfg.Index == nil {
		return nil, fmt.Errorf("no modification index configured")
	}
	stat := r.cfg.Options.Stat
	if stat == nil {
		return nil, fmt.Errorf("no stat function configured")
	}

	var stale []models.ContainerRef
	for _, ref := range refs {
		if ref.System || ref.File == "" {
			continue
		}
		info, err := stat(ref.File)
		if err != nil {
			r.warn(fmt.Sprintf("Cannot stat %s: %v", ref.File, err))
			continue
		}
		isStale, err := r.cfg.Index.IsStale(ctx, ref.File, info.ModTime())
		if err != nil {
			return nil, err
		}
		if isStale {
			stale = append(stale, ref)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].File < stale[j].File })
	return stale, nil
}

func (r *Runner) warn(msg string) {
	if r.cfg.Logger != nil {
		r.cfg.Logger.LogWarn(msg)
	}
}

func (r *Runner) debug(msg string) {
	if r.cfg.Logger != nil {
		r.cfg.Logger.LogDebug(msg)
	}
}
