// Package scan walks the members of one container and hands out lazily
// opened resources for the ones an inclusion policy accepts.
//
// A Unit is bound to a single container. Creating it fetches the container's
// reader pool; if that fails the unit is skipped for good and every later
// operation is a no-op or returns ErrUnitSkipped. Scan leases one reader,
// lists the members once and classifies each member's parent directory,
// reusing the previous verdict while consecutive members share a directory.
// Accepted members become Resources that lease their own reader when opened.
//
// Distinct units may be scanned concurrently. A single unit's collections are
// written only by its own Scan call.
package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harrison/resscan/internal/container"
	"github.com/harrison/resscan/internal/fileutil"
	"github.com/harrison/resscan/internal/models"
	"github.com/harrison/resscan/internal/policy"
	"github.com/harrison/resscan/internal/pool"
)

// Logger is the logging surface used by the scanner. A nil Logger is
// accepted wherever one is taken.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// PoolSource hands out the reader pool for a container. Every pool obtained
// from PoolFor is given back with Release exactly once.
type PoolSource interface {
	PoolFor(ref models.ContainerRef) (*pool.ReaderPool, error)
	Release(ref models.ContainerRef, p *pool.ReaderPool) error
}

// StatFunc reports file metadata, like os.Stat
type StatFunc func(name string) (os.FileInfo, error)

// Options controls what a scan collects.
type Options struct {
	// ScanFiles enables the match collections. Without it Scan does nothing.
	ScanFiles bool
	// EnableClassInfo also collects members that look like classfiles.
	EnableClassInfo bool
	// Stat reads the backing file's modification time. Defaults to os.Stat.
	Stat StatFunc
}

// Unit scans one container.
type Unit struct {
	ref    models.ContainerRef
	eval   policy.Evaluator
	opts   Options
	source PoolSource
	pool   *pool.ReaderPool

	skipped   atomic.Bool
	closeOnce sync.Once

	fileMatches      []*Resource
	classfileMatches []*Resource
	lastModified     map[string]time.Time
}

// NewUnit binds a unit to ref. A container that cannot be opened does not
// produce an error: the failure is logged and the unit is marked skipped.
func NewUnit(ref models.ContainerRef, eval policy.Evaluator, source PoolSource, opts Options, log Logger) *Unit {
	if opts.Stat == nil {
		opts.Stat = os.Stat
	}
	u := &Unit{ref: ref, eval: eval, opts: opts, source: source}

	p, err := source.PoolFor(ref)
	if err != nil {
		logWarn(log, fmt.Sprintf("Exception while creating reader pool for %s : %v", ref.Name, err))
		u.skipped.Store(true)
		return u
	}
	u.pool = p
	if opts.ScanFiles {
		u.lastModified = make(map[string]time.Time)
	}
	return u
}

// Scan lists the container and collects accepted members. Listing failures
// are logged and leave the unit with whatever it already held.
func (u *Unit) Scan(ctx context.Context, log Logger) {
	if u.Skipped() || !u.opts.ScanFiles {
		return
	}
	start := time.Now()
	logDebug(log, "Scanning container "+u.ref.String())

	lease, err := u.pool.Acquire(ctx)
	if err != nil {
		u.failScan(ctx, log, err)
		return
	}
	defer lease.Release()

	reader, err := lease.Get()
	if err != nil {
		u.failScan(ctx, log, err)
		return
	}

	paths, err := reader.List()
	if err != nil {
		logWarn(log, fmt.Sprintf("Could not get resource list for container %s: %v", u.ref.Name, err))
		return
	}

	var (
		prevDir     string
		prevVerdict models.Verdict
		havePrev    bool
		modTime     time.Time
		haveModTime bool
		statDone    bool
	)
	for _, p := range paths {
		if strings.HasSuffix(p, container.Separator) {
			continue
		}

		dir := policy.ParentDir(p)
		verdict := prevVerdict
		if !havePrev || dir != prevDir {
			verdict = u.eval.Classify(dir)
			prevDir, prevVerdict, havePrev = dir, verdict, true
		}

		if !verdict.Includes() &&
			(verdict != models.AtIncludedPackageWithOverride || !u.eval.IsPathSpecificallyIncluded(p)) {
			continue
		}

		logDebug(log, "Found included file: "+p)

		if u.opts.EnableClassInfo && fileutil.IsClassfile(p) {
			u.classfileMatches = append(u.classfileMatches, newResource(u, p))
		}
		u.fileMatches = append(u.fileMatches, newResource(u, p))

		if !statDone {
			modTime, haveModTime = u.backingModTime()
			statDone = true
		}
		if haveModTime {
			u.lastModified[u.ref.File] = modTime
		}
	}

	logDebug(log, fmt.Sprintf("Scanned %s in %s", u.ref.Name, time.Since(start).Round(time.Millisecond)))
}

// failScan handles a reader that could not be leased for a scan. A cancelled
// scan or a pool closed underneath the unit leaves it usable; anything else
// means the container is unusable.
func (u *Unit) failScan(ctx context.Context, log Logger, err error) {
	if ctx.Err() != nil {
		logWarn(log, fmt.Sprintf("Scan of %s cancelled: %v", u.ref.Name, ctx.Err()))
		return
	}
	if errors.Is(err, pool.ErrPoolClosed) {
		logWarn(log, fmt.Sprintf("Reader pool for %s was closed before the scan", u.ref.Name))
		return
	}
	logWarn(log, fmt.Sprintf("Exception opening container %s: %v", u.ref, err))
	u.skipped.Store(true)
}

// backingModTime stats the backing file. System containers and containers
// without a backing file are never tracked.
func (u *Unit) backingModTime() (time.Time, bool) {
	if u.ref.System || u.ref.File == "" {
		return time.Time{}, false
	}
	info, err := u.opts.Stat(u.ref.File)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// Ref returns the container reference
func (u *Unit) Ref() models.ContainerRef {
	return u.ref
}

// Skipped reports whether the container could not be opened
func (u *Unit) Skipped() bool {
	return u.skipped.Load()
}

// FileMatches returns every accepted member in listing order
func (u *Unit) FileMatches() []*Resource {
	return append([]*Resource(nil), u.fileMatches...)
}

// ClassfileMatches returns the accepted members that look like classfiles
func (u *Unit) ClassfileMatches() []*Resource {
	return append([]*Resource(nil), u.classfileMatches...)
}

// LastModified returns a copy of the modification index, keyed by backing
// file path.
func (u *Unit) LastModified() map[string]time.Time {
	out := make(map[string]time.Time, len(u.lastModified))
	for k, v := range u.lastModified {
		out[k] = v
	}
	return out
}

// Close gives the container's reader pool back to its source, which tears
// it down once no other unit holds it. Resources still holding a lease keep
// working until they are closed; their reader is closed then.
func (u *Unit) Close() error {
	var err error
	u.closeOnce.Do(func() {
		if u.pool != nil {
			err = u.source.Release(u.ref, u.pool)
		}
	})
	return err
}

func logDebug(log Logger, msg string) {
	if log != nil {
		log.LogDebug(msg)
	}
}

func logWarn(log Logger, msg string) {
	if log != nil {
		log.LogWarn(msg)
	}
}
