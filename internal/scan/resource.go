package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/harrison/resscan/internal/container"
	"github.com/harrison/resscan/internal/models"
	"github.com/harrison/resscan/internal/pool"
)

// Resource is a lazily opened view of one accepted member.
//
// At most one content view is open at a time: a buffer from OpenBuffer or a
// stream from OpenStream. Each open leases a reader from the unit's pool and
// Close returns it. Close is idempotent and leaves the resource ready to be
// opened again.
type Resource struct {
	unit *Unit
	path string

	mu     sync.Mutex
	lease  *pool.Lease[container.Reader]
	reader container.Reader
	buf    []byte
	stream io.ReadCloser
	length int64
}

var errMissingScheme = errors.New("missing scheme")

func newResource(u *Unit, path string) *Resource {
	return &Resource{unit: u, path: path, length: -1}
}

// Path returns the member path
func (r *Resource) Path() string {
	return r.path
}

// PathRelativeToContainer returns the member path inside its container.
// For container members this is the same as Path.
func (r *Resource) PathRelativeToContainer() string {
	return r.path
}

// Container returns the reference of the owning container
func (r *Resource) Container() models.ContainerRef {
	return r.unit.ref
}

// Locator builds a URL for the resource: the container location (or
// "jrt:/<name>" when the location is unknown), "!", then the member path
// percent-encoded segment by segment.
func (r *Resource) Locator() (*url.URL, error) {
	ref := r.unit.ref
	base := ref.Location
	if base == "" {
		base = "jrt:/" + ref.Name
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" {
		if err == nil {
			err = errMissingScheme
		}
		return nil, fmt.Errorf("could not form locator for container location %q; path %q: %w", ref.Location, r.path, err)
	}
	loc, err := url.Parse(u.String() + "!" + encodePath(r.path))
	if err != nil {
		return nil, fmt.Errorf("could not form locator for container location %q; path %q: %w", ref.Location, r.path, err)
	}
	return loc, nil
}

// OpenBuffer reads the whole member into memory. The returned slice belongs
// to the reader and is valid until Close.
func (r *Resource) OpenBuffer(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reader, err := r.beginOpen(ctx, "OpenBuffer")
	if err != nil {
		return nil, err
	}
	buf, err := reader.Read(r.path)
	if err != nil {
		return nil, r.failOpen(err)
	}
	r.buf = buf
	r.length = int64(len(buf))
	return buf, nil
}

// OpenStream opens the member for incremental reading. The stream is closed
// by Close; callers must not close it themselves.
func (r *Resource) OpenStream(ctx context.Context) (io.Reader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reader, err := r.beginOpen(ctx, "OpenStream")
	if err != nil {
		return nil, err
	}
	rc, err := reader.Open(r.path)
	if err != nil {
		return nil, r.failOpen(err)
	}
	r.stream = rc
	return rc, nil
}

// LoadAll returns a private copy of the member's bytes. The resource is
// closed before LoadAll returns, whether or not the copy succeeded.
func (r *Resource) LoadAll(ctx context.Context) ([]byte, error) {
	buf, err := r.OpenBuffer(ctx)
	if err != nil {
		// A misuse leaves the caller's open view untouched.
		return nil, err
	}
	defer r.Close()

	out := make([]byte, len(buf))
	copy(out, buf)

	r.mu.Lock()
	r.length = int64(len(out))
	r.mu.Unlock()
	return out, nil
}

// Length returns the content length, or -1 until the member has been read
// into a buffer at least once.
func (r *Resource) Length() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.length
}

// Close releases whatever the resource holds, in order: the stream, the
// buffer, the reader reference and the lease. Errors from closing the stream
// are ignored. It is safe to call at any time.
func (r *Resource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
	return nil
}

func (r *Resource) String() string {
	return "[" + r.unit.ref.Name + "]/" + r.path
}

// beginOpen checks preconditions and leases a reader. Must hold r.mu.
func (r *Resource) beginOpen(ctx context.Context, op string) (container.Reader, error) {
	if r.unit.Skipped() {
		return nil, &OpenError{Resource: r.String(), Err: ErrUnitSkipped}
	}
	if r.buf != nil || r.stream != nil || r.reader != nil || r.lease != nil {
		return nil, &MisuseError{Resource: r.String(), Op: op}
	}

	lease, err := r.unit.pool.Acquire(ctx)
	if err != nil {
		return nil, r.failOpen(err)
	}
	r.lease = lease
	reader, err := lease.Get()
	if err != nil {
		return nil, r.failOpen(err)
	}
	r.reader = reader
	return reader, nil
}

// failOpen unwinds a partial open and wraps err. Must hold r.mu.
func (r *Resource) failOpen(err error) error {
	r.closeLocked()
	return &OpenError{Resource: r.String(), Err: err}
}

func (r *Resource) closeLocked() {
	if r.stream != nil {
		_ = r.stream.Close()
		r.stream = nil
	}
	if r.buf != nil {
		if r.reader != nil {
			releaseQuietly(r.reader, r.buf)
		}
		r.buf = nil
	}
	// The reader belongs to the pool; only drop the reference.
	r.reader = nil
	if r.lease != nil {
		r.lease.Release()
		r.lease = nil
	}
}

// releaseQuietly hands a buffer back to its reader, ignoring panics
func releaseQuietly(reader container.Reader, buf []byte) {
	defer func() { _ = recover() }()
	reader.Release(buf)
}

// encodePath percent-encodes each segment of a slash separated path
func encodePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
