// Package container provides readers over containers of resources: directory trees,
// zip/jar archives, tar archives and object-store prefixes.
//
// Every reader exposes the same flat view: a listing of slash-separated member paths
// plus per-member open and read operations. Readers are expensive to create (archive
// central directories are parsed, tar archives are indexed), so callers are expected
// to recycle them through a pool rather than opening one per member.
package container

import (
	"errors"
	"io"
)

// Separator separates path segments in member paths
const Separator = "/"

// Sentinel errors for container operations.
var (
	// ErrNotExist indicates the member is not present in the container.
	ErrNotExist = errors.New("member does not exist")
	// ErrIsDir indicates a directory member was opened as a file.
	ErrIsDir = errors.New("member is a directory")
	// ErrUnsupported indicates the container format could not be recognized.
	ErrUnsupported = errors.New("unsupported container type")
	// ErrClosed indicates the reader was used after Close.
	ErrClosed = errors.New("reader is closed")
	// ErrTooLarge indicates a compressed container inflates past the allowed size.
	ErrTooLarge = errors.New("container too large")
)

// Reader gives access to the members of one container.
// A Reader is used by one goroutine at a time; streams returned by Open may
// be read concurrently with other members.
type Reader interface {
	// List returns member paths in reader-defined order. Directory members,
	// when present, end in Separator.
	List() ([]string, error)

	// Open returns a stream over the content of a member
	Open(path string) (io.ReadCloser, error)

	// Read returns the full content of a member
	Read(path string) ([]byte, error)

	// Release hands a buffer obtained from Read back to the reader.
	// It is best-effort and never fails.
	Release(buf []byte)

	// Close releases resources associated with the reader
	Close() error
}
