package container

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/harrison/resscan/internal/fileutil"
	"github.com/spf13/afero"
)

// DirReader reads members of a directory tree through an afero.Fs
type DirReader struct {
	fs          afero.Fs
	root        string
	excludeDirs []string
	closed      atomic.Bool
}

// NewDirReader creates a reader over the tree rooted at root.
// Directories named in excludeDirs are left out of the listing.
func NewDirReader(fsys afero.Fs, root string, excludeDirs []string) (*DirReader, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("unable to open directory container: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("unable to open directory container: %s is not a directory", root)
	}
	return &DirReader{
		fs:          fsys,
		root:        root,
		excludeDirs: excludeDirs,
	}, nil
}

// List returns the members of the tree with directory markers, in walk order
func (d *DirReader) List() ([]string, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	result, err := fileutil.ScanTree(d.fs, d.root, fileutil.ScanOptions{
		Recursive:   true,
		MarkDirs:    true,
		ExcludeDirs: d.excludeDirs,
	})
	if err != nil {
		return nil, err
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("listing %s: %w", d.root, result.Errors[0])
	}
	return result.Files, nil
}

// Open returns the member's file handle
func (d *DirReader) Open(member string) (io.ReadCloser, error) {
	full, err := d.resolve(member)
	if err != nil {
		return nil, err
	}
	f, err := d.fs.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", member, ErrNotExist)
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", member, ErrIsDir)
	}
	return f, nil
}

// Read returns the member's full content
func (d *DirReader) Read(member string) ([]byte, error) {
	rc, err := d.Open(member)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Release is a no-op; buffers are not recycled for directory members
func (d *DirReader) Release([]byte) {}

// Close marks the reader closed
func (d *DirReader) Close() error {
	d.closed.Store(true)
	return nil
}

// resolve maps a member path onto the filesystem. Cleaning against "/"
// keeps ".." segments from climbing above the root.
func (d *DirReader) resolve(member string) (string, error) {
	if d.closed.Load() {
		return "", ErrClosed
	}
	clean := strings.TrimPrefix(path.Clean("/"+member), "/")
	return filepath.Join(d.root, filepath.FromSlash(clean)), nil
}
