package container

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
)

// maxInflatedSize bounds the in-memory copy of a gzip-compressed tar
var maxInflatedSize int64 = 1 << 30

// tarEntry is the location of a member's data within the archive
type tarEntry struct {
	offset int64
	size   int64
	isDir  bool
}

// TarReader reads members of a tar archive through an offset index built once
// at construction. Gzip-compressed archives are inflated into memory first so
// every member stays randomly accessible.
type TarReader struct {
	readerAt io.ReaderAt
	closer   io.Closer
	names    []string
	index    map[string]tarEntry
	closed   atomic.Bool
}

// NewTarReader indexes the archive read from r. r must be positioned at the
// start of the archive. closer, if non-nil, is closed together with the reader.
func NewTarReader(r io.ReadSeeker, closer io.Closer) (*TarReader, error) {
	var magic [2]byte
	n, err := io.ReadFull(r, magic[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("unable to read magic bytes: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("unable to seek to start: %w", err)
	}

	var seeker io.ReadSeeker = r
	var readerAt io.ReaderAt
	if n == 2 && isGzip(magic[:]) {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("unable to create gzip reader: %w", err)
		}
		raw, err := io.ReadAll(io.LimitReader(zr, maxInflatedSize+1))
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("unable to inflate archive: %w", err)
		}
		if int64(len(raw)) > maxInflatedSize {
			return nil, fmt.Errorf("inflated archive exceeds %d bytes: %w", maxInflatedSize, ErrTooLarge)
		}
		br := bytes.NewReader(raw)
		seeker, readerAt = br, br
		if closer != nil {
			closer.Close()
			closer = nil
		}
	} else if ra, ok := r.(io.ReaderAt); ok {
		readerAt = ra
	} else {
		return nil, fmt.Errorf("tar source must support random access: %w", ErrUnsupported)
	}

	names, index, err := buildTarIndex(seeker)
	if err != nil {
		return nil, fmt.Errorf("unable to build tar index: %w", err)
	}

	return &TarReader{
		readerAt: readerAt,
		closer:   closer,
		names:    names,
		index:    index,
	}, nil
}

// buildTarIndex scans the archive headers once, recording data offsets
func buildTarIndex(r io.ReadSeeker) ([]string, map[string]tarEntry, error) {
	index := make(map[string]tarEntry)
	var names []string
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("unable to read tar header: %w", err)
		}

		switch header.Typeflag {
		case tar.TypeDir, tar.TypeReg:
		default:
			continue
		}

		offset, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to get data offset: %w", err)
		}

		name := strings.TrimPrefix(header.Name, "./")
		isDir := header.Typeflag == tar.TypeDir
		if isDir && !strings.HasSuffix(name, Separator) {
			name += Separator
		}
		if name == "" || name == Separator {
			continue
		}

		if _, dup := index[name]; !dup {
			names = append(names, name)
		}
		index[name] = tarEntry{offset: offset, size: header.Size, isDir: isDir}
	}

	return names, index, nil
}

// List returns member names in archive order
func (t *TarReader) List() ([]string, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out, nil
}

// Open returns an independent section reader over the member's data
func (t *TarReader) Open(member string) (io.ReadCloser, error) {
	entry, err := t.lookup(member)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(io.NewSectionReader(t.readerAt, entry.offset, entry.size)), nil
}

// Read returns the member's content
func (t *TarReader) Read(member string) ([]byte, error) {
	entry, err := t.lookup(member)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, entry.size)
	if _, err := t.readerAt.ReadAt(buf, entry.offset); err != nil && err != io.EOF {
		return nil, fmt.Errorf("unable to read %s: %w", member, err)
	}
	return buf, nil
}

// Release is a no-op; buffers are owned by the caller
func (t *TarReader) Release([]byte) {}

// Close releases the underlying archive file
func (t *TarReader) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

func (t *TarReader) lookup(member string) (tarEntry, error) {
	if t.closed.Load() {
		return tarEntry{}, ErrClosed
	}
	entry, ok := t.index[member]
	if !ok {
		return tarEntry{}, fmt.Errorf("%s: %w", member, ErrNotExist)
	}
	if entry.isDir {
		return tarEntry{}, fmt.Errorf("%s: %w", member, ErrIsDir)
	}
	return entry, nil
}
