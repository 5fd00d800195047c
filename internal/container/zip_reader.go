package container

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

// ZipReader reads members of a zip or jar archive using its central directory
type ZipReader struct {
	zipReader *zip.Reader
	closer    io.Closer
	entries   map[string]*zip.File
	closed    atomic.Bool
}

// NewZipReader creates a reader over an archive available through readerAt.
// closer, if non-nil, is closed together with the reader.
func NewZipReader(readerAt io.ReaderAt, size int64, closer io.Closer) (*ZipReader, error) {
	zr, err := zip.NewReader(readerAt, size)
	if err != nil {
		return nil, fmt.Errorf("unable to create zip reader: %w", err)
	}
	return newZipReader(zr, closer), nil
}

func newZipReader(zr *zip.Reader, closer io.Closer) *ZipReader {
	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}
	return &ZipReader{
		zipReader: zr,
		closer:    closer,
		entries:   entries,
	}
}

// List returns entry names in central directory order
func (z *ZipReader) List() ([]string, error) {
	if z.closed.Load() {
		return nil, ErrClosed
	}
	names := make([]string, 0, len(z.zipReader.File))
	for _, f := range z.zipReader.File {
		name := f.Name
		if f.FileInfo().IsDir() && !strings.HasSuffix(name, Separator) {
			name += Separator
		}
		names = append(names, name)
	}
	return names, nil
}

// Open returns a decompressing stream over the member
func (z *ZipReader) Open(member string) (io.ReadCloser, error) {
	if z.closed.Load() {
		return nil, ErrClosed
	}
	f, ok := z.entries[member]
	if !ok {
		return nil, fmt.Errorf("%s: %w", member, ErrNotExist)
	}
	if f.FileInfo().IsDir() {
		return nil, fmt.Errorf("%s: %w", member, ErrIsDir)
	}
	return f.Open()
}

// Read returns the member's decompressed content
func (z *ZipReader) Read(member string) ([]byte, error) {
	rc, err := z.Open(member)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, 0, sizeHint(z.entries[member].UncompressedSize64))
	buf, err = readAllInto(buf, rc)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", member, err)
	}
	return buf, nil
}

// Release is a no-op; decompressed buffers are owned by the caller
func (z *ZipReader) Release([]byte) {}

// Close releases the underlying archive file
func (z *ZipReader) Close() error {
	if z.closed.Swap(true) {
		return nil
	}
	if z.closer != nil {
		return z.closer.Close()
	}
	return nil
}

// maxSizeHint caps preallocation so a forged header cannot force a huge allocation
const maxSizeHint = 64 << 20

func sizeHint(size uint64) int {
	if size > maxSizeHint {
		return maxSizeHint
	}
	return int(size)
}

// readAllInto appends everything from r into buf, growing it as needed
func readAllInto(buf []byte, r io.Reader) ([]byte, error) {
	for {
		if len(buf) == cap(buf) {
			buf = append(buf, 0)[:len(buf)]
		}
		n, err := r.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return buf, err
		}
	}
}
