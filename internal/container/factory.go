package container

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/harrison/resscan/internal/models"
	"github.com/spf13/afero"
)

// Options carries what the concrete readers need beyond the container reference
type Options struct {
	// Fs is the filesystem holding directory and archive containers (default: OS)
	Fs afero.Fs
	// ExcludeDirs lists directory names left out of directory container listings
	ExcludeDirs []string
	// S3 configures object store containers
	S3 S3Config
}

// Open creates a reader for ref, choosing the implementation from ref.Kind or,
// for KindAuto, from the backing file's type and magic bytes.
func Open(ref models.ContainerRef, opts Options) (Reader, error) {
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	kind := ref.Kind
	if kind == models.KindAuto && strings.HasPrefix(ref.Location, "s3://") {
		kind = models.KindS3
	}

	switch kind {
	case models.KindS3:
		return NewS3Reader(opts.S3, ref.Location)
	case models.KindDir:
		return NewDirReader(fsys, ref.File, opts.ExcludeDirs)
	case models.KindZip, models.KindTar, models.KindAuto:
	default:
		return nil, fmt.Errorf("%s: %w", kind, ErrUnsupported)
	}

	if ref.File == "" {
		return nil, fmt.Errorf("container %s has no backing file", ref.Name)
	}
	info, err := fsys.Stat(ref.File)
	if err != nil {
		return nil, fmt.Errorf("unable to open container: %w", err)
	}
	if info.IsDir() {
		if kind != models.KindAuto {
			return nil, fmt.Errorf("%s is a directory, not a %s archive", ref.File, kind)
		}
		return NewDirReader(fsys, ref.File, opts.ExcludeDirs)
	}

	f, err := fsys.Open(ref.File)
	if err != nil {
		return nil, fmt.Errorf("unable to open archive file: %w", err)
	}

	if kind == models.KindAuto {
		kind, err = detectKind(f)
		if err != nil {
			f.Close()
			return nil, err
		}
	}

	var r Reader
	switch kind {
	case models.KindZip:
		r, err = NewZipReader(f, info.Size(), f)
	default:
		r, err = NewTarReader(f, f)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// detectKind reads the leading bytes of an archive and rewinds it
func detectKind(f io.ReadSeeker) (models.ContainerKind, error) {
	magic := make([]byte, 512)
	n, err := io.ReadFull(f, magic)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return models.KindAuto, fmt.Errorf("unable to read magic bytes: %w", err)
	}
	magic = magic[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return models.KindAuto, fmt.Errorf("unable to seek to start: %w", err)
	}

	switch {
	case isZip(magic):
		return models.KindZip, nil
	case isGzip(magic), isTar(magic):
		return models.KindTar, nil
	default:
		return models.KindAuto, ErrUnsupported
	}
}

// isZip checks for the local file header, central directory or
// end-of-central-directory signatures.
func isZip(magic []byte) bool {
	return bytes.HasPrefix(magic, []byte{0x50, 0x4b, 0x03, 0x04}) ||
		bytes.HasPrefix(magic, []byte{0x50, 0x4b, 0x01, 0x02}) ||
		bytes.HasPrefix(magic, []byte{0x50, 0x4b, 0x05, 0x06})
}

func isGzip(magic []byte) bool {
	return bytes.HasPrefix(magic, []byte{0x1f, 0x8b})
}

// isTar checks for "ustar" at offset 257
func isTar(magic []byte) bool {
	return len(magic) >= 262 && bytes.Equal(magic[257:262], []byte("ustar"))
}
