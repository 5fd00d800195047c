package display

import (
	"path"
	"sort"
	"strings"

	"github.com/harrison/resscan/internal/fileutil"
	"github.com/spf13/afero"
)

// archiveExtensions lists the suffixes recognised as container archives
var archiveExtensions = []string{".jar", ".war", ".ear", ".zip", ".tar", ".tgz", ".gz"}

// IsContainerFile reports whether filename looks like a container archive:
// .jar, .war, .ear, .zip, .tar, .tgz or .tar.gz, compared case-insensitively.
// A bare ".gz" that is not ".tar.gz" is not a container.
func IsContainerFile(filename string) bool {
	name := strings.ToLower(path.Base(filename))
	if strings.ContainsAny(name, "\n\x00") {
		return false
	}
	ext := path.Ext(name)
	if ext == "" || ext == name {
		return false
	}
	switch ext {
	case ".jar", ".war", ".ear", ".zip", ".tar", ".tgz":
		return true
	case ".gz":
		return strings.HasSuffix(name, ".tar.gz") && len(name) > len(".tar.gz")
	default:
		return false
	}
}

// FindContainers lists the archives below dir as slash-separated paths
// relative to dir, sorted. Hidden directories are skipped.
func FindContainers(fsys afero.Fs, dir string, recursive bool) ([]string, error) {
	opts := fileutil.ScanOptions{
		Extensions:  archiveExtensions,
		Recursive:   recursive,
		SkipHidden:  true,
		ExcludeDirs: []string{"node_modules"},
	}

	result, err := fileutil.ScanTree(fsys, dir, opts)
	if err != nil {
		return nil, err
	}

	archives := make([]string, 0, len(result.Files))
	for _, rel := range result.Files {
		if IsContainerFile(rel) {
			archives = append(archives, rel)
		}
	}
	sort.Strings(archives)
	return archives, nil
}
