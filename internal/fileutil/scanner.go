package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// ScanOptions configures the tree listing behavior
type ScanOptions struct {
	// Pattern is a regex pattern to match filenames (without extension)
	Pattern string
	// Extensions is a list of file extensions to include (e.g., ".class", ".xml")
	Extensions []string
	// Recursive enables recursive directory scanning
	Recursive bool
	// ExcludeDirs is a list of directory names to exclude (e.g., ".git", "node_modules")
	ExcludeDirs []string
	// MaxDepth limits recursion depth (0 = unlimited, 1 = current dir only)
	MaxDepth int
	// MarkDirs emits a "dir/" entry for every directory that is descended into
	MarkDirs bool
	// SkipHidden skips directories whose name starts with "."
	SkipHidden bool
}

// ScanResult contains the results of a tree listing
type ScanResult struct {
	// Files contains member paths relative to the root, "/"-separated
	Files []string
	// Errors contains any errors encountered during scanning
	Errors []error
}

// ScanTree lists the tree under root on fsys as slash-separated member paths
func ScanTree(fsys afero.Fs, root string, opts ScanOptions) (*ScanResult, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root)
	}

	result := &ScanResult{
		Files:  make([]string, 0),
		Errors: make([]error, 0),
	}

	var patternRegex *regexp.Regexp
	if opts.Pattern != "" {
		patternRegex, err = regexp.Compile(opts.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
	}

	extMap := make(map[string]bool)
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[strings.ToLower(ext)] = true
	}

	excludeMap := make(map[string]bool)
	for _, dir := range opts.ExcludeDirs {
		excludeMap[dir] = true
	}

	err = afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to relativize %s: %w", path, relErr))
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			name := info.Name()
			if excludeMap[name] || (opts.SkipHidden && strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			if !opts.Recursive {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 {
				depth := strings.Count(rel, "/") + 1
				if depth >= opts.MaxDepth {
					return filepath.SkipDir
				}
			}
			if opts.MarkDirs {
				result.Files = append(result.Files, rel+"/")
			}
			return nil
		}

		filename := info.Name()

		if len(extMap) > 0 {
			ext := strings.ToLower(filepath.Ext(filename))
			if !extMap[ext] {
				return nil
			}
		}

		if patternRegex != nil {
			nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))
			if !patternRegex.MatchString(nameWithoutExt) {
				return nil
			}
		}

		result.Files = append(result.Files, rel)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return result, nil
}

const classfileSuffix = ".class"

// IsClassfile reports whether a member path follows the classfile naming
// convention: a non-empty name ending in ".class", compared case-insensitively.
func IsClassfile(path string) bool {
	n := len(path)
	return n > len(classfileSuffix) && strings.EqualFold(path[n-len(classfileSuffix):], classfileSuffix)
}
