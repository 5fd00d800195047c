// Package fileutil provides member listing and naming utilities for directory containers.
//
// This package is the single place where a directory tree is turned into the flat,
// slash-separated member listing that every container reader produces, and where
// naming conventions on member paths are decided.
//
// # Main Components
//
// ScanOptions - Configuration struct for tree listing:
//   - Pattern: Regex pattern to match filenames (without extension)
//   - Extensions: List of file extensions to include (case-insensitive, e.g., ".class")
//   - Recursive: Enable/disable subdirectory traversal
//   - ExcludeDirs: Directory names to skip (e.g., ".git", "node_modules")
//   - MaxDepth: Limit recursion depth (0 = unlimited, 1 = current dir only)
//   - MarkDirs: Emit "dir/" entries ahead of each directory's contents
//   - SkipHidden: Skip directories whose name starts with "."
//
// ScanResult - Results of a tree listing:
//   - Files: Member paths relative to the root, using "/" separators, in walk order
//   - Errors: Non-fatal errors encountered during the walk
//
// ScanTree() walks any afero.Fs, so the same code lists a real directory
// (afero.NewOsFs) and an in-memory fixture (afero.NewMemMapFs).
//
// IsClassfile() is the naming-convention check used to route members into the
// classfile collection of a scan.
//
// # Usage Examples
//
// Listing a directory container with directory markers:
//
//	result, err := fileutil.ScanTree(afero.NewOsFs(), "/path/to/classes", fileutil.ScanOptions{
//	    Recursive:   true,
//	    MarkDirs:    true,
//	    ExcludeDirs: []string{".git"},
//	})
//	if err != nil {
//	    return err
//	}
//	for _, member := range result.Files {
//	    fmt.Println(member) // "com/", "com/example/", "com/example/Foo.class", ...
//	}
//
// # Ordering
//
// Output follows the walk order of afero.Walk: entries of one directory are visited
// in lexical order and a directory's contents directly follow its marker. Members of
// the same directory therefore arrive in one contiguous run, which is what the
// single-slot directory match cache of the scanner relies on for its hit rate.
//
// # Error Tolerance
//
// The walk collects non-fatal errors (e.g., permission denied on a subdirectory)
// and continues. Only fatal errors (root does not exist, root is not a directory,
// invalid regex pattern) fail the call.
package fileutil
