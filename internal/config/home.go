package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the state directory
const HomeEnv = "RESSCAN_HOME"

// FindHome returns the resscan state directory.
// Priority order:
//  1. RESSCAN_HOME environment variable (if set)
//  2. The nearest .resscan directory in start or one of its parents
//  3. start/.resscan
//
// The directory is not created.
func FindHome(start string) (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}

	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		start = cwd
	}
	start, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}

	current := start
	for {
		candidate := filepath.Join(current, ".resscan")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return filepath.Join(start, ".resscan"), nil
}

// ResolvePath makes a relative configured path (like log_dir or
// index.db_path) relative to the directory holding the state directory.
func ResolvePath(home, p string) string {
	if p == "" || filepath.IsAbs(p) || p == ":memory:" {
		return p
	}
	return filepath.Join(filepath.Dir(home), p)
}
