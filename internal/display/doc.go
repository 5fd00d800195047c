// Package display provides terminal UI helpers for the resscan CLI.
//
// # Progress Indicators
//
// Use ProgressIndicator while resolving container arguments:
//
//	progress := display.NewProgressIndicator(os.Stderr, len(args))
//	progress.Start()
//	for _, arg := range args {
//	    progress.Step(arg)
//	}
//	progress.Complete()
//
// # Warning Messages
//
// Display warnings with optional components:
//
//	warning := display.Warning{
//	    Title:      "Containers Skipped",
//	    Message:    "2 containers could not be opened",
//	    Files:      []string{"/lib/a.jar", "/lib/b.jar"},
//	    Suggestion: "Check the run log for the underlying errors",
//	}
//	warning.Display(os.Stderr)
//
// WarnSkippedContainers builds that warning from a scan report.
//
// # Container Discovery
//
// FindContainers lists the archives under a directory so that a single
// directory argument can expand into one container per archive:
//
//	archives, err := display.FindContainers(afero.NewOsFs(), dir, true)
//
// All output goes through io.Writer for testability. Colors are plain ANSI
// escape codes: cyan for progress, green for success and yellow for warnings.
package display
