package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/harrison/resscan/internal/models"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related containers or files (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning in yellow
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("\x1b[33m")
	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		b.WriteString("    ")
		if len(w.Files) == 1 {
			b.WriteString("Affected container:\n")
		} else {
			b.WriteString("Affected containers:\n")
		}
		for i, file := range w.Files {
			fmt.Fprintf(&b, "      %d. %s\n", i+1, file)
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	b.WriteString("\x1b[0m")

	fmt.Fprint(out, b.String())
}

// WarnSkippedContainers builds a warning listing the containers a run had to
// skip. ok is false when nothing was skipped.
func WarnSkippedContainers(report *models.ScanReport, logFile string) (Warning, bool) {
	if report == nil {
		return Warning{}, false
	}
	skipped := report.SkippedContainers()
	if len(skipped) == 0 {
		return Warning{}, false
	}

	files := make([]string, len(skipped))
	for i, ref := range skipped {
		files[i] = ref.String()
	}

	noun := "containers"
	if len(skipped) == 1 {
		noun = "container"
	}
	w := Warning{
		Title:   "Containers Skipped",
		Message: fmt.Sprintf("%d of %d %s could not be opened; their resources are missing from the report", len(skipped), len(report.Containers), noun),
		Files:   files,
	}
	if logFile != "" {
		w.Suggestion = "See " + logFile + " for the underlying errors"
	}
	return w, true
}
