package display

import (
	"fmt"
	"io"
)

// ProgressIndicator shows container resolution step by step
type ProgressIndicator struct {
	writer     io.Writer
	totalItems int
	current    int
}

// NewProgressIndicator creates a new progress indicator
func NewProgressIndicator(w io.Writer, total int) *ProgressIndicator {
	return &ProgressIndicator{
		writer:     w,
		totalItems: total,
	}
}

// Start displays the header message
func (p *ProgressIndicator) Start() {
	fmt.Fprintf(p.writer, "Resolving containers:\n")
}

// Step displays progress for the current argument: [N/Total] name (cyan)
func (p *ProgressIndicator) Step(name string) {
	p.current++
	fmt.Fprintf(p.writer, "\x1b[36m  [%d/%d] %s\x1b[0m\n", p.current, p.totalItems, name)
}

// Complete displays the number of containers that will be scanned
func (p *ProgressIndicator) Complete(containers int) {
	noun := "containers"
	if containers == 1 {
		noun = "container"
	}
	fmt.Fprintf(p.writer, "\x1b[32m✓\x1b[0m Resolved %d %s\n", containers, noun)
}

// DisplaySingleContainer shows a simple message for a one-container run
func DisplaySingleContainer(w io.Writer, name string) {
	fmt.Fprintf(w, "Scanning %s...\n", name)
}
