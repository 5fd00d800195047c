package logger

import (
	"fmt"

	"github.com/fatih/color"
)

// colorScheme defines consistent colors for different metric types.
// Green: accepted resources
// Yellow: skipped containers
// Cyan: labels and identifiers
type colorScheme struct {
	success *color.Color
	warn    *color.Color
	label   *color.Color
}

func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
	}
}

// colorLevel colors a level tag for console output.
func colorLevel(level string) string {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// formatColorizedCounts formats the per-container counts.
// Format: "<n> resources, <m> classfiles"; a container with no accepted
// members is shown in yellow.
func formatColorizedCounts(resources, classfiles int, scheme *colorScheme) string {
	if resources == 0 {
		return scheme.warn.Sprint("0 resources")
	}
	res := scheme.success.Sprintf("%d resources", resources)
	if classfiles == 0 {
		return res
	}
	return fmt.Sprintf("%s, %s", res, scheme.label.Sprintf("%d classfiles", classfiles))
}
