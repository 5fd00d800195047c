// Package report renders scan reports as text, YAML, JSON, Markdown or HTML
// and writes them to disk under a file lock.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/harrison/resscan/internal/filelock"
	"github.com/harrison/resscan/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// Format selects an output encoding
type Format string

// Supported formats
const (
	FormatText     Format = "text"
	FormatYAML     Format = "yaml"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat validates a user supplied format name. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatYAML, FormatJSON, FormatMarkdown, FormatHTML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown report format %q (valid: text, yaml, json, markdown, html)", s)
	}
}

// Write renders report to w in the given format.
func Write(w io.Writer, report *models.ScanReport, format Format) error {
	switch format {
	case FormatText, "":
		return writeText(w, report)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(report))
		return err
	case FormatHTML:
		html, err := HTML(report)
		if err != nil {
			return err
		}
		_, err = w.Write(html)
		return err
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteFile renders report and atomically replaces path with it, holding
// path's lock while writing.
func WriteFile(ctx context.Context, path string, report *models.ScanReport, format Format) error {
	var buf bytes.Buffer
	if err := Write(&buf, report, format); err != nil {
		return err
	}
	if err := filelock.LockAndWrite(ctx, path, buf.Bytes()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func writeText(w io.Writer, report *models.ScanReport) error {
	fmt.Fprintf(w, "Run %s: %d containers, %d resources, %d skipped (%s)\n",
		report.RunID, len(report.Containers), report.TotalResources(),
		len(report.SkippedContainers()), formatDuration(report.Duration))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range report.Containers {
		if c.Skipped {
			fmt.Fprintf(tw, "\n[%s]\tSKIPPED\n", c.Container.Name)
			continue
		}
		fmt.Fprintf(tw, "\n[%s]\t%d resources, %d classfiles\n", c.Container.Name, len(c.Resources), c.Classfiles)
		for _, r := range c.Resources {
			fmt.Fprintf(tw, "  %s\t%s\n", r.Path, r.Locator)
		}
	}
	return tw.Flush()
}

// Markdown renders a summary table followed by one section per container.
func Markdown(report *models.ScanReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Scan %s\n\n", report.RunID)
	fmt.Fprintf(&sb, "Started %s, took %s.\n\n", report.StartedAt.Format(time.RFC3339), formatDuration(report.Duration))

	sb.WriteString("| Container | Status | Resources | Classfiles |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, c := range report.Containers {
		status := "scanned"
		if c.Skipped {
			status = "skipped"
		}
		fmt.Fprintf(&sb, "| %s | %s | %d | %d |\n", escapeCell(c.Container.Name), status, len(c.Resources), c.Classfiles)
	}

	for _, c := range report.Containers {
		if len(c.Resources) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n## %s\n\n", c.Container.Name)
		for _, r := range c.Resources {
			fmt.Fprintf(&sb, "- `%s`\n", r.Path)
		}
	}
	return sb.String()
}

// HTML converts the Markdown summary to HTML
func HTML(report *models.ScanReport) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(report)), &buf); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
