// Package logger provides logging implementations for resscan runs.
//
// Loggers report level-filtered messages plus per-container results and the
// run summary. Implementations are thread-safe and write to the console, to
// per-run log files, or to several destinations at once.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/resscan/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs scan progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		// false when NO_COLOR is set or the stream is not a TTY
		return !color.NoColor
	}
	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
// Format: "[HH:MM:SS] [TRACE] <message>"
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, colorLevel(level), message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}
	cl.writer.Write([]byte(formatted))
}

// LogContainerResult logs one finished container at INFO level.
// Format: "[HH:MM:SS] [done/total] <name>: <n> resources, <m> classfiles (<duration>)"
func (cl *ConsoleLogger) LogContainerResult(done, total int, result models.ContainerResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	name := result.Container.Name
	var detail string
	if result.Skipped {
		detail = "skipped"
		if cl.colorOutput {
			detail = color.New(color.FgYellow).Sprint(detail)
		}
	} else if cl.colorOutput {
		detail = formatColorizedCounts(len(result.Resources), result.Classfiles, newColorScheme())
	} else {
		detail = fmt.Sprintf("%d resources, %d classfiles", len(result.Resources), result.Classfiles)
	}
	if cl.colorOutput {
		name = color.New(color.Bold).Sprint(name)
	}

	fmt.Fprintf(cl.writer, "[%s] [%d/%d] %s: %s (%s)\n", ts, done, total, name, detail, formatDuration(result.Duration))
}

// LogProgress logs a progress bar for the run at INFO level.
// Format: "[HH:MM:SS] Progress: [=====     ] 2/4 (50%)"
func (cl *ConsoleLogger) LogProgress(done, total int) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	pb := NewProgressBar(total, 10, cl.colorOutput)
	pb.SetPrefix("Progress: ")
	pb.Update(done)
	fmt.Fprintf(cl.writer, "[%s] %s\n", timestamp(), pb.Render())
}

// LogSummary logs the run summary at INFO level.
func (cl *ConsoleLogger) LogSummary(report *models.ScanReport) {
	if cl.writer == nil || report == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	skipped := report.SkippedContainers()

	header := "=== Scan Summary ==="
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n", ts, header)
	fmt.Fprintf(&sb, "[%s] Run: %s\n", ts, report.RunID)
	fmt.Fprintf(&sb, "[%s] Containers: %d\n", ts, len(report.Containers))
	resources := fmt.Sprintf("Resources: %d", report.TotalResources())
	if cl.colorOutput {
		resources = color.New(color.FgGreen).Sprint(resources)
	}
	fmt.Fprintf(&sb, "[%s] %s\n", ts, resources)

	skippedLine := fmt.Sprintf("Skipped: %d", len(skipped))
	if cl.colorOutput && len(skipped) > 0 {
		skippedLine = color.New(color.FgYellow).Sprint(skippedLine)
	}
	fmt.Fprintf(&sb, "[%s] %s\n", ts, skippedLine)
	fmt.Fprintf(&sb, "[%s] Duration: %s\n", ts, formatDuration(report.Duration))
	for _, ref := range skipped {
		fmt.Fprintf(&sb, "[%s]   - %s\n", ts, ref)
	}

	cl.writer.Write([]byte(sb.String()))
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "250ms", "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOpLogger discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string)                                     {}
func (n *NoOpLogger) LogDebug(string)                                     {}
func (n *NoOpLogger) LogInfo(string)                                      {}
func (n *NoOpLogger) LogWarn(string)                                      {}
func (n *NoOpLogger) LogError(string)                                     {}
func (n *NoOpLogger) LogContainerResult(int, int, models.ContainerResult) {}
func (n *NoOpLogger) LogProgress(int, int)                                {}
func (n *NoOpLogger) LogSummary(*models.ScanReport)                       {}
