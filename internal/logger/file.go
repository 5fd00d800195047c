package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/resscan/internal/models"
)

// FileLogger writes scan runs to files in a log directory.
// It creates a timestamped per-run log file, one detail file per container
// under containers/, and keeps a latest.log symlink pointing at the most
// recent run.
type FileLogger struct {
	logDir        string
	runLog        *os.File
	runFile       string
	containersDir string
	logLevel      string
	mu            sync.Mutex
}

// NewFileLoggerWithDirAndLevel creates a FileLogger writing to logDir,
// normally .resscan/logs, filtering messages below logLevel.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	containersDir := filepath.Join(logDir, "containers")
	if err := os.MkdirAll(containersDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create containers directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log
	stamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", stamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:        logDir,
		runLog:        file,
		runFile:       runFile,
		containersDir: containersDir,
		logLevel:      normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== resscan Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// RunFile returns the path of the current run log
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogContainerResult appends a one-line entry to the run log at INFO level
// and writes the accepted members to containers/<name>.log.
func (fl *FileLogger) LogContainerResult(done, total int, result models.ContainerResult) {
	if fl.shouldLog("info") {
		status := fmt.Sprintf("%d resources, %d classfiles", len(result.Resources), result.Classfiles)
		if result.Skipped {
			status = "SKIPPED"
		}
		fl.writeRunLog(fmt.Sprintf("[%s] [%d/%d] %s: %s (%.1fs)\n",
			timestamp(), done, total, result.Container, status, result.Duration.Seconds()))
	}

	if err := fl.writeContainerLog(result); err != nil {
		fl.LogWarn(err.Error())
	}
}

func (fl *FileLogger) writeContainerLog(result models.ContainerResult) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	path := filepath.Join(fl.containersDir, containerLogName(result.Container.Name))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create container log file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Container %s ===\n", result.Container.Name)
	if result.Container.Location != "" {
		fmt.Fprintf(&sb, "Location: %s\n", result.Container.Location)
	}
	if result.Container.File != "" {
		fmt.Fprintf(&sb, "File: %s\n", result.Container.File)
	}
	fmt.Fprintf(&sb, "Skipped: %t\n", result.Skipped)
	fmt.Fprintf(&sb, "Duration: %.1fs\n", result.Duration.Seconds())
	if !result.LastModified.IsZero() {
		fmt.Fprintf(&sb, "Last modified: %s\n", result.LastModified.Format(time.RFC3339))
	}
	if len(result.Resources) > 0 {
		sb.WriteString("\n=== Resources ===\n")
		for _, r := range result.Resources {
			marker := " "
			if r.Classfile {
				marker = "C"
			}
			fmt.Fprintf(&sb, "%s %s\n", marker, r.Path)
		}
	}

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write container log: %w", err)
	}
	return nil
}

// containerLogName maps a display name onto a safe file name.
func containerLogName(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if safe == "" || safe == "." || safe == ".." {
		safe = "container"
	}
	return safe + ".log"
}

// LogProgress is a no-op; progress bars are console-only.
func (fl *FileLogger) LogProgress(done, total int) {}

// LogSummary logs the run summary at INFO level.
func (fl *FileLogger) LogSummary(report *models.ScanReport) {
	if report == nil || !fl.shouldLog("info") {
		return
	}

	ts := timestamp()
	skipped := report.SkippedContainers()
	status := "SUCCESS"
	if len(skipped) > 0 {
		if len(skipped) == len(report.Containers) {
			status = "FAILED"
		} else {
			status = "PARTIAL"
		}
	}

	message := fmt.Sprintf(
		"\n[%s] === SCAN SUMMARY ===\n"+
			"[%s] Run:          %s\n"+
			"[%s] Containers:   %d\n"+
			"[%s] Resources:    %d\n"+
			"[%s] Skipped:      %d\n"+
			"[%s] Total time:   %.1fs\n"+
			"[%s] Status:       %s\n"+
			"[%s] Completed at: %s\n",
		ts,
		ts, report.RunID,
		ts, len(report.Containers),
		ts, report.TotalResources(),
		ts, len(skipped),
		ts, report.Duration.Seconds(),
		ts, status,
		ts, time.Now().Format(time.RFC3339),
	)
	fl.writeRunLog(message)
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
