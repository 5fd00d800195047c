package logger

import "github.com/harrison/resscan/internal/models"

// RunLogger is implemented by every logger in this package
type RunLogger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogContainerResult(done, total int, result models.ContainerResult)
	LogProgress(done, total int)
	LogSummary(report *models.ScanReport)
}

// Multi fans every call out to each logger in order. Nil entries are skipped.
type Multi []RunLogger

// NewMulti builds a Multi from the non-nil loggers.
func NewMulti(loggers ...RunLogger) Multi {
	m := make(Multi, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			m = append(m, l)
		}
	}
	return m
}

func (m Multi) LogTrace(message string) {
	for _, l := range m {
		l.LogTrace(message)
	}
}

func (m Multi) LogDebug(message string) {
	for _, l := range m {
		l.LogDebug(message)
	}
}

func (m Multi) LogInfo(message string) {
	for _, l := range m {
		l.LogInfo(message)
	}
}

func (m Multi) LogWarn(message string) {
	for _, l := range m {
		l.LogWarn(message)
	}
}

func (m Multi) LogError(message string) {
	for _, l := range m {
		l.LogError(message)
	}
}

func (m Multi) LogContainerResult(done, total int, result models.ContainerResult) {
	for _, l := range m {
		l.LogContainerResult(done, total, result)
	}
}

func (m Multi) LogProgress(done, total int) {
	for _, l := range m {
		l.LogProgress(done, total)
	}
}

func (m Multi) LogSummary(report *models.ScanReport) {
	for _, l := range m {
		l.LogSummary(report)
	}
}

var (
	_ RunLogger = (*ConsoleLogger)(nil)
	_ RunLogger = (*FileLogger)(nil)
	_ RunLogger = (*NoOpLogger)(nil)
	_ RunLogger = Multi(nil)
)
