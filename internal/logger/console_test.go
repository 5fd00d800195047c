package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrison/resscan/internal/models"
)

func sampleResult(skipped bool) models.ContainerResult {
	r := models.ContainerResult{
		Container: models.ContainerRef{Name: "app.jar", File: "/lib/app.jar"},
		Skipped:   skipped,
		Duration:  1500 * time.Millisecond,
	}
	if !skipped {
		r.Resources = []models.ResourceEntry{
			{Path: "com/example/Foo.class", Classfile: true},
			{Path: "com/example/app.properties"},
		}
		r.Classfiles = 1
	}
	return r
}

func sampleReport() *models.ScanReport {
	gone := sampleResult(true)
	gone.Container = models.ContainerRef{Name: "gone.jar", File: "/lib/gone.jar"}
	return &models.ScanReport{
		RunID:      "run-1",
		Duration:   2 * time.Second,
		Containers: []models.ContainerResult{sampleResult(false), gone},
	}
}

// TestNewConsoleLogger verifies the constructor
func TestNewConsoleLogger(t *testing.T) {
	t.Run("with valid writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewConsoleLogger(buf, "DEBUG")
		if logger.writer != buf {
			t.Error("writer not set correctly")
		}
		if logger.logLevel != "debug" {
			t.Errorf("expected log level %q, got %q", "debug", logger.logLevel)
		}
		if logger.colorOutput {
			t.Error("buffers never get color output")
		}
	})

	t.Run("invalid level defaults to info", func(t *testing.T) {
		logger := NewConsoleLogger(nil, "verbose")
		if logger.logLevel != "info" {
			t.Errorf("expected info, got %q", logger.logLevel)
		}
		// must not panic
		logger.LogInfo("dropped")
		logger.LogSummary(sampleReport())
	})
}

// TestLevelFiltering verifies messages below the configured level are dropped
func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		expected []string
		dropped  []string
	}{
		{"trace", []string{"[TRACE] t", "[DEBUG] d", "[INFO] i", "[WARN] w", "[ERROR] e"}, nil},
		{"debug", []string{"[DEBUG] d", "[INFO] i"}, []string{"[TRACE]"}},
		{"info", []string{"[INFO] i", "[WARN] w"}, []string{"[TRACE]", "[DEBUG]"}},
		{"warn", []string{"[WARN] w", "[ERROR] e"}, []string{"[INFO]"}},
		{"error", []string{"[ERROR] e"}, []string{"[WARN]", "[INFO]"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewConsoleLogger(buf, tt.level)
			logger.LogTrace("t")
			logger.LogDebug("d")
			logger.LogInfo("i")
			logger.LogWarn("w")
			logger.LogError("e")

			out := buf.String()
			for _, want := range tt.expected {
				if !strings.Contains(out, want) {
					t.Errorf("expected %q in output:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.dropped {
				if strings.Contains(out, unwanted) {
					t.Errorf("did not expect %q in output:\n%s", unwanted, out)
				}
			}
		})
	}
}

// TestLogContainerResult verifies per-container lines
func TestLogContainerResult(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	logger.LogContainerResult(1, 2, sampleResult(false))
	logger.LogContainerResult(2, 2, sampleResult(true))

	out := buf.String()
	if !strings.Contains(out, "[1/2] app.jar: 2 resources, 1 classfiles (1s)") {
		t.Errorf("missing scanned line:\n%s", out)
	}
	if !strings.Contains(out, "[2/2] app.jar: skipped (1s)") {
		t.Errorf("missing skipped line:\n%s", out)
	}

	quiet := &bytes.Buffer{}
	NewConsoleLogger(quiet, "warn").LogContainerResult(1, 1, sampleResult(false))
	if quiet.Len() != 0 {
		t.Errorf("container results are INFO level, got %q", quiet.String())
	}
}

// TestLogProgress verifies the progress bar line
func TestLogProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	NewConsoleLogger(buf, "info").LogProgress(1, 4)
	if !strings.Contains(buf.String(), "Progress: [==        ] 1/4 (25%)") {
		t.Errorf("unexpected progress output %q", buf.String())
	}
}

// TestLogSummary verifies the summary block
func TestLogSummary(t *testing.T) {
	buf := &bytes.Buffer{}
	NewConsoleLogger(buf, "info").LogSummary(sampleReport())
	out := buf.String()

	for _, want := range []string{
		"=== Scan Summary ===",
		"Run: run-1",
		"Containers: 2",
		"Resources: 2",
		"Skipped: 1",
		"Duration: 2s",
		"  - /lib/gone.jar",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in summary:\n%s", want, out)
		}
	}
}

// TestFormatDuration verifies human readable durations
func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Minute, "2m"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{time.Hour + time.Minute + time.Second, "1h1m1s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// TestConcurrentLogging verifies lines are never interleaved
func TestConcurrentLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.LogInfo("message")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 50 {
		t.Fatalf("expected 50 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, "[INFO] message") {
			t.Errorf("malformed line %q", line)
		}
	}
}

// TestMulti verifies fan-out and nil filtering
func TestMulti(t *testing.T) {
	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	m := NewMulti(NewConsoleLogger(a, "info"), nil, NewConsoleLogger(b, "warn"), NewNoOpLogger())
	if len(m) != 3 {
		t.Fatalf("expected nil logger to be dropped, got %d", len(m))
	}

	m.LogInfo("hello")
	m.LogWarn("careful")
	m.LogContainerResult(1, 1, sampleResult(false))

	if !strings.Contains(a.String(), "hello") || !strings.Contains(a.String(), "careful") {
		t.Errorf("first logger missing output:\n%s", a.String())
	}
	if strings.Contains(b.String(), "hello") || !strings.Contains(b.String(), "careful") {
		t.Errorf("second logger should only have the warning:\n%s", b.String())
	}
}
