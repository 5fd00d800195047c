package logger

import (
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
)

// TestProgressBarRender verifies correct ASCII bar rendering
func TestProgressBarRender(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		width    int
		expected string
	}{
		{"empty progress", 0, 10, 10, "[          ] 0/10 (0%)"},
		{"half progress", 5, 10, 10, "[=====     ] 5/10 (50%)"},
		{"full progress", 10, 10, 10, "[==========] 10/10 (100%)"},
		{"quarter progress", 2, 8, 8, "[==      ] 2/8 (25%)"},
		{"large width", 30, 100, 20, "[======              ] 30/100 (30%)"},
		{"overflow clamps", 12, 10, 10, "[==========] 12/10 (100%)"},
		{"zero total", 0, 0, 4, "[    ] 0/0 (0%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, tt.width, false)
			pb.Update(tt.current)
			if got := pb.Render(); got != tt.expected {
				t.Errorf("Render() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// TestProgressBarDefaultWidth tests that a non-positive width falls back to 10
func TestProgressBarDefaultWidth(t *testing.T) {
	pb := NewProgressBar(4, 0, false)
	pb.Update(2)
	result := pb.Render()
	start := strings.Index(result, "[")
	end := strings.Index(result, "]")
	if end-start-1 != 10 {
		t.Errorf("bar width = %d, want 10 in %q", end-start-1, result)
	}
}

// TestProgressBarColors tests color rendering
func TestProgressBarColors(t *testing.T) {
	saved := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = saved }()

	pb := NewProgressBar(10, 10, true)
	pb.Update(5)
	if got := pb.Render(); !strings.Contains(got, "\x1b[36m") {
		t.Errorf("in-progress bar should be cyan, got %q", got)
	}
	pb.Update(10)
	if got := pb.Render(); !strings.Contains(got, "\x1b[32m") {
		t.Errorf("complete bar should be green, got %q", got)
	}

	plain := NewProgressBar(10, 10, false)
	plain.Update(5)
	if got := plain.Render(); strings.Contains(got, "\x1b[") {
		t.Errorf("Render() without color should not contain ANSI codes, got %q", got)
	}
}

// TestProgressBarPrefix tests SetPrefix
func TestProgressBarPrefix(t *testing.T) {
	pb := NewProgressBar(2, 2, false)
	pb.SetPrefix("jars ")
	pb.Update(1)
	if got := pb.Render(); got != "jars [= ] 1/2 (50%)" {
		t.Errorf("Render() = %q", got)
	}
}

// TestProgressBarConcurrentUpdate tests thread safety
func TestProgressBarConcurrentUpdate(t *testing.T) {
	pb := NewProgressBar(100, 10, false)
	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			pb.Update(n)
			_ = pb.Render()
		}(i)
	}
	wg.Wait()
	pb.Update(100)
	if got := pb.Render(); got != "[==========] 100/100 (100%)" {
		t.Errorf("Render() = %q", got)
	}
}
