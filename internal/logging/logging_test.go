package logging

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// captureLogOutput reinitializes the logger to write to a buffer and
// restores the default afterwards.
func captureLogOutput(level Level, format Format, f func()) string {
	var buf bytes.Buffer
	InitLogger(&buf, level, format)
	defer InitLogger(os.Stderr, LevelInfo, FormatText)
	f()
	return buf.String()
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		format    Format
		logFunc   func()
		wantEmpty bool
		contains  string
	}{
		{
			name:     "json info",
			level:    LevelInfo,
			format:   FormatJSON,
			logFunc:  func() { GetLogger().Info("hello", "k", "v") },
			contains: `"msg":"hello"`,
		},
		{
			name:     "text info",
			level:    LevelInfo,
			format:   FormatText,
			logFunc:  func() { GetLogger().Info("hello", "k", "v") },
			contains: "msg=hello k=v",
		},
		{
			name:      "debug filtered at info",
			level:     LevelInfo,
			format:    FormatText,
			logFunc:   func() { GetLogger().Debug("hidden") },
			wantEmpty: true,
		},
		{
			name:     "debug shown at debug",
			level:    LevelDebug,
			format:   FormatText,
			logFunc:  func() { GetLogger().Debug("shown") },
			contains: "msg=shown",
		},
		{
			name:      "warn filtered at error",
			level:     LevelError,
			format:    FormatJSON,
			logFunc:   func() { GetLogger().Warn("hidden") },
			wantEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(tt.level, tt.format, tt.logFunc)
			if tt.wantEmpty {
				if output != "" {
					t.Errorf("Expected no output, got %q", output)
				}
				return
			}
			if !strings.Contains(output, tt.contains) {
				t.Errorf("Expected output to contain %q, got %q", tt.contains, output)
			}
		})
	}
}

func TestTimestampFormat(t *testing.T) {
	output := captureLogOutput(LevelInfo, FormatJSON, func() {
		GetLogger().Info("tick")
	})

	var entry map[string]any
	if err := json.Unmarshal([]byte(output), &entry); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	ts, ok := entry["time"].(string)
	if !ok {
		t.Fatalf("Expected a time field, got %v", entry)
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("Expected RFC3339 timestamp, got %q", ts)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.input, got, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(JSON) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Errorf("Expected an error for xml")
	}
}

func TestRunID(t *testing.T) {
	ctx := context.Background()
	if GetRunID(ctx) != "" {
		t.Errorf("Expected empty run ID")
	}

	id := NewRunID()
	if len(id) != 36 || id == NewRunID() {
		t.Errorf("Expected unique UUIDs, got %q", id)
	}

	ctx = WithRunID(ctx, id)
	if GetRunID(ctx) != id {
		t.Errorf("Expected run ID %q, got %q", id, GetRunID(ctx))
	}

	output := captureLogOutput(LevelInfo, FormatText, func() {
		LoggerFromContext(ctx).Info("with run")
	})
	if !strings.Contains(output, "run_id="+id) {
		t.Errorf("Expected run_id in output, got %q", output)
	}
}

func TestDiagnostics(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	counts := map[string]int{"b": 2, "a": 1}

	output := captureLogOutput(LevelInfo, FormatJSON, func() {
		Diagnostics(ctx, []string{"a", "b"}, counts)
	})

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d: %q", len(lines), output)
	}
	for i, want := range []string{`"message":"a","count":1`, `"message":"b","count":2`} {
		if !strings.Contains(lines[i], want) || !strings.Contains(lines[i], `"level":"WARN"`) {
			t.Errorf("Line %d = %s, want %s", i, lines[i], want)
		}
	}
}

func TestWalkCompleted(t *testing.T) {
	output := captureLogOutput(LevelInfo, FormatText, func() {
		WalkCompleted(context.Background(), 3, map[string]int{"quotes": 3, "quote_comments": 4}, 1, 1500*time.Millisecond)
	})

	for _, want := range []string{"msg=walk_completed", "documents=3", "tables=2", "rows=7", "diagnostics=1", "duration_ms=1500"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in %q", want, output)
		}
	}
}
