package convlog

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 16,
	}, slog.Default())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log(Event{
		UserID:     "user-1",
		SessionID:  "sess-1",
		Channel:    ChannelHTTP,
		Direction:  DirectionInbound,
		EventType:  EventUserMessage,
		ContentRaw: "VersaPlex 16654 3 1,5,6",
	})

	path := filepath.Join(dir, "user-1", "sess-1.ndjson")
	line := waitForLogLine(t, path)
	var got Event
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if got.ContentRaw != "VersaPlex 16654 3 1,5,6" {
		t.Fatalf("unexpected ContentRaw: %q", got.ContentRaw)
	}
	if got.Content == "" {
		t.Fatal("expected cleaned content to be populated")
	}
	if got.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}
}

func TestLoggerWritesGlobalFile(t *testing.T) {
	t.Parallel()

	global := filepath.Join(t.TempDir(), "all", "global.ndjson")
	logger, err := New(Config{GlobalEnabled: true, GlobalPath: global}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Log(Event{UserID: "u", SessionID: "s", EventType: EventBotReply, ContentRaw: "Objects added successfully."})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(global)
	if err != nil {
		t.Fatalf("read global log: %v", err)
	}
	if !strings.Contains(string(data), "Objects added successfully.") {
		t.Fatalf("global log missing event: %s", data)
	}
	// Logging after Close is a no-op.
	logger.Log(Event{ContentRaw: "late"})
}

func TestLoggerSanitizesPathSegments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{Enabled: true, Dir: dir}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Log(Event{UserID: "../escape", SessionID: "a/b", ContentRaw: "x"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "_escape", "a_b.ndjson")); err != nil {
		t.Fatalf("expected sanitized log file: %v", err)
	}
}

func TestNewDisabledReturnsNoop(t *testing.T) {
	t.Parallel()

	logger, err := New(Config{}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := logger.(noopLogger); !ok {
		t.Fatalf("expected noop logger, got %T", logger)
	}
	logger.Log(Event{ContentRaw: "ignored"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewRequiresDir(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Enabled: true}, nil); err == nil {
		t.Fatal("expected error without dir")
	}
}

func TestCleanForReadabilityStripsANSI(t *testing.T) {
	t.Parallel()

	raw := "\x1b[31merror\x1b[0m plain\r"
	clean := cleanForReadability(raw)
	if strings.Contains(clean, "\x1b[31m") {
		t.Fatalf("expected ANSI sequence to be stripped: %q", clean)
	}
	if clean != "error plain" {
		t.Fatalf("expected readable text to remain: %q", clean)
	}
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) > 0 {
				return lines[len(lines)-1]
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}

func openFDs(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		return -1
	}
	return len(entries)
}

func TestLoggerBoundsOpenSessionFiles(t *testing.T) {
	const (
		maxOpen  = 8
		sessions = 200
	)
	dir := t.TempDir()
	before := openFDs(t)

	logger, err := New(Config{
		Enabled:      true,
		Dir:          dir,
		QueueSize:    sessions + 1,
		MaxOpenFiles: maxOpen,
	}, slog.Default())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := range sessions {
		logger.Log(Event{UserID: "user-1", SessionID: "tab-" + strconv.Itoa(i), ContentRaw: "msg " + strconv.Itoa(i)})
	}
	// Session 0 was evicted long ago and must be reopened in append mode.
	logger.Log(Event{UserID: "user-1", SessionID: "tab-0", ContentRaw: "again"})
	waitForLogLine(t, filepath.Join(dir, "user-1", "tab-0.ndjson"))

	if runtime.GOOS == "linux" && before >= 0 {
		if after := openFDs(t); after-before > maxOpen+2 {
			t.Fatalf("open descriptors grew from %d to %d, cap is %d", before, after, maxOpen)
		}
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if peak := logger.(*fileLogger).peakOpen; peak > maxOpen {
		t.Fatalf("peak open files %d exceeds cap %d", peak, maxOpen)
	}

	for i := range sessions {
		data, err := os.ReadFile(filepath.Join(dir, "user-1", "tab-"+strconv.Itoa(i)+".ndjson"))
		if err != nil {
			t.Fatalf("session %d: %v", i, err)
		}
		want := 1
		if i == 0 {
			want = 2
		}
		if n := strings.Count(string(data), "\n"); n != want {
			t.Fatalf("session %d: expected %d lines, got %d", i, want, n)
		}
	}
}
