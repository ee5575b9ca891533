// Package convlog records chat traffic as NDJSON, one file per conversation
// and optionally one global file.
package convlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Config controls where and whether events are written.
type Config struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
	// MaxOpenFiles caps the per-conversation file handles kept open. The
	// least recently written file is closed first and reopened on demand.
	MaxOpenFiles int
}

// Event is one logged chat message.
type Event struct {
	Timestamp  time.Time      `json:"ts"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Channels and directions used by the transports.
const (
	ChannelHTTP      = "chat_http"
	ChannelWebSocket = "chat_ws"
	ChannelConsole   = "console"

	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"

	EventUserMessage = "chat_user_message"
	EventBotReply    = "chat_bot_reply"
)

// Logger accepts events without blocking the caller.
type Logger interface {
	Log(Event)
	Close() error
}

type noopLogger struct{}

func (noopLogger) Log(Event)    {}
func (noopLogger) Close() error { return nil }

// Noop returns a Logger that discards everything.
func Noop() Logger { return noopLogger{} }

const (
	defaultQueueSize    = 256
	defaultMaxOpenFiles = 64
)

type fileLogger struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan Event
	done   chan struct{}

	// files is only touched by run, and by Close after run has exited.
	files    *simplelru.LRU[string, *os.File]
	peakOpen int
	global   *os.File
	dropped  atomic.Int64
}

// New starts a Logger. When neither per-conversation nor global logging is
// enabled it returns a no-op Logger.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled && !cfg.GlobalEnabled {
		return noopLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.MaxOpenFiles <= 0 {
		cfg.MaxOpenFiles = defaultMaxOpenFiles
	}

	l := &fileLogger{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan Event, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	files, err := simplelru.NewLRU[string, *os.File](cfg.MaxOpenFiles, l.closeEvicted)
	if err != nil {
		return nil, fmt.Errorf("create file cache: %w", err)
	}
	l.files = files
	if cfg.Enabled {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("conversation log dir is required")
		}
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create conversation log dir: %w", err)
		}
	}
	if cfg.GlobalEnabled {
		if cfg.GlobalPath == "" {
			return nil, fmt.Errorf("global conversation log path is required")
		}
		f, err := openAppend(cfg.GlobalPath)
		if err != nil {
			return nil, err
		}
		l.global = f
	}

	go l.run()
	return l, nil
}

// Log enqueues an event. Events are dropped when the queue is full.
func (l *fileLogger) Log(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Content == "" {
		ev.Content = cleanForReadability(ev.ContentRaw)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- ev:
	default:
		if n := l.dropped.Add(1); n == 1 || n%100 == 0 {
			l.logger.Warn("Conversation log queue full, dropping events", "dropped_total", n)
		}
	}
}

// Close drains the queue and closes every open file.
func (l *fileLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done

	var firstErr error
	for _, f := range l.files.Values() {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	if l.global != nil {
		if err := l.global.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *fileLogger) run() {
	defer close(l.done)
	for ev := range l.queue {
		line, err := json.Marshal(ev)
		if err != nil {
			l.logger.Error("Failed to encode conversation log event", "error", err)
			continue
		}
		line = append(line, '\n')

		if l.cfg.Enabled {
			if err := l.writeSession(ev, line); err != nil {
				l.logger.Error("Failed to write conversation log", "user_id", ev.UserID, "session_id", ev.SessionID, "error", err)
			}
		}
		if l.global != nil {
			if _, err := l.global.Write(line); err != nil {
				l.logger.Error("Failed to write global conversation log", "error", err)
			}
		}
	}
}

func (l *fileLogger) writeSession(ev Event, line []byte) error {
	path := filepath.Join(l.cfg.Dir, pathSegment(ev.UserID), pathSegment(ev.SessionID)+".ndjson")
	f, ok := l.files.Get(path)
	if !ok {
		var err error
		f, err = openAppend(path)
		if err != nil {
			return err
		}
		l.files.Add(path, f)
		l.peakOpen = max(l.peakOpen, l.files.Len())
	}
	_, err := f.Write(line)
	return err
}

func (l *fileLogger) closeEvicted(path string, f *os.File) {
	if err := f.Close(); err != nil {
		l.logger.Warn("Failed to close conversation log file", "path", path, "error", err)
	}
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

var unsafeSegment = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// pathSegment turns an identifier into a single safe file name.
func pathSegment(id string) string {
	s := unsafeSegment.ReplaceAllString(id, "_")
	s = strings.Trim(s, ".")
	if s == "" {
		return "unknown"
	}
	return s
}

var (
	ansiCSI = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	ansiOSC = regexp.MustCompile(`\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)
)

// cleanForReadability strips terminal escape sequences and carriage returns.
func cleanForReadability(raw string) string {
	s := ansiOSC.ReplaceAllString(raw, "")
	s = ansiCSI.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimSpace(s)
}
