package otel

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

const (
	// queueSize bounds how many encoded events may wait for the writer.
	queueSize = 1024

	// EventFileName is the JSONL file inside the data directory.
	EventFileName = "marketmon.events.jsonl"
)

// queued pairs the encoded line with the Event so the ring buffer keeps Dur.
type queued struct {
	line []byte
	ev   Event
}

// Logger writes events as JSON lines from a single background writer.
// Emit never blocks: when the queue is full the event is counted as dropped.
// Safe for concurrent use, including Emit racing with Close.
type Logger struct {
	sessionID string
	w         io.Writer
	ring      atomic.Pointer[RingBuffer]
	dropped   atomic.Uint64

	// sendMu serializes sends against Close closing the queue.
	sendMu sync.RWMutex
	closed bool
	queue  chan queued
	done   chan struct{}
}

// NewLogger starts a Logger writing to w. Close flushes and stops it.
func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		sessionID: uuid.NewString(),
		w:         w,
		queue:     make(chan queued, queueSize),
		done:      make(chan struct{}),
	}
	go l.write()
	return l
}

// NewNullLogger returns a Logger that discards output. It still needs Close.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

// OpenFile opens (appending) the event log inside dir and returns a Logger
// writing to it, plus a close func that stops the Logger and the file.
func OpenFile(dir string) (*Logger, func() error, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, errors.Wrap(err, "create event dir")
	}
	f, err := os.OpenFile(filepath.Join(dir, EventFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open event log")
	}
	l := NewLogger(f)
	return l, func() error {
		l.Close()
		return f.Close()
	}, nil
}

func (l *Logger) write() {
	defer close(l.done)
	for q := range l.queue {
		if _, err := l.w.Write(q.line); err != nil {
			l.dropped.Add(1)
		}
		if rb := l.ring.Load(); rb != nil {
			rb.Push(q.ev)
		}
	}
}

// Emit stamps e with the session ID (and the current time if unset) and
// queues it.
func (l *Logger) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.sessionID

	line, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	line = append(line, '\n')

	l.sendMu.RLock()
	defer l.sendMu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return
	}
	select {
	case l.queue <- queued{line: line, ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// SessionID returns the identifier stamped on every event of this run.
func (l *Logger) SessionID() string {
	return l.sessionID
}

func (l *Logger) Info(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

func (l *Logger) Warn(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error emits an error-level event. A nil err is logged with an empty Err.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	e := Event{Level: LevelError, Kind: kind, Comp: comp}
	if err != nil {
		e.Err = err.Error()
	}
	l.Emit(e)
}

// SetRingBuffer mirrors every written event into buf. Nil detaches.
func (l *Logger) SetRingBuffer(buf *RingBuffer) {
	l.ring.Store(buf)
}

// Dropped returns how many events were lost to a full queue, an encode
// failure, a write error, or a closed Logger.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close flushes queued events and stops the writer. Idempotent. Drops are
// reported on stderr since the TUI owns stdout.
func (l *Logger) Close() {
	l.sendMu.Lock()
	if l.closed {
		l.sendMu.Unlock()
		return
	}
	l.closed = true
	close(l.queue)
	l.sendMu.Unlock()

	<-l.done
	if d := l.dropped.Load(); d > 0 {
		fmt.Fprintf(os.Stderr, "marketmon: %d events dropped during session %s\n", d, l.sessionID)
	}
}
