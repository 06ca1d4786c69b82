package otel

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for i, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("line %d: invalid JSON: %v", i, err)
		}
		out = append(out, decoded)
	}
	return out
}

func TestEmitWritesValidJSONL(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindCycleStart, Level: LevelInfo, Comp: "controller", CycleID: "c-1", Gen: 3})
	l.Close()

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	got := lines[0]
	if got["kind"] != "cycle.start" {
		t.Errorf("kind=%v, want cycle.start", got["kind"])
	}
	if got["comp"] != "controller" {
		t.Errorf("comp=%v, want controller", got["comp"])
	}
	if got["cid"] != "c-1" {
		t.Errorf("cid=%v, want c-1", got["cid"])
	}
	if got["gen"] != float64(3) {
		t.Errorf("gen=%v, want 3", got["gen"])
	}
}

func TestEmitSetsTimeAndSessionID(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	before := time.Now()
	l.Emit(Event{Kind: KindStartup})
	l.Close()
	after := time.Now()

	var ev Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Time.Before(before) || ev.Time.After(after) {
		t.Errorf("time %v not in [%v, %v]", ev.Time, before, after)
	}
	if ev.SessionID != l.SessionID() {
		t.Errorf("session_id=%q, want %q", ev.SessionID, l.SessionID())
	}
	if len(ev.SessionID) != 36 {
		t.Errorf("session_id should be a uuid, got %q", ev.SessionID)
	}
}

func TestEmitKeepsExplicitTime(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.Emit(Event{Kind: KindCycleSuccess, Time: at})
	l.Close()

	var ev Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !ev.Time.Equal(at) {
		t.Errorf("time=%v, want %v", ev.Time, at)
	}
}

func TestDurToMs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindCycleSuccess, Dur: 1500 * time.Millisecond})
	l.Close()

	lines := decodeLines(t, &buf)
	durMs, ok := lines[0]["dur_ms"].(float64)
	if !ok {
		t.Fatal("dur_ms not present or not float64")
	}
	if durMs != 1500 {
		t.Errorf("expected dur_ms=1500, got %v", durMs)
	}
}

func TestOmitempty(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStartup})
	l.Close()

	line := strings.TrimSpace(buf.String())
	for _, field := range []string{"dur_ms", "count", "query", "chaos", "outcome", "status", "err", "msg", "extra", "cid", "gen"} {
		if strings.Contains(line, `"`+field+`"`) {
			t.Errorf("expected field %q to be omitted, but found in: %s", field, line)
		}
	}
}

func TestConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Emit(Event{Kind: KindCycleStart, Comp: "test"})
		}()
	}
	wg.Wait()
	l.Close()

	if lines := decodeLines(t, &buf); len(lines) != 100 {
		t.Errorf("expected 100 lines, got %d", len(lines))
	}
}

func TestCloseIsIdempotentAndDropsLateEmits(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStartup, Msg: "start"})
	l.Emit(Event{Kind: KindShutdown, Msg: "stop"})
	l.Close()
	l.Close()

	l.Emit(Event{Kind: KindError})
	if l.Dropped() != 1 {
		t.Errorf("Dropped()=%d after emit on closed logger, want 1", l.Dropped())
	}
	if lines := decodeLines(t, &buf); len(lines) != 2 {
		t.Fatalf("expected 2 lines after Close, got %d", len(lines))
	}
}

func TestDropCounter(t *testing.T) {
	bw := &blockingWriter{
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	l := NewLogger(bw)

	// First emit is taken by the writer, which blocks on write.
	l.Emit(Event{Kind: KindCycleStart})
	<-bw.started

	for i := 0; i < queueSize+10; i++ {
		l.Emit(Event{Kind: KindCycleStart})
	}
	if l.Dropped() == 0 {
		t.Error("expected some drops when channel is full, got 0")
	}

	close(bw.block)
	l.Close()
}

type blockingWriter struct {
	started chan struct{}
	block   chan struct{}
	once    sync.Once
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		close(w.started)
		<-w.block
	})
	return len(p), nil
}

func TestConvenienceHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Info(KindStartup, "main", "starting")
	l.Warn(KindChaos, "ui", "chaos on")
	l.Error(KindStoreError, "store", errForTest("disk full"))
	l.Close()

	lines := decodeLines(t, &buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}

	tests := []struct {
		level, kind, comp string
	}{
		{"info", "sys.startup", "main"},
		{"warn", "ui.chaos", "ui"},
		{"error", "store.error", "store"},
	}
	for i, tt := range tests {
		if lines[i]["level"] != tt.level || lines[i]["kind"] != tt.kind || lines[i]["comp"] != tt.comp {
			t.Errorf("line %d: got %v/%v/%v, want %s/%s/%s", i,
				lines[i]["level"], lines[i]["kind"], lines[i]["comp"], tt.level, tt.kind, tt.comp)
		}
	}
	if lines[2]["err"] != "disk full" {
		t.Errorf("err=%v, want disk full", lines[2]["err"])
	}
}

type errForTest string

func (e errForTest) Error() string { return string(e) }

func TestOpenFileAppends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	for i := 0; i < 2; i++ {
		l, closeFn, err := OpenFile(dir)
		if err != nil {
			t.Fatalf("OpenFile: %v", err)
		}
		l.Info(KindStartup, "main", "run")
		if err := closeFn(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, EventFileName))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("expected 2 lines across two runs, got %d", n)
	}
}
