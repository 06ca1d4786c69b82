package store

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/abelbrown/marketmon/internal/controller"
	"github.com/abelbrown/marketmon/internal/fetch"
	"github.com/abelbrown/marketmon/internal/otel"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	st, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

var base = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func entry(id string, offset time.Duration, outcome string) Entry {
	return Entry{
		ID:          id,
		Generation:  1,
		Query:       "notebook",
		Outcome:     outcome,
		StartedAt:   base.Add(offset - time.Second),
		CompletedAt: base.Add(offset),
	}
}

func TestOpen(t *testing.T) {
	st := openTest(t)

	var name string
	err := st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='cycles'").Scan(&name)
	if err != nil {
		t.Fatalf("cycles table not created: %v", err)
	}
}

func TestOpenEmptyPathIsMemory(t *testing.T) {
	st, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\") failed: %v", err)
	}
	defer st.Close()
	if err := st.SaveCycle(entry("a", 0, "success")); err != nil {
		t.Fatalf("SaveCycle: %v", err)
	}
}

func TestSaveAndRecentRoundTrip(t *testing.T) {
	st := openTest(t)

	want := Entry{
		ID:          "c-1",
		Generation:  42,
		Query:       "phone case",
		Chaos:       true,
		Outcome:     "HttpError",
		Status:      503,
		Message:     "Product API error (503).",
		Products:    0,
		Latency:     1234 * time.Millisecond,
		HasLatency:  true,
		StartedAt:   base,
		CompletedAt: base.Add(2 * time.Second),
	}
	if err := st.SaveCycle(want); err != nil {
		t.Fatalf("SaveCycle: %v", err)
	}

	got, err := st.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if diff := cmp.Diff(want, got[0], cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestNullLatency(t *testing.T) {
	st := openTest(t)

	e := entry("n", 0, "NetworkError")
	if err := st.SaveCycle(e); err != nil {
		t.Fatalf("SaveCycle: %v", err)
	}
	got, err := st.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if got[0].HasLatency || got[0].Latency != 0 {
		t.Errorf("expected no latency, got %v (has=%v)", got[0].Latency, got[0].HasLatency)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	st := openTest(t)

	for i, id := range []string{"old", "mid", "new"} {
		if err := st.SaveCycle(entry(id, time.Duration(i)*time.Second, "success")); err != nil {
			t.Fatalf("SaveCycle(%s): %v", id, err)
		}
	}

	got, err := st.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	var ids []string
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	if diff := cmp.Diff([]string{"new", "mid"}, ids); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	all, err := st.Recent(0)
	if err != nil {
		t.Fatalf("Recent(0): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Recent(0) returned %d entries, want 3", len(all))
	}
}

func TestSaveDuplicateIgnored(t *testing.T) {
	st := openTest(t)

	e := entry("dup", 0, "success")
	for i := 0; i < 2; i++ {
		if err := st.SaveCycle(e); err != nil {
			t.Fatalf("SaveCycle #%d: %v", i, err)
		}
	}
	got, _ := st.Recent(0)
	if len(got) != 1 {
		t.Errorf("expected 1 entry, got %d", len(got))
	}
}

func TestCountByOutcome(t *testing.T) {
	st := openTest(t)

	outcomes := []string{"success", "success", "Timeout", "InjectedFault", "success"}
	for i, o := range outcomes {
		if err := st.SaveCycle(entry(fmt.Sprintf("c%d", i), time.Duration(i)*time.Second, o)); err != nil {
			t.Fatalf("SaveCycle: %v", err)
		}
	}

	got, err := st.CountByOutcome()
	if err != nil {
		t.Fatalf("CountByOutcome: %v", err)
	}
	want := map[string]int{"success": 3, "Timeout": 1, "InjectedFault": 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestPrune(t *testing.T) {
	st := openTest(t)

	for i := 0; i < 5; i++ {
		if err := st.SaveCycle(entry(fmt.Sprintf("c%d", i), time.Duration(i)*time.Second, "success")); err != nil {
			t.Fatalf("SaveCycle: %v", err)
		}
	}
	n, err := st.Prune(2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 3 {
		t.Errorf("Prune removed %d, want 3", n)
	}
	got, _ := st.Recent(0)
	if len(got) != 2 || got[0].ID != "c4" || got[1].ID != "c3" {
		t.Errorf("unexpected survivors: %+v", got)
	}
}

func TestFileBackedPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.SaveCycle(entry("persisted", 0, "success")); err != nil {
		t.Fatalf("SaveCycle: %v", err)
	}
	st.Close()

	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	got, _ := st.Recent(0)
	if len(got) != 1 || got[0].ID != "persisted" {
		t.Errorf("expected persisted entry, got %+v", got)
	}
}

func TestConcurrentSaves(t *testing.T) {
	st := openTest(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := st.SaveCycle(entry(fmt.Sprintf("c%d", i), time.Duration(i)*time.Millisecond, "success")); err != nil {
				t.Errorf("SaveCycle: %v", err)
			}
		}(i)
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.Recent(5); err != nil {
				t.Errorf("Recent: %v", err)
			}
		}()
	}
	wg.Wait()

	counts, _ := st.CountByOutcome()
	if counts["success"] != 20 {
		t.Errorf("expected 20 saved, got %d", counts["success"])
	}
}

func TestRecorderSavesCompletedCycles(t *testing.T) {
	st := openTest(t)
	rec := Recorder{Store: st}

	cycle := controller.Cycle{ID: "r1", Generation: 3, Query: "tv", StartedAt: base}
	rec.CycleStarted(cycle)
	rec.CycleSuperseded(controller.Cycle{ID: "r0", StartedAt: base})
	rec.CycleCompleted(cycle, controller.Outcome{
		CompletedAt: base.Add(time.Second),
		Err:         &fetch.HTTPError{Status: 404, Elapsed: 80 * time.Millisecond},
		Latency:     80 * time.Millisecond,
		HasLatency:  true,
	})

	got, err := st.Recent(0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected only the completed cycle, got %d entries", len(got))
	}
	e := got[0]
	if e.ID != "r1" || e.Outcome != "HttpError" || e.Status != 404 || e.Message != "No products found (404)." {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Latency != 80*time.Millisecond {
		t.Errorf("latency = %v, want 80ms", e.Latency)
	}
}

func TestRecorderReportsWriteFailures(t *testing.T) {
	st, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	st.Close()

	events := otel.NewLogger(io.Discard)
	ring := otel.NewRingBuffer(16)
	events.SetRingBuffer(ring)
	defer events.Close()

	rec := Recorder{Store: st, Events: events}
	rec.CycleCompleted(controller.Cycle{ID: "x1", Generation: 7, StartedAt: base}, controller.Outcome{CompletedAt: base})

	deadline := time.Now().Add(time.Second)
	for ring.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	got := ring.Snapshot()
	if len(got) != 1 {
		t.Fatalf("expected one store.error event, got %d", len(got))
	}
	if got[0].Kind != otel.KindStoreError || got[0].CycleID != "x1" || got[0].Gen != 7 || got[0].Err == "" {
		t.Errorf("unexpected event: %+v", got[0])
	}
}
