package otel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/marketmon/internal/controller"
	"github.com/abelbrown/marketmon/internal/fetch"
)

func recordInto(t *testing.T, fn func(r *CycleRecorder)) []Event {
	t.Helper()
	ring := NewRingBuffer(16)
	l := NewNullLogger()
	l.SetRingBuffer(ring)
	fn(NewCycleRecorder(l))
	l.Close()
	return ring.Snapshot()
}

func TestCycleRecorder(t *testing.T) {
	started := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	cycle := controller.Cycle{ID: "cid-1", Generation: 7, Query: "phone", StartedAt: started}

	t.Run("success", func(t *testing.T) {
		events := recordInto(t, func(r *CycleRecorder) {
			r.CycleStarted(cycle)
			r.CycleCompleted(cycle, controller.Outcome{
				CompletedAt: started.Add(time.Second),
				Products:    12,
				Latency:     900 * time.Millisecond,
				HasLatency:  true,
			})
		})
		require.Len(t, events, 2)
		assert.Equal(t, KindCycleStart, events[0].Kind)
		assert.Equal(t, started, events[0].Time)
		assert.Equal(t, uint64(7), events[0].Gen)

		done := events[1]
		assert.Equal(t, KindCycleSuccess, done.Kind)
		assert.Equal(t, "success", done.Outcome)
		assert.Equal(t, 12, done.Count)
		assert.Equal(t, 900*time.Millisecond, done.Dur)
		assert.Equal(t, "cid-1", done.CycleID)
	})

	t.Run("http error", func(t *testing.T) {
		events := recordInto(t, func(r *CycleRecorder) {
			r.CycleCompleted(cycle, controller.Outcome{Err: &fetch.HTTPError{Status: 503}})
		})
		require.Len(t, events, 1)
		assert.Equal(t, KindCycleError, events[0].Kind)
		assert.Equal(t, LevelError, events[0].Level)
		assert.Equal(t, 503, events[0].Status)
		assert.Equal(t, "HttpError", events[0].Outcome)
		assert.Equal(t, "Product API error (503).", events[0].Err)
	})

	t.Run("injected fault is a warning", func(t *testing.T) {
		events := recordInto(t, func(r *CycleRecorder) {
			r.CycleCompleted(cycle, controller.Outcome{Err: &fetch.InjectedFaultError{}})
		})
		require.Len(t, events, 1)
		assert.Equal(t, LevelWarn, events[0].Level)
		assert.Equal(t, "InjectedFault", events[0].Outcome)
	})

	t.Run("superseded", func(t *testing.T) {
		events := recordInto(t, func(r *CycleRecorder) { r.CycleSuperseded(cycle) })
		require.Len(t, events, 1)
		assert.Equal(t, KindCycleSuperseded, events[0].Kind)
		assert.Equal(t, "phone", events[0].Query)
	})
}
