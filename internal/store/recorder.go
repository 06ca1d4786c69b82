package store

import (
	"github.com/abelbrown/marketmon/internal/controller"
	"github.com/abelbrown/marketmon/internal/fetch"
	"github.com/abelbrown/marketmon/internal/logging"
	"github.com/abelbrown/marketmon/internal/otel"
)

// Recorder writes every applied cycle to the history table. Write failures
// are logged and never reach the controller.
type Recorder struct {
	Store  *Store
	Events *otel.Logger // optional; receives store.error events
}

var _ controller.Recorder = Recorder{}

func (Recorder) CycleStarted(controller.Cycle)    {}
func (Recorder) CycleSuperseded(controller.Cycle) {}

func (r Recorder) CycleCompleted(c controller.Cycle, o controller.Outcome) {
	if err := r.Store.SaveCycle(EntryFor(c, o)); err != nil {
		logging.Warn("save cycle failed", "cycle", c.ID, "error", err)
		if r.Events != nil {
			r.Events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindStoreError, Comp: "store", CycleID: c.ID, Gen: c.Generation, Err: err.Error()})
		}
	}
}

// EntryFor builds the history row for an applied cycle.
func EntryFor(c controller.Cycle, o controller.Outcome) Entry {
	e := Entry{
		ID:          c.ID,
		Generation:  c.Generation,
		Query:       c.Query,
		Chaos:       c.Chaos,
		Outcome:     o.Label(),
		Products:    o.Products,
		Latency:     o.Latency,
		HasLatency:  o.HasLatency,
		StartedAt:   c.StartedAt,
		CompletedAt: o.CompletedAt,
	}
	if o.Err != nil {
		e.Message = o.Err.Error()
		e.Status = fetch.StatusOf(o.Err)
	}
	return e
}
