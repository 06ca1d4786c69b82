package controller

import (
	"time"

	"github.com/abelbrown/marketmon/internal/catalog"
	"github.com/abelbrown/marketmon/internal/fetch"
)

// Stats is the rolling telemetry shown in the status panels.
type Stats struct {
	SuccessCount int
	ErrorCount   int

	// LastLatency is valid only when HasLatency is set.
	LastLatency time.Duration
	HasLatency  bool

	// LastUpdatedAt is zero until the first cycle completes.
	LastUpdatedAt         time.Time
	LastUpdatedSecondsAgo int
	LastQuery             string
}

// State is a snapshot of everything the UI renders.
type State struct {
	// Version increases on every change. Consumers drop older snapshots.
	Version uint64

	Query    string
	Chaos    bool
	Loading  bool
	Err      fetch.Failure
	Products []catalog.Product
	Stats    Stats
}

// Degraded reports whether the last completed cycle failed.
func (s State) Degraded() bool {
	return s.Err != nil
}

// Health is the headline status derived from chaos and the last outcome.
type Health int

const (
	HealthOperational Health = iota
	HealthDegraded
	HealthForcedInstability
)

func (h Health) String() string {
	switch h {
	case HealthDegraded:
		return "Partial Degradation"
	case HealthForcedInstability:
		return "Forced Instability (Chaos Monkey)"
	default:
		return "Operational"
	}
}

// Health returns the status headline for s.
func (s State) Health() Health {
	switch {
	case s.Chaos:
		return HealthForcedInstability
	case s.Degraded():
		return HealthDegraded
	default:
		return HealthOperational
	}
}

// Cycle identifies one fetch attempt.
type Cycle struct {
	ID         string
	Generation uint64
	Query      string
	Chaos      bool
	StartedAt  time.Time
}

// Outcome is the applied result of a cycle that was not superseded.
type Outcome struct {
	CompletedAt time.Time
	Err         fetch.Failure
	Products    int
	Latency     time.Duration
	HasLatency  bool
}

// Label is the outcome's short name: "success" or the failure kind.
func (o Outcome) Label() string {
	if o.Err == nil {
		return "success"
	}
	return string(o.Err.Kind())
}

// Recorder observes cycles. Implementations must be safe for concurrent use
// and must not block for long; they run on cycle goroutines.
type Recorder interface {
	CycleStarted(Cycle)
	CycleCompleted(Cycle, Outcome)
	CycleSuperseded(Cycle)
}
