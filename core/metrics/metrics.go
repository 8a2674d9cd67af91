package metrics

import (
	"time"

	"github.com/dk0164/TMS-MONITOR/core/aggregate"
)

// Outcome classifies a refresh attempt.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeSourceError    Outcome = "source_error"
	OutcomeTransportError Outcome = "transport_error"
)

// SyncEvent describes one completed refresh.
type SyncEvent struct {
	ID       string
	Mode     string
	Outcome  Outcome
	Records  int
	Duration time.Duration
	// Summary covers the whole record set, unfiltered. It is zero unless the
	// refresh succeeded.
	Summary aggregate.Summary
	Error   string
	Time    time.Time
}

// MetricsSink records synchronisation events for observability purposes.
type MetricsSink interface {
	RecordSync(ev SyncEvent) error
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close() error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordSync(SyncEvent) error { return nil }

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSync forwards ev to every sink, even after a failure, and returns the
// first error encountered.
func (m *MultiSink) RecordSync(ev SyncEvent) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordSync(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every sink implementing Closer.
func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.Sinks {
		if c, ok := s.(Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
