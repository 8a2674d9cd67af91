package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/dk0164/TMS-MONITOR/core/metrics"
)

// PromSink records synchronisation events in Prometheus metrics.
type PromSink struct {
	syncs    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	records  prometheus.Gauge
	lastSync prometheus.Gauge
	distance prometheus.Gauge
	cost     prometheus.Gauge
	byStatus *prometheus.GaugeVec
}

// NewPromSink registers sync metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tms_sync_total",
		Help: "Total number of source refreshes by outcome",
	}, []string{"mode", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tms_sync_duration_seconds",
		Help:    "Time taken by a source refresh",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode", "outcome"})
	records := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tms_records",
		Help: "Number of delivery records in the last successful snapshot",
	})
	lastSync := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tms_last_sync_timestamp_seconds",
		Help: "Unix time of the last successful refresh",
	})
	distance := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tms_distance_km",
		Help: "Total round-trip distance across the last snapshot",
	})
	cost := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tms_cost",
		Help: "Total supplier cost across the last snapshot",
	})
	byStatus := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tms_deliveries",
		Help: "Deliveries in the last snapshot by tracked status",
	}, []string{"status"})

	var err error
	if syncs, err = register(reg, syncs); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if records, err = register(reg, records); err != nil {
		return nil, err
	}
	if lastSync, err = register(reg, lastSync); err != nil {
		return nil, err
	}
	if distance, err = register(reg, distance); err != nil {
		return nil, err
	}
	if cost, err = register(reg, cost); err != nil {
		return nil, err
	}
	if byStatus, err = register(reg, byStatus); err != nil {
		return nil, err
	}
	return &PromSink{
		syncs:    syncs,
		duration: duration,
		records:  records,
		lastSync: lastSync,
		distance: distance,
		cost:     cost,
		byStatus: byStatus,
	}, nil
}

// register returns the already registered collector when c was registered
// before, so several sinks can share the default registerer.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSync counts the refresh and, on success, updates the snapshot gauges.
func (s *PromSink) RecordSync(ev coremetrics.SyncEvent) error {
	s.syncs.WithLabelValues(ev.Mode, string(ev.Outcome)).Inc()
	s.duration.WithLabelValues(ev.Mode, string(ev.Outcome)).Observe(ev.Duration.Seconds())
	if ev.Outcome != coremetrics.OutcomeSuccess {
		return nil
	}
	s.records.Set(float64(ev.Records))
	s.lastSync.Set(float64(ev.Time.Unix()))
	s.distance.Set(ev.Summary.TotalDistance)
	s.cost.Set(ev.Summary.TotalCost)
	s.byStatus.WithLabelValues("delivered").Set(float64(ev.Summary.Delivered))
	s.byStatus.WithLabelValues("cancelled").Set(float64(ev.Summary.Cancelled))
	return nil
}
