package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/dk0164/TMS-MONITOR/core/metrics"
	"github.com/dk0164/TMS-MONITOR/infra/logger"
)

// InfluxSink writes one point per refresh to an InfluxDB bucket, building a
// history of snapshot totals.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSync writes the refresh as a tms_sync point.
func (s *InfluxSink) RecordSync(ev coremetrics.SyncEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, SyncPoint(ev))
}

// SyncPoint converts ev to line protocol.
func SyncPoint(ev coremetrics.SyncEvent) *write.Point {
	p := write.NewPointWithMeasurement("tms_sync").
		AddTag("mode", ev.Mode).
		AddTag("outcome", string(ev.Outcome)).
		AddField("sync_id", ev.ID).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time)
	if ev.Outcome == coremetrics.OutcomeSuccess {
		p = p.AddField("records", ev.Records).
			AddField("distance_km", round3(ev.Summary.TotalDistance)).
			AddField("cost", round3(ev.Summary.TotalCost)).
			AddField("delivered", ev.Summary.Delivered).
			AddField("cancelled", ev.Summary.Cancelled)
	} else {
		p = p.AddField("error", ev.Error)
	}
	return p
}

// Close releases the underlying client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
