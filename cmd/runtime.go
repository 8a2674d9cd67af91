package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dk0164/TMS-MONITOR/app"
	"github.com/dk0164/TMS-MONITOR/auth"
	"github.com/dk0164/TMS-MONITOR/config"
	coremetrics "github.com/dk0164/TMS-MONITOR/core/metrics"
	"github.com/dk0164/TMS-MONITOR/core/state"
	"github.com/dk0164/TMS-MONITOR/infra/logger"
	inframetrics "github.com/dk0164/TMS-MONITOR/infra/metrics"
	"github.com/dk0164/TMS-MONITOR/infra/source"
)

// runtime bundles what every command needs.
type runtime struct {
	cfg  *config.Config
	ctrl *app.Controller
	sink coremetrics.MetricsSink
	log  logger.Logger
}

// newRuntime loads the configuration and builds a controller with the
// command-line filters applied. Metrics sinks are only built when withSinks
// is set.
func newRuntime(cmd *cobra.Command, withSinks bool) (*runtime, error) {
	path := cfgPath
	if !cmd.Flags().Changed("config") && !config.Exists(path) {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	preds, err := selection.Predicates()
	if err != nil {
		return nil, err
	}

	var sink coremetrics.MetricsSink = coremetrics.NopSink{}
	if withSinks {
		sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
	}

	opts := []source.Option{
		source.WithTimeout(cfg.Source.Timeout),
		source.WithLogger(logger.New("source")),
	}
	if cfg.Source.Auth.Enabled() {
		opts = append(opts, source.WithAuthorizer(auth.NewClientCred(cfg.Source.Auth)))
	}
	client := source.NewClient(cfg.Source.URL, opts...)
	log := logger.New("controller")
	ctrl := app.NewController(client,
		app.WithSink(sink),
		app.WithLogger(log),
		app.WithInterval(cfg.Source.RefreshInterval),
		app.WithPageSize(cfg.Source.PageSize),
		app.WithNotice(cfg.Source.ConnectivityNotice),
	)
	if err := ctrl.SetFilters(preds); err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, ctrl: ctrl, sink: sink, log: log}, nil
}

// load performs a single initial fetch and moves to the requested page.
func (r *runtime) load(ctx context.Context) (state.State, error) {
	if _, err := r.ctrl.Refresh(ctx, state.Initial); err != nil {
		return state.State{}, fmt.Errorf("fetch %s: %w", r.cfg.Source.URL, err)
	}
	if err := r.ctrl.SetFilters(r.ctrl.State().Predicates); err != nil {
		return state.State{}, err
	}
	r.ctrl.SetPage(page)
	return r.ctrl.State(), nil
}

// serveMetrics exposes /metrics when a port is configured.
func (r *runtime) serveMetrics(ctx context.Context) {
	port := r.cfg.Metrics.PrometheusPort
	if port == "" {
		return
	}
	go func() {
		if err := inframetrics.StartPromServer(ctx, port, r.log); err != nil {
			r.log.Errorf("prom server: %v", err)
		}
	}()
}

func (r *runtime) Close() {
	if err := r.ctrl.Close(); err != nil {
		r.log.Errorf("controller close: %v", err)
	}
	if c, ok := r.sink.(coremetrics.Closer); ok {
		if err := c.Close(); err != nil {
			r.log.Errorf("metrics sink close: %v", err)
		}
	}
}
