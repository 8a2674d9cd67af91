// Package app wires the dashboard state machine to its data source, the
// refresh schedule and the metrics sinks.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/dk0164/TMS-MONITOR/core/aggregate"
	"github.com/dk0164/TMS-MONITOR/core/filter"
	coremetrics "github.com/dk0164/TMS-MONITOR/core/metrics"
	"github.com/dk0164/TMS-MONITOR/core/state"
	"github.com/dk0164/TMS-MONITOR/infra/logger"
	"github.com/dk0164/TMS-MONITOR/infra/source"
	"github.com/dk0164/TMS-MONITOR/internal/eventbus"
)

// DefaultInterval is the background refresh cadence.
const DefaultInterval = 50 * time.Second

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("controller closed")

// Fetcher retrieves one complete snapshot from the data source.
type Fetcher interface {
	Fetch(ctx context.Context) (source.Payload, error)
}

// Controller owns the dashboard state. All mutations go through the pure
// reducer in core/state under a single mutex.
type Controller struct {
	fetcher  Fetcher
	sink     coremetrics.MetricsSink
	log      logger.Logger
	interval time.Duration
	notice   string
	now      func() time.Time

	mu     sync.Mutex
	st     state.State
	closed bool

	group  singleflight.Group
	cron   *cron.Cron
	cancel context.CancelFunc
	bus    *eventbus.TypedBus[state.State]
}

// Option configures a Controller.
type Option func(*Controller)

// WithSink sets the metrics sink receiving one event per completed fetch.
func WithSink(s coremetrics.MetricsSink) Option {
	return func(c *Controller) {
		if s != nil {
			c.sink = s
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithInterval sets the background refresh cadence.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithPageSize sets the number of rows per page.
func WithPageSize(n int) Option {
	return func(c *Controller) { c.st = state.New(n) }
}

// WithNotice overrides the message shown when the first load cannot reach
// the source.
func WithNotice(msg string) Option {
	return func(c *Controller) { c.notice = msg }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController returns a controller in the loading state. Nothing is fetched
// until Start or Refresh is called.
func NewController(f Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:  f,
		sink:     coremetrics.NopSink{},
		log:      logger.NopLogger{},
		interval: DefaultInterval,
		notice:   state.ConnectivityNotice,
		now:      time.Now,
		st:       state.New(0),
		bus:      eventbus.NewTyped[state.State](),
	}
	for _, o := range opts {
		o(c)
	}
	cl := cronLogger{c.log}
	c.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	return c
}

// Start performs the initial load and schedules background refreshes. A
// failing initial load is reflected in the state, not returned.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	if _, err := c.Refresh(ctx, state.Initial); err != nil {
		c.log.Warnf("initial load failed: %v", err)
	}
	schedule := fmt.Sprintf("@every %s", c.interval)
	if _, err := c.cron.AddFunc(schedule, func() {
		if _, err := c.Refresh(ctx, state.Background); err != nil && ctx.Err() == nil {
			c.log.Warnf("background refresh: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	c.cron.Start()
	c.log.Infof("refreshing every %s", c.interval)
	return nil
}

// Refresh fetches a new snapshot. Concurrent callers share one request and
// each applies the error visibility of its own mode: a transport failure sets
// the connectivity notice for Initial and is swallowed for Background. Source
// errors are returned in both modes. A cancelled fetch returns the context error
// and leaves data and notice untouched.
func (c *Controller) Refresh(ctx context.Context, mode state.Mode) (state.State, error) {
	if !c.apply(state.FetchStarted{Mode: mode}) {
		return c.State(), ErrClosed
	}
	_, err, shared := c.group.Do("fetch", func() (any, error) {
		return nil, c.fetch(ctx, mode)
	})

	var srcErr *source.SourceError
	switch {
	case err == nil, errors.As(err, &srcErr):
		if shared {
			c.apply(state.FetchSettled{})
		}
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		// The caller, or the one whose fetch this joined, went away.
		c.log.Debugf("refresh abandoned: %v", err)
		c.apply(state.FetchSettled{})
		return c.State(), err
	case mode == state.Background:
		c.log.Warnf("background refresh failed, keeping last data: %v", err)
		c.apply(state.TransportFailed{Mode: mode})
		err = nil
	default:
		c.log.Errorf("refresh failed: %v", err)
		c.apply(state.TransportFailed{Mode: mode, Notice: c.notice})
	}
	return c.State(), err
}

// fetch runs once per shared request. Data replacement and source errors are
// applied here so they happen exactly once.
func (c *Controller) fetch(ctx context.Context, mode state.Mode) error {
	id := uuid.NewString()
	start := c.now()
	p, err := c.fetcher.Fetch(ctx)
	ev := coremetrics.SyncEvent{
		ID:       id,
		Mode:     mode.String(),
		Duration: c.now().Sub(start),
		Time:     c.now(),
	}

	var srcErr *source.SourceError
	switch {
	case err == nil:
		ev.Outcome = coremetrics.OutcomeSuccess
		ev.Records = len(p.Records)
		ev.Summary = aggregate.Aggregate(p.Records)
		c.apply(state.FetchSucceeded{Records: p.Records, Vocab: p.Vocab, At: ev.Time})
		c.log.Debugw("sync complete", map[string]any{"sync_id": id, "mode": ev.Mode, "records": ev.Records})
	case errors.As(err, &srcErr):
		ev.Outcome = coremetrics.OutcomeSourceError
		ev.Error = srcErr.Message
		c.log.Warnf("source reported error: %s", srcErr.Message)
		c.apply(state.SourceFailed{Message: srcErr.Message})
	default:
		ev.Outcome = coremetrics.OutcomeTransportError
		ev.Error = err.Error()
	}
	if serr := c.sink.RecordSync(ev); serr != nil {
		c.log.Warnf("record sync %s: %v", id, serr)
	}
	return err
}

// SetFilters replaces the active predicates after checking them against the
// current vocabulary.
func (c *Controller) SetFilters(p filter.Predicates) error {
	c.mu.Lock()
	vocab := c.st.Vocab
	c.mu.Unlock()
	if err := p.Validate(vocab); err != nil {
		return err
	}
	if !c.apply(state.FiltersChanged{Predicates: p}) {
		return ErrClosed
	}
	return nil
}

// SetPage moves to page n, clamped to the available range.
func (c *Controller) SetPage(n int) {
	c.apply(state.PageRequested{Page: n})
}

// NextPage moves one page forward.
func (c *Controller) NextPage() { c.step(1) }

// PrevPage moves one page back.
func (c *Controller) PrevPage() { c.step(-1) }

func (c *Controller) step(delta int) {
	c.mu.Lock()
	page := c.st.Page + delta
	c.mu.Unlock()
	c.SetPage(page)
}

// State returns a copy of the current state.
func (c *Controller) State() state.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// View returns the filtered, aggregated and paginated view.
func (c *Controller) View() state.View {
	return state.Derive(c.State())
}

// Subscribe returns a channel receiving the state after every change.
func (c *Controller) Subscribe() <-chan state.State { return c.bus.Subscribe() }

// Unsubscribe stops delivery to a channel returned by Subscribe.
func (c *Controller) Unsubscribe(ch <-chan state.State) { c.bus.Unsubscribe(ch) }

// Close stops the schedule, waits for a running job and closes subscriber
// channels. The state is frozen afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-c.cron.Stop().Done()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.bus.Close()
	return nil
}

func (c *Controller) apply(ev state.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.st = state.Reduce(c.st, ev)
	c.bus.Publish(c.st)
	return true
}

// cronLogger routes scheduler messages to the controller logger.
type cronLogger struct{ l logger.Logger }

func (c cronLogger) Info(msg string, kv ...any) {
	c.l.Debugw("cron: "+msg, pairs(kv))
}

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Errorf("cron: %s: %v %v", msg, err, kv)
}

func pairs(kv []any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return m
}
