// Package state holds the dashboard application state and the pure
// transitions applied to it. Nothing in this package performs I/O: the
// controller feeds events in and renders whatever comes out.
package state

import (
	"time"

	"github.com/dk0164/TMS-MONITOR/core/aggregate"
	"github.com/dk0164/TMS-MONITOR/core/filter"
	"github.com/dk0164/TMS-MONITOR/core/model"
	"github.com/dk0164/TMS-MONITOR/core/paginate"
)

// ConnectivityNotice is shown when the first load cannot reach the source.
const ConnectivityNotice = "ไม่สามารถเชื่อมต่อข้อมูลได้"

// Mode tells a refresh whether failures should be visible.
type Mode int

const (
	// Initial is used for the first load and manual refreshes. Transport
	// failures produce a notice.
	Initial Mode = iota
	// Background is used by the periodic refresh. Transport failures are
	// silent and the last good data stays on screen.
	Background
)

func (m Mode) String() string {
	if m == Background {
		return "background"
	}
	return "initial"
}

// State is the whole dashboard state. Records and Vocab are replaced
// wholesale on every successful fetch and never modified in place.
type State struct {
	Records    []model.Record
	Vocab      model.Vocabulary
	Predicates filter.Predicates
	Page       int
	PageSize   int

	Loading    bool
	Refreshing bool
	Notice     string
	LastSync   time.Time
	// Version increases with every successful data replacement.
	Version uint64
}

// New returns the state before the first fetch.
func New(pageSize int) State {
	if pageSize <= 0 {
		pageSize = paginate.DefaultPageSize
	}
	return State{
		Records:    []model.Record{},
		Vocab:      model.Vocabulary{}.Normalize(),
		Predicates: filter.Unrestricted(),
		Page:       1,
		PageSize:   pageSize,
		Loading:    true,
	}
}

// Blocking reports whether nothing can be shown yet.
func (s State) Blocking() bool { return s.Loading && len(s.Records) == 0 }

// Event is a discrete input to the state machine.
type Event interface{ apply(State) State }

// FetchStarted marks a fetch as in flight.
type FetchStarted struct{ Mode Mode }

// FetchSucceeded carries a complete snapshot from the source.
type FetchSucceeded struct {
	Records []model.Record
	Vocab   model.Vocabulary
	At      time.Time
}

// SourceFailed carries an error reported by the source itself.
type SourceFailed struct{ Message string }

// TransportFailed reports that the source could not be reached or decoded.
type TransportFailed struct {
	Mode   Mode
	Notice string
}

// FetchSettled clears the busy flags without touching data or notice. It
// ends a fetch joined from another caller or abandoned by its own caller.
type FetchSettled struct{}

// FiltersChanged replaces the active predicates.
type FiltersChanged struct{ Predicates filter.Predicates }

// PageRequested moves to another page.
type PageRequested struct{ Page int }

// Reduce applies ev to s and returns the new state.
func Reduce(s State, ev Event) State {
	if ev == nil {
		return s
	}
	return ev.apply(s)
}

func (e FetchStarted) apply(s State) State {
	if e.Mode == Background {
		s.Refreshing = true
	} else {
		s.Loading = true
	}
	return s
}

func (e FetchSucceeded) apply(s State) State {
	recs := make([]model.Record, len(e.Records))
	copy(recs, e.Records)
	s.Records = recs
	s.Vocab = e.Vocab.Normalize()
	s.LastSync = e.At
	s.Notice = ""
	s.Version++
	s = idle(s)
	return clampPage(s)
}

func (e SourceFailed) apply(s State) State {
	s.Notice = e.Message
	return idle(s)
}

func (e TransportFailed) apply(s State) State {
	if e.Mode == Initial {
		s.Notice = e.Notice
		if s.Notice == "" {
			s.Notice = ConnectivityNotice
		}
	}
	return idle(s)
}

func (FetchSettled) apply(s State) State { return idle(s) }

func (e FiltersChanged) apply(s State) State {
	s.Predicates = e.Predicates
	return clampPage(s)
}

func (e PageRequested) apply(s State) State {
	s.Page = e.Page
	return clampPage(s)
}

func idle(s State) State {
	s.Loading = false
	s.Refreshing = false
	return s
}

func clampPage(s State) State {
	n := len(filter.Apply(s.Records, s.Predicates))
	s.Page = paginate.Clamp(s.Page, paginate.TotalPages(n, s.PageSize))
	return s
}

// View is everything a renderer needs, derived from a State.
type View struct {
	Rows       []model.Record
	Summary    aggregate.Summary
	Matched    int
	Page       int
	TotalPages int
	Pages      []int
}

// Derive computes the filtered, aggregated and paginated view of s.
func Derive(s State) View {
	filtered := filter.Apply(s.Records, s.Predicates)
	total := paginate.TotalPages(len(filtered), s.PageSize)
	page := paginate.Clamp(s.Page, total)
	return View{
		Rows:       paginate.Paginate(filtered, page, s.PageSize),
		Summary:    aggregate.Aggregate(filtered),
		Matched:    len(filtered),
		Page:       page,
		TotalPages: total,
		Pages:      paginate.Window(page, total, paginate.DefaultWindow),
	}
}
