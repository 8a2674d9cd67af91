// Package dashboard exposes the delivery dashboard over HTTP.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dk0164/TMS-MONITOR/app"
	"github.com/dk0164/TMS-MONITOR/core/aggregate"
	"github.com/dk0164/TMS-MONITOR/core/dates"
	"github.com/dk0164/TMS-MONITOR/core/filter"
	"github.com/dk0164/TMS-MONITOR/core/model"
	"github.com/dk0164/TMS-MONITOR/core/state"
)

// Controller is the part of app.Controller the handlers need.
type Controller interface {
	State() state.State
	Refresh(ctx context.Context, mode state.Mode) (state.State, error)
}

// Row is a record with its dates formatted for display.
type Row struct {
	model.Record     `yaml:",inline"`
	RecordedDisplay  string `json:"recorded_display" yaml:"recorded_display"`
	RequestedDisplay string `json:"requested_display" yaml:"requested_display"`
}

// Pagination describes the returned page.
type Pagination struct {
	Page       int   `json:"page" yaml:"page"`
	TotalPages int   `json:"total_pages" yaml:"total_pages"`
	PageSize   int   `json:"page_size" yaml:"page_size"`
	Matched    int   `json:"matched" yaml:"matched"`
	Pages      []int `json:"pages" yaml:"pages"`
}

// Sync reports the freshness of the data.
type Sync struct {
	Loading    bool       `json:"loading" yaml:"loading"`
	Refreshing bool       `json:"refreshing" yaml:"refreshing"`
	Notice     string     `json:"notice,omitempty" yaml:"notice,omitempty"`
	LastSync   *time.Time `json:"last_sync,omitempty" yaml:"last_sync,omitempty"`
	Version    uint64     `json:"version" yaml:"version"`
}

// Response is the body of GET /api/dashboard.
type Response struct {
	Rows       []Row             `json:"rows" yaml:"rows"`
	Summary    aggregate.Summary `json:"summary" yaml:"summary"`
	Pagination Pagination        `json:"pagination" yaml:"pagination"`
	Filters    model.Vocabulary  `json:"filters" yaml:"filters"`
	Sync       Sync              `json:"sync" yaml:"sync"`
}

// NewDashboardHandler serves GET /api/dashboard. Filters and page come from
// the query string and apply to this response only.
func NewDashboardHandler(c Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		p, err := filter.Selection{
			Start:    q.Get("start"),
			End:      q.Get("end"),
			Vehicle:  q.Get("vehicle"),
			Customer: q.Get("customer"),
			Status:   q.Get("status"),
		}.Predicates()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		st := c.State()
		if err := p.Validate(st.Vocab); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		st = state.Reduce(st, state.FiltersChanged{Predicates: p})
		if s := q.Get("page"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				http.Error(w, "invalid page", http.StatusBadRequest)
				return
			}
			st = state.Reduce(st, state.PageRequested{Page: n})
		}
		writeJSON(w, http.StatusOK, NewResponse(st))
	})
}

// NewRefreshHandler serves POST /api/refresh. The refresh runs in Initial
// mode so failures are reported; source and transport failures answer 502.
// Nothing is written once the client has gone.
func NewRefreshHandler(c Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		st, err := c.Refresh(r.Context(), state.Initial)
		code := http.StatusOK
		switch {
		case err == nil:
		case r.Context().Err() != nil:
			return
		case errors.Is(err, app.ErrClosed):
			code = http.StatusServiceUnavailable
		default:
			code = http.StatusBadGateway
		}
		writeJSON(w, code, syncOf(st))
	})
}

// NewHealthHandler serves GET /healthz.
func NewHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
}

// Register mounts every dashboard route on mux.
func Register(mux *http.ServeMux, c Controller) {
	mux.Handle("/api/dashboard", NewDashboardHandler(c))
	mux.Handle("/api/refresh", NewRefreshHandler(c))
	mux.Handle("/healthz", NewHealthHandler())
}

// NewResponse derives the response body from a state.
func NewResponse(st state.State) Response {
	v := state.Derive(st)
	rows := make([]Row, len(v.Rows))
	for i, rec := range v.Rows {
		rows[i] = Row{
			Record:           rec,
			RecordedDisplay:  dates.Display(rec.RecordedAt),
			RequestedDisplay: dates.Display(rec.RequestedDate),
		}
	}
	return Response{
		Rows:    rows,
		Summary: v.Summary,
		Pagination: Pagination{
			Page:       v.Page,
			TotalPages: v.TotalPages,
			PageSize:   st.PageSize,
			Matched:    v.Matched,
			Pages:      v.Pages,
		},
		Filters: st.Vocab.Normalize(),
		Sync:    syncOf(st),
	}
}

func syncOf(st state.State) Sync {
	s := Sync{
		Loading:    st.Loading,
		Refreshing: st.Refreshing,
		Notice:     st.Notice,
		Version:    st.Version,
	}
	if !st.LastSync.IsZero() {
		t := st.LastSync
		s.LastSync = &t
	}
	return s
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
