package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dk0164/TMS-MONITOR/app"
	"github.com/dk0164/TMS-MONITOR/core/state"
	"github.com/dk0164/TMS-MONITOR/infra/source"
)

func sourceBody(n int) string {
	items := make([]string, n)
	for i := range items {
		status := "ส่งแล้ว"
		if i%5 == 0 {
			status = "ยกเลิก"
		}
		items[i] = fmt.Sprintf(`{"วันที่บันทึกข้อมูล": "2024-01-%02d", "ทะเบียนรถ": "V%d", "Customer": "ACME", "ระยะทางไปกลับ (km)": 10, "ค่าใช้จ่ายตาม Supplier": "250", "สถานะการขนส่ง": %q}`, i%28+1, i%2, status)
	}
	return `{"items": [` + strings.Join(items, ",") + `], "filters": {"cars": ["V0", "V1"], "customers": ["ACME"], "statuses": ["ส่งแล้ว", "ยกเลิก"]}}`
}

// newController serves body from a fake source and performs the first load.
func newController(t *testing.T, body *atomic.Value) *app.Controller {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := body.Load().(string)
		if b == "" {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(b))
	}))
	t.Cleanup(srv.Close)
	c := app.NewController(source.NewClient(srv.URL))
	_, _ = c.Refresh(context.Background(), state.Initial)
	return c
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	var out Response
	if rr.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr, out
}

func TestDashboardHandler(t *testing.T) {
	var body atomic.Value
	body.Store(sourceBody(25))
	h := NewDashboardHandler(newController(t, &body))

	rr, out := get(t, h, "/api/dashboard")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Len(t, out.Rows, 10)
	assert.Equal(t, 25, out.Summary.Count)
	assert.InDelta(t, 250, out.Summary.TotalDistance, 1e-9)
	assert.InDelta(t, 6250, out.Summary.TotalCost, 1e-9)
	assert.Equal(t, 5, out.Summary.Cancelled)
	assert.Equal(t, 20, out.Summary.Delivered)
	assert.Equal(t, 3, out.Pagination.TotalPages)
	assert.Equal(t, []string{"V0", "V1"}, out.Filters.Cars)
	assert.Equal(t, uint64(1), out.Sync.Version)
	assert.NotNil(t, out.Sync.LastSync)

	// Newest first: the last source record heads page one.
	assert.Equal(t, "2024-01-25", out.Rows[0].RecordedAt)
	assert.Equal(t, "25/ม.ค./2024", out.Rows[0].RecordedDisplay)
	assert.Equal(t, "-", out.Rows[0].RequestedDisplay)
}

func TestDashboardHandler_Page(t *testing.T) {
	var body atomic.Value
	body.Store(sourceBody(25))
	h := NewDashboardHandler(newController(t, &body))

	_, out := get(t, h, "/api/dashboard?page=3")
	assert.Equal(t, 3, out.Pagination.Page)
	require.Len(t, out.Rows, 5)
	assert.Equal(t, "2024-01-05", out.Rows[0].RecordedAt)
	assert.Equal(t, "2024-01-01", out.Rows[4].RecordedAt)

	_, out = get(t, h, "/api/dashboard?page=99")
	assert.Equal(t, 3, out.Pagination.Page)
}

func TestDashboardHandler_Filters(t *testing.T) {
	var body atomic.Value
	body.Store(sourceBody(25))
	h := NewDashboardHandler(newController(t, &body))

	_, out := get(t, h, "/api/dashboard?vehicle=V1&status=all&start=2024-01-10&end=2024-01-19")
	assert.Equal(t, 5, out.Pagination.Matched)
	assert.Equal(t, 5, out.Summary.Count)
	for _, r := range out.Rows {
		assert.Equal(t, "V1", r.Vehicle)
	}

	_, out = get(t, h, "/api/dashboard?start=2030-01-01")
	assert.Empty(t, out.Rows)
	assert.Equal(t, 0, out.Summary.Count)
	assert.Equal(t, 1, out.Pagination.TotalPages)
	assert.Equal(t, []int{1}, out.Pagination.Pages)
}

func TestDashboardHandler_BadRequest(t *testing.T) {
	var body atomic.Value
	body.Store(sourceBody(3))
	h := NewDashboardHandler(newController(t, &body))

	for _, target := range []string{
		"/api/dashboard?start=01/02/2024",
		"/api/dashboard?vehicle=unknown",
		"/api/dashboard?start=2024-02-01&end=2024-01-01",
		"/api/dashboard?page=two",
	} {
		rr, _ := get(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/dashboard", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRefreshHandler(t *testing.T) {
	var body atomic.Value
	body.Store(sourceBody(3))
	c := newController(t, &body)
	h := NewRefreshHandler(c)

	body.Store(sourceBody(12))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var s Sync
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.Equal(t, uint64(2), s.Version)
	assert.Empty(t, s.Notice)
	assert.Len(t, c.State().Records, 12)

	body.Store(`{"error": "quota exceeded"}`)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.Equal(t, "quota exceeded", s.Notice)
	assert.Len(t, c.State().Records, 12)

	body.Store("")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.Equal(t, state.ConnectivityNotice, s.Notice)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/refresh", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	require.NoError(t, c.Close())
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRefreshHandler_ClientGoneKeepsNotice(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	c := app.NewController(source.NewClient(srv.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil).WithContext(ctx)
	NewRefreshHandler(c).ServeHTTP(rr, req)

	assert.Empty(t, rr.Body.String())
	st := c.State()
	assert.Empty(t, st.Notice)
	assert.False(t, st.Loading)

	_, out := get(t, NewDashboardHandler(c), "/api/dashboard")
	assert.Empty(t, out.Sync.Notice)
}

func TestRegister(t *testing.T) {
	var body atomic.Value
	body.Store(sourceBody(1))
	mux := http.NewServeMux()
	Register(mux, newController(t, &body))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok\n", rr.Body.String())

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
