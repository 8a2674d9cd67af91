package render

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dk0164/TMS-MONITOR/core/aggregate"
	"github.com/dk0164/TMS-MONITOR/core/model"
	"github.com/dk0164/TMS-MONITOR/core/state"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func loaded(recs []model.Record) state.State {
	st := state.New(10)
	return state.Reduce(st, state.FetchSucceeded{Records: recs, At: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)})
}

func newRenderer(buf *bytes.Buffer) *Renderer {
	r := New(buf)
	r.now = func() time.Time { return time.Date(2024, 1, 1, 12, 2, 0, 0, time.UTC) }
	return r
}

func TestDashboard_Loading(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newRenderer(&buf).Dashboard(state.New(10)))
	assert.Equal(t, LoadingText+"\n", buf.String())
}

func TestDashboard(t *testing.T) {
	recs := make([]model.Record, 12)
	for i := range recs {
		recs[i] = model.Record{
			RecordedAt: "2024-01-" + strconv.Itoa(10+i),
			Vehicle:    "70-1234",
			Customer:   "ACME",
			Distance:   "1000",
			Cost:       "1500.5",
			Status:     model.StatusDelivered,
		}
	}
	recs[0].Distance = "N/A"
	st := loaded(recs)
	st.Notice = "sheet locked"

	var buf bytes.Buffer
	require.NoError(t, newRenderer(&buf).Dashboard(st))
	out := buf.String()
	assert.Contains(t, out, "updated 2 minutes ago")
	assert.Contains(t, out, "! sheet locked")
	assert.Contains(t, out, "Trips 12")
	assert.Contains(t, out, "Distance 11,000.0 km")
	assert.Contains(t, out, "Cost 18,006.00")
	assert.Contains(t, out, "Delivered 12")
	assert.Contains(t, out, "21/ม.ค./2024")
	assert.NotContains(t, out, "10/ม.ค./2024", "oldest record is on page two")
	assert.Contains(t, out, "page 1/2  [1] 2")
	assert.Equal(t, 10, strings.Count(out, model.StatusDelivered))
}

func TestDashboard_Refreshing(t *testing.T) {
	st := loaded([]model.Record{{Vehicle: "A"}})
	st = state.Reduce(st, state.FetchStarted{Mode: state.Background})
	var buf bytes.Buffer
	require.NoError(t, newRenderer(&buf).Dashboard(st))
	assert.Contains(t, buf.String(), "refreshing...")
	assert.Contains(t, buf.String(), "A")
}

func TestTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newRenderer(&buf).Table(nil))
	assert.Equal(t, "no records\n", buf.String())
}

func TestTable_MissingCells(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newRenderer(&buf).Table([]model.Record{{RecordedAt: "garbage value", Vehicle: "A"}}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	fields := strings.Fields(lines[1])
	assert.Equal(t, []string{"garbage", "A", "-", "-", "-", "-", "-", "-", "-"}, fields)
}

func TestBreakdown(t *testing.T) {
	recs := []model.Record{
		{Vehicle: "A", Cost: "1000", Distance: "10", Status: model.StatusDelivered},
		{Vehicle: "A", Cost: "3000", Distance: "10", Status: model.StatusCancelled},
		{Vehicle: "B", Cost: "500"},
	}
	var buf bytes.Buffer
	require.NoError(t, newRenderer(&buf).Breakdown(aggregate.ByVehicle(recs), aggregate.Aggregate(recs)))
	out := buf.String()
	assert.Contains(t, out, "2,000.00")
	assert.Contains(t, out, "4,500.00")
	assert.Contains(t, out, "TOTAL")
}

func TestBadge(t *testing.T) {
	assert.Equal(t, model.StatusCancelled, Badge(model.StatusCancelled))
	assert.Equal(t, "-", Badge(""))
	assert.Equal(t, "other", Badge("other"))
}

func TestNavigation(t *testing.T) {
	v := state.View{Page: 4, TotalPages: 9, Pages: []int{2, 3, 4, 5, 6}}
	assert.Equal(t, "page 4/9  2 3 [4] 5 6", Navigation(v))
}
