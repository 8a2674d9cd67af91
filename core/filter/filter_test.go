package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dk0164/TMS-MONITOR/core/dates"
	"github.com/dk0164/TMS-MONITOR/core/model"
)

func sample() []model.Record {
	return []model.Record{
		{RecordedAt: "10/ม.ค./2026", Vehicle: "A", Customer: "acme", Status: model.StatusDelivered},
		{RecordedAt: "11/ม.ค./2026", Vehicle: "B", Customer: "acme", Status: model.StatusCancelled},
		{RecordedAt: "2026-01-12T09:00:00", Vehicle: "A", Customer: "globex", Status: model.StatusPending},
		{RecordedAt: "garbage", Vehicle: "A", Customer: "acme", Status: model.StatusDelivered},
		{RecordedAt: "13/1/2026", Vehicle: "a", Customer: "Acme", Status: model.StatusDelivered},
	}
}

func bound(s string) time.Time {
	t, _ := dates.ParseBound(s)
	return t
}

func TestApply(t *testing.T) {
	recs := sample()
	cases := []struct {
		name string
		p    Predicates
		want []int
	}{
		{"unrestricted", Unrestricted(), []int{0, 1, 2, 3, 4}},
		{"zero value", Predicates{}, []int{0, 1, 2, 3, 4}},
		{"vehicle exact", Predicates{Vehicle: "A", Customer: Any, Status: Any}, []int{0, 2, 3}},
		{"case sensitive customer", Predicates{Customer: "Acme"}, []int{4}},
		{"status", Predicates{Status: model.StatusDelivered}, []int{0, 3, 4}},
		{"start inclusive", Predicates{Start: bound("2026-01-11")}, []int{1, 2, 4}},
		{"end inclusive", Predicates{End: bound("2026-01-11")}, []int{0, 1}},
		{"range", Predicates{Start: bound("2026-01-11"), End: bound("2026-01-12")}, []int{1, 2}},
		{"conjunction", Predicates{Start: bound("2026-01-10"), Vehicle: "A", Status: model.StatusDelivered}, []int{0}},
		{"unknown value", Predicates{Vehicle: "Z"}, []int{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Apply(recs, c.p)
			want := make([]model.Record, 0, len(c.want))
			for _, i := range c.want {
				want = append(want, recs[i])
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestApply_StartAfterAllDates(t *testing.T) {
	p := Unrestricted()
	p.Start = bound("2027-01-01")
	assert.Empty(t, Apply(sample(), p))
	p.Vehicle = "A"
	assert.Empty(t, Apply(sample(), p))
}

func TestApply_SubsetAndIdempotent(t *testing.T) {
	recs := sample()
	preds := []Predicates{
		Unrestricted(),
		{Vehicle: "A"},
		{Start: bound("2026-01-11"), Status: model.StatusDelivered},
		{End: bound("2026-01-10"), Customer: "acme"},
	}
	for _, p := range preds {
		once := Apply(recs, p)
		for _, r := range once {
			assert.Contains(t, recs, r)
		}
		assert.Equal(t, once, Apply(once, p))
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	recs := sample()
	before := append([]model.Record(nil), recs...)
	_ = Apply(recs, Predicates{Vehicle: "B"})
	assert.Equal(t, before, recs)
}

func TestValidate(t *testing.T) {
	vocab := model.Vocabulary{Cars: []string{"A", "B"}, Customers: []string{"acme"}, Statuses: []string{model.StatusDelivered}}
	assert.NoError(t, Unrestricted().Validate(vocab))
	assert.NoError(t, Predicates{Vehicle: "A", Customer: "acme"}.Validate(vocab))
	assert.Error(t, Predicates{Vehicle: "C"}.Validate(vocab))
	assert.Error(t, Predicates{Status: "x"}.Validate(vocab))
	assert.Error(t, Predicates{Start: bound("2026-02-01"), End: bound("2026-01-01")}.Validate(vocab))
	assert.NoError(t, Predicates{Vehicle: "C"}.Validate(model.Vocabulary{}))
}

func TestSelectionPredicates(t *testing.T) {
	p, err := Selection{}.Predicates()
	require.NoError(t, err)
	assert.Equal(t, Unrestricted(), p)

	p, err = Selection{Start: "2024-01-02", End: "2024-01-31", Vehicle: "1กข-1234"}.Predicates()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, dates.Zone), p.Start)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, dates.Zone), p.End)
	assert.Equal(t, "1กข-1234", p.Vehicle)
	assert.Equal(t, Any, p.Customer)
	assert.Equal(t, Any, p.Status)

	_, err = Selection{End: "31/01/2024"}.Predicates()
	assert.ErrorContains(t, err, "end date")
}
