package aggregate

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/dk0164/TMS-MONITOR/core/model"
)

// Breakdown is the summary of a single vehicle's trips.
type Breakdown struct {
	Vehicle string `json:"vehicle" yaml:"vehicle"`
	Summary `yaml:",inline"`
	// MeanCost is the average cost per trip; StdDevCost is zero for a
	// single trip.
	MeanCost   float64 `json:"mean_cost" yaml:"mean_cost"`
	StdDevCost float64 `json:"stddev_cost" yaml:"stddev_cost"`
}

// ByVehicle groups records by vehicle and summarises each group. The result
// is sorted by vehicle identifier.
func ByVehicle(records []model.Record) []Breakdown {
	sums := map[string]Summary{}
	costs := map[string][]float64{}
	for _, r := range records {
		sums[r.Vehicle] = sums[r.Vehicle].Add(r)
		costs[r.Vehicle] = append(costs[r.Vehicle], Number(r.Cost))
	}
	out := make([]Breakdown, 0, len(sums))
	for v, s := range sums {
		b := Breakdown{Vehicle: v, Summary: s}
		c := costs[v]
		b.MeanCost = stat.Mean(c, nil)
		if len(c) > 1 {
			b.StdDevCost = stat.StdDev(c, nil)
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vehicle < out[j].Vehicle })
	return out
}
