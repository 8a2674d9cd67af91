// Package aggregate folds a filtered record set into dashboard counters.
package aggregate

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/dk0164/TMS-MONITOR/core/model"
)

// Summary holds the counters shown above the delivery table.
type Summary struct {
	Count         int     `json:"count" yaml:"count"`
	TotalDistance float64 `json:"total_distance_km" yaml:"total_distance_km"`
	TotalCost     float64 `json:"total_cost" yaml:"total_cost"`
	Delivered     int     `json:"delivered" yaml:"delivered"`
	Cancelled     int     `json:"cancelled" yaml:"cancelled"`
}

// Add folds one record into the summary.
func (s Summary) Add(rec model.Record) Summary {
	s.Count++
	s.TotalDistance += Number(rec.Distance)
	s.TotalCost += Number(rec.Cost)
	switch rec.Status {
	case model.StatusDelivered:
		s.Delivered++
	case model.StatusCancelled:
		s.Cancelled++
	}
	return s
}

// Aggregate summarises records. It must be given the filtered set so the
// counters follow the active filters.
func Aggregate(records []model.Record) Summary {
	var s Summary
	for _, r := range records {
		s = s.Add(r)
	}
	return s
}

// Number reads the longest numeric prefix of s. Anything unreadable counts
// as zero.
func Number(s string) float64 {
	s = strings.TrimSpace(s)
	for end := numericPrefix(s); end > 0; end-- {
		v, err := strconv.ParseFloat(s[:end], 64)
		if errors.Is(err, strconv.ErrRange) {
			return 0
		}
		if err != nil {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}
	return 0
}

// numericPrefix returns the length of the leading run of characters that can
// appear in a decimal float literal.
func numericPrefix(s string) int {
	i := 0
	for i < len(s) {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' {
			i++
			continue
		}
		if (c == '+' || c == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E') {
			i++
			continue
		}
		break
	}
	return i
}
