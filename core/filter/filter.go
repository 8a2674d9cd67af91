// Package filter selects the delivery records matching the active dashboard
// filters.
package filter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dk0164/TMS-MONITOR/core/dates"
	"github.com/dk0164/TMS-MONITOR/core/model"
)

// Any is the selector value that matches every record.
const Any = "all"

// Predicates is the active filter state. Zero values are unrestricted.
type Predicates struct {
	Start    time.Time // inclusive, zero means no lower bound
	End      time.Time // inclusive, zero means no upper bound
	Vehicle  string
	Customer string
	Status   string
}

// Unrestricted returns predicates that let every record through.
func Unrestricted() Predicates {
	return Predicates{Vehicle: Any, Customer: Any, Status: Any}
}

// Match reports whether rec passes every predicate.
func (p Predicates) Match(rec model.Record) bool {
	if !p.Start.IsZero() || !p.End.IsZero() {
		d, ok := dates.Parse(rec.RecordedAt)
		if !ok {
			return false
		}
		if !p.Start.IsZero() && d.Before(p.Start) {
			return false
		}
		if !p.End.IsZero() && d.After(p.End) {
			return false
		}
	}
	return selected(p.Vehicle, rec.Vehicle) &&
		selected(p.Customer, rec.Customer) &&
		selected(p.Status, rec.Status)
}

func selected(sel, v string) bool {
	return sel == "" || sel == Any || sel == v
}

// Apply returns the records matching p in their original order. The input
// slice is never modified.
func Apply(records []model.Record, p Predicates) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if p.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Validate reports selectors whose value is not offered by vocab. Such
// selectors still filter, they just cannot have come from the option lists.
// An empty option list has not been loaded yet and accepts any value.
func (p Predicates) Validate(vocab model.Vocabulary) error {
	check := func(name, sel string, opts []string) error {
		if sel == "" || sel == Any || len(opts) == 0 || slices.Contains(opts, sel) {
			return nil
		}
		return fmt.Errorf("%s %q is not in the filter vocabulary", name, sel)
	}
	if err := check("vehicle", p.Vehicle, vocab.Cars); err != nil {
		return err
	}
	if err := check("customer", p.Customer, vocab.Customers); err != nil {
		return err
	}
	if err := check("status", p.Status, vocab.Statuses); err != nil {
		return err
	}
	if !p.Start.IsZero() && !p.End.IsZero() && p.End.Before(p.Start) {
		return fmt.Errorf("end date %s is before start date %s", p.End.Format(dates.BoundLayout), p.Start.Format(dates.BoundLayout))
	}
	return nil
}

// Selection is the textual form of the predicates as typed on a command line
// or passed in a query string. Dates use YYYY-MM-DD.
type Selection struct {
	Start    string
	End      string
	Vehicle  string
	Customer string
	Status   string
}

// Predicates converts the selection. Empty selectors become Any; a malformed
// date is an error.
func (s Selection) Predicates() (Predicates, error) {
	p := Unrestricted()
	for _, b := range []struct {
		name string
		in   string
		out  *time.Time
	}{{"start", s.Start, &p.Start}, {"end", s.End, &p.End}} {
		if strings.TrimSpace(b.in) == "" {
			continue
		}
		t, ok := dates.ParseBound(b.in)
		if !ok {
			return Predicates{}, fmt.Errorf("%s date %q: want %s", b.name, b.in, dates.BoundLayout)
		}
		*b.out = t
	}
	if s.Vehicle != "" {
		p.Vehicle = s.Vehicle
	}
	if s.Customer != "" {
		p.Customer = s.Customer
	}
	if s.Status != "" {
		p.Status = s.Status
	}
	return p, nil
}
