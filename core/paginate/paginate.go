// Package paginate slices the filtered record set into pages. Pages show
// the most recently returned records first: the source order is reversed,
// no date sort is applied.
package paginate

import "github.com/dk0164/TMS-MONITOR/core/model"

// DefaultPageSize is the number of rows per page.
const DefaultPageSize = 10

// DefaultWindow is the number of page buttons shown at once.
const DefaultWindow = 5

// TotalPages returns ceil(n/size), never less than 1.
func TotalPages(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Clamp keeps page within [1, total].
func Clamp(page, total int) int {
	if total < 1 {
		total = 1
	}
	if page > total {
		return total
	}
	if page < 1 {
		return 1
	}
	return page
}

// Paginate returns page (1-based) of the reversed records. Pages beyond the
// range are empty. The returned slice is a fresh copy.
func Paginate(records []model.Record, page, size int) []model.Record {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		return []model.Record{}
	}
	offset := (page - 1) * size
	if offset >= len(records) {
		return []model.Record{}
	}
	n := min(size, len(records)-offset)
	out := make([]model.Record, 0, n)
	// index i of the reversed view is len-1-i of the source order
	for i := offset; i < offset+n; i++ {
		out = append(out, records[len(records)-1-i])
	}
	return out
}

// Window returns the page numbers for the navigation buttons: at most width
// pages around page, clamped to [1, total].
func Window(page, total, width int) []int {
	if width <= 0 {
		width = DefaultWindow
	}
	total = max(total, 1)
	page = Clamp(page, total)
	first := page - width/2
	last := first + width - 1
	if last > total {
		last = total
		first = last - width + 1
	}
	if first < 1 {
		first = 1
		last = min(total, first+width-1)
	}
	out := make([]int, 0, last-first+1)
	for p := first; p <= last; p++ {
		out = append(out, p)
	}
	return out
}
