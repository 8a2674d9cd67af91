// Package dates normalises the free-form date strings found in delivery
// records. Every parsed value is reduced to midnight of its calendar day in
// Zone so that inclusive day bounds compare as expected.
package dates

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Zone is the calendar used for day boundaries and display. Thailand does not
// observe daylight saving so a fixed offset is exact.
var Zone = time.FixedZone("ICT", 7*60*60)

// Months holds the Thai month abbreviations, January first.
var Months = [12]string{
	"ม.ค.", "ก.พ.", "มี.ค.", "เม.ย.", "พ.ค.", "มิ.ย.",
	"ก.ค.", "ส.ค.", "ก.ย.", "ต.ค.", "พ.ย.", "ธ.ค.",
}

// BoundLayout is the layout of user supplied start and end dates.
const BoundLayout = "2006-01-02"

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parse converts s to a calendar day. The second result is false when s is
// not a recognisable date.
func Parse(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if parts := strings.Split(s, "/"); len(parts) == 3 {
		return parseSlashed(parts)
	}
	return parseMachine(s)
}

// ParseBound parses a YYYY-MM-DD filter bound.
func ParseBound(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(BoundLayout, s, Zone)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Format renders t as day/month/year using the Thai month table.
func Format(t time.Time) string {
	t = t.In(Zone)
	return strconv.Itoa(t.Day()) + "/" + Months[t.Month()-1] + "/" + strconv.Itoa(t.Year())
}

// Display renders any date string for a table cell. It never fails: values
// that cannot be parsed are cut before the first space and the first 'T'.
func Display(s string) string {
	if s == "" {
		return "-"
	}
	if t, ok := Parse(s); ok {
		return Format(t)
	}
	head := s
	if i := strings.IndexByte(head, ' '); i >= 0 {
		head = head[:i]
	}
	if i := strings.IndexByte(head, 'T'); i >= 0 {
		head = head[:i]
	}
	if head == "" {
		return s
	}
	return head
}

func parseSlashed(parts []string) (time.Time, bool) {
	month := -1
	for i, name := range Months {
		if parts[1] == name {
			month = i
			break
		}
	}
	if month < 0 {
		n, ok := leadingInt(parts[1])
		if !ok {
			return time.Time{}, false
		}
		month = n - 1
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, false
	}
	if year >= 0 && year <= 99 {
		year += 1900
	}
	// time.Date normalises out of range months and days.
	return time.Date(year, time.Month(month+1), day, 0, 0, 0, 0, Zone), true
}

func parseMachine(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return midnight(t), true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, Zone); err == nil {
			return midnight(t), true
		}
	}
	return time.Time{}, false
}

func midnight(t time.Time) time.Time {
	t = t.In(Zone)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Zone)
}

// leadingInt reads an optionally signed run of digits after leading
// whitespace, ignoring whatever follows.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
