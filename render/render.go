// Package render draws the dashboard for a terminal.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dk0164/TMS-MONITOR/core/aggregate"
	"github.com/dk0164/TMS-MONITOR/core/dates"
	"github.com/dk0164/TMS-MONITOR/core/model"
	"github.com/dk0164/TMS-MONITOR/core/state"
)

// LoadingText is shown while nothing has been loaded yet.
const LoadingText = "กำลังโหลดข้อมูล..."

// Renderer writes dashboard views to w.
type Renderer struct {
	w   io.Writer
	p   *message.Printer
	now func() time.Time
}

// New returns a Renderer writing to w. Numbers use Thai grouping.
func New(w io.Writer) *Renderer {
	return &Renderer{w: w, p: message.NewPrinter(language.Thai), now: time.Now}
}

// Dashboard writes the header, summary, current page and page navigation.
func (r *Renderer) Dashboard(st state.State) error {
	if st.Blocking() {
		_, err := fmt.Fprintln(r.w, LoadingText)
		return err
	}
	v := state.Derive(st)
	var b strings.Builder
	b.WriteString(color.New(color.Bold).Sprint("TMS Monitor"))
	if !st.LastSync.IsZero() {
		fmt.Fprintf(&b, "  updated %s", humanize.RelTime(st.LastSync, r.now(), "ago", "from now"))
	}
	if st.Refreshing {
		b.WriteString(color.New(color.FgHiBlack).Sprint("  refreshing..."))
	}
	b.WriteByte('\n')
	if st.Notice != "" {
		b.WriteString(color.New(color.FgRed).Sprint("! "+st.Notice) + "\n")
	}
	b.WriteString(r.summaryLine(v.Summary) + "\n\n")
	if _, err := io.WriteString(r.w, b.String()); err != nil {
		return err
	}
	if err := r.Table(v.Rows); err != nil {
		return err
	}
	_, err := fmt.Fprintln(r.w, "\n"+Navigation(v))
	return err
}

// Summary writes the summary line alone.
func (r *Renderer) Summary(s aggregate.Summary) error {
	_, err := fmt.Fprintln(r.w, r.summaryLine(s))
	return err
}

func (r *Renderer) summaryLine(s aggregate.Summary) string {
	return r.p.Sprintf("Trips %d   Distance %.1f km   Cost %.2f   Delivered %s   Cancelled %s",
		s.Count, s.TotalDistance, s.TotalCost,
		color.New(color.FgGreen).Sprint(r.p.Sprintf("%d", s.Delivered)),
		color.New(color.FgRed).Sprint(r.p.Sprintf("%d", s.Cancelled)))
}

// Table writes rows as an aligned table. Dates go through dates.Display and
// missing cells show as "-".
func (r *Renderer) Table(rows []model.Record) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(r.w, "no records")
		return err
	}
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDED\tVEHICLE\tCUSTOMER\tLOCATION\tREQUESTED\tWINDOW\tKM\tCOST\tSTATUS")
	for _, rec := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			dates.Display(rec.RecordedAt),
			cell(rec.Vehicle),
			cell(rec.Customer),
			cell(rec.Location),
			dates.Display(rec.RequestedDate),
			cell(rec.TimeWindow),
			cell(rec.Distance),
			cell(rec.Cost),
			Badge(rec.Status),
		)
	}
	return tw.Flush()
}

// Breakdown writes per-vehicle totals followed by a grand total.
func (r *Renderer) Breakdown(rows []aggregate.Breakdown, total aggregate.Summary) error {
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "VEHICLE\tTRIPS\tKM\tCOST\tMEAN COST\tSTDDEV\tDELIVERED\tCANCELLED\t")
	for _, b := range rows {
		fmt.Fprint(tw, r.p.Sprintf("%s\t%d\t%.1f\t%.2f\t%.2f\t%.2f\t%d\t%d\t\n",
			cell(b.Vehicle), b.Count, b.TotalDistance, b.TotalCost, b.MeanCost, b.StdDevCost, b.Delivered, b.Cancelled))
	}
	fmt.Fprint(tw, r.p.Sprintf("TOTAL\t%d\t%.1f\t%.2f\t\t\t%d\t%d\t\n",
		total.Count, total.TotalDistance, total.TotalCost, total.Delivered, total.Cancelled))
	return tw.Flush()
}

// Badge colours a delivery status.
func Badge(status string) string {
	switch status {
	case model.StatusDelivered:
		return color.New(color.FgGreen).Sprint(status)
	case model.StatusCancelled:
		return color.New(color.FgRed).Sprint(status)
	case model.StatusInTransit:
		return color.New(color.FgYellow).Sprint(status)
	case model.StatusPending, model.StatusPlanned:
		return color.New(color.FgCyan).Sprint(status)
	case "":
		return "-"
	}
	return status
}

// Navigation renders the page window with the current page bracketed.
func Navigation(v state.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "page %d/%d  ", v.Page, v.TotalPages)
	for i, p := range v.Pages {
		if i > 0 {
			b.WriteByte(' ')
		}
		if p == v.Page {
			b.WriteString("[" + strconv.Itoa(p) + "]")
		} else {
			b.WriteString(strconv.Itoa(p))
		}
	}
	return b.String()
}

func cell(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
