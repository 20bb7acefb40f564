// Package report renders a processed deal batch as a console report.
package report

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/shopspring/decimal"

	"github.com/warp/revenue-engine/deals"
	"github.com/warp/revenue-engine/generic"
)

// Report is the view model the console template renders.
type Report struct {
	Title     string
	DecayRate decimal.Decimal
	Mode      deals.DecayMode
	Deals     []DealLine
	Quarters  []QuarterLine
	Series    []deals.SeriesPoint
	Total     decimal.Decimal
	Peak      *deals.SeriesPoint
	Cutoff    *deals.SeriesPoint
	Failed    int
}

type DealLine struct {
	ID          generic.DealID
	Customer    string
	Quarter     string
	FirstYear   decimal.Decimal
	Breakpoints []deals.Breakpoint
	Err         error
}

type QuarterLine struct {
	Quarter string
	Deals   int
}

// Options controls what Build puts in the report.
type Options struct {
	Title  string
	Period generic.Period
	// Cutoff marks a reporting month whose total is called out separately.
	Cutoff *generic.Month
}

// Build turns a processed batch into a report.
func Build(batch deals.Batch, builder *deals.ScheduleBuilder, opts Options) *Report {
	r := &Report{
		Title:     opts.Title,
		DecayRate: builder.DecayRate,
		Mode:      builder.Mode,
	}
	if r.Title == "" {
		r.Title = "Revenue report"
	}
	if r.Mode == "" {
		r.Mode = deals.DecayProjected
	}

	for _, res := range batch.Results {
		line := DealLine{
			ID:       res.Deal.ID,
			Customer: res.Deal.Customer,
			Quarter:  res.Deal.BookingQuarter(),
			Err:      res.Err,
		}
		if res.Err == nil {
			line.FirstYear = res.Schedule.FirstYearMonthlyRevenue
			line.Breakpoints = res.Schedule.Breakpoints
		} else {
			r.Failed++
		}
		r.Deals = append(r.Deals, line)
	}

	groups := deals.GroupByQuarter(batch.Deals())
	for _, q := range deals.Quarters(groups) {
		r.Quarters = append(r.Quarters, QuarterLine{Quarter: q, Deals: len(groups[q])})
	}

	series := batch.Series.Within(opts.Period)
	r.Series = series.Points()
	r.Total = series.Total()
	if peak, ok := series.Peak(); ok {
		r.Peak = &peak
	}
	if opts.Cutoff != nil {
		r.Cutoff = &deals.SeriesPoint{Month: *opts.Cutoff, Total: series[*opts.Cutoff]}
	}
	return r
}

// Reporter outputs reports to the console in a formatted text form
type Reporter struct {
	writer io.Writer
}

// NewReporter creates a new console reporter
func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

const reportTemplate = `{{.Title}}
Decay: {{.DecayRate}} per year ({{.Mode}})

=== Deals ({{len .Deals}}, {{.Failed}} failed) ===
{{range .Deals}}- {{.ID}}{{if .Customer}} [{{.Customer}}]{{end}} {{.Quarter}}
{{- if .Err}}
  ERROR: {{.Err}}
{{- else}}
  first year monthly: {{money .FirstYear}}
{{- range .Breakpoints}}
  {{.At}}  {{money .Value}}
{{- end}}
{{- end}}
{{end}}
=== Bookings by quarter ===
{{range .Quarters}}{{.Quarter}}: {{.Deals}}
{{end}}
=== Total monthly revenue ===
{{range .Series}}{{.Month}}  {{money .Total}}
{{end}}
Total: {{money .Total}}
{{- with .Peak}}
Peak:  {{.Month}} {{money .Total}}
{{- end}}
{{- with .Cutoff}}
Cutoff {{.Month}}: {{money .Total}}
{{- end}}
`

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}

func (c *Reporter) Handle(report *Report) error {
	t, err := template.New("report").Funcs(funcs).Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, report)
}
