// Package report renders analytics reports for people: locale-aware amounts,
// dates and percentages, laid out as titled tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/MrJamesThe3rd/fisly/internal/analytics"
)

// Formatter formats values for one locale and currency. It is safe for
// concurrent use.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
	unit    currency.Unit
	layout  string
}

// NewFormatter returns a formatter for a BCP 47 locale such as "tr-TR" and an
// ISO 4217 currency code such as "TRY".
func NewFormatter(locale, currencyCode string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parsing locale %q: %w", locale, err)
	}

	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("parsing currency %q: %w", currencyCode, err)
	}

	layout := "2006-01-02"
	if base, _ := tag.Base(); base.String() == "tr" {
		layout = "02.01.2006"
	}

	return &Formatter{
		tag:     tag,
		printer: message.NewPrinter(tag),
		unit:    unit,
		layout:  layout,
	}, nil
}

// Money formats an amount with two decimals, locale grouping and the
// currency symbol, e.g. "1.234,56 ₺" for tr-TR.
func (f *Formatter) Money(d decimal.Decimal) string {
	amount := f.printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
	symbol := f.printer.Sprint(currency.NarrowSymbol(f.unit))

	return amount + " " + symbol
}

// Percent formats a percentage that is already scaled to 0..100.
func (f *Formatter) Percent(d decimal.Decimal) string {
	return f.printer.Sprint(number.Decimal(d.Round(1).InexactFloat64(), number.Scale(1))) + "%"
}

func (f *Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Format(f.layout)
}

// Table is one titled section of a rendered report.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Tables lays out every view of rep as a table, in a fixed order: summary,
// categories, merchants, trend.
func (f *Formatter) Tables(rep analytics.Report) []Table {
	summary := Table{
		Title:   "Summary",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Period", f.period(rep.Filter)},
			{"Receipts", strconv.Itoa(rep.Summary.Count)},
			{"Items", strconv.Itoa(rep.Summary.Items)},
			{"Total", f.Money(rep.Summary.Total)},
			{"Average", f.Money(rep.Summary.Average)},
		},
	}

	categories := Table{Title: "Categories", Headers: []string{"Category", "Items", "Total", "Share"}}
	for _, c := range rep.Breakdown.Categories {
		categories.Rows = append(categories.Rows, []string{
			c.Name,
			strconv.Itoa(c.Items),
			f.Money(c.Total),
			f.Percent(c.Percentage),
		})
	}

	merchants := Table{Title: "Merchants", Headers: []string{"#", "Merchant", "Visits", "Total"}}
	for i, m := range rep.Ranking {
		merchants.Rows = append(merchants.Rows, []string{
			strconv.Itoa(i + 1),
			m.Name,
			strconv.Itoa(m.Visits),
			f.Money(m.Total),
		})
	}

	trend := Table{Title: "Trend", Headers: []string{"Period", "Receipts", "Total"}}
	for _, p := range rep.Trend {
		trend.Rows = append(trend.Rows, []string{p.Label, strconv.Itoa(p.Count), f.Money(p.Total)})
	}

	return []Table{summary, categories, merchants, trend}
}

// WriteText writes rep as aligned plain text.
func (f *Formatter) WriteText(w io.Writer, rep analytics.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for i, t := range f.Tables(rep) {
		if i > 0 {
			fmt.Fprintln(tw)
		}

		fmt.Fprintf(tw, "%s\n", strings.ToUpper(t.Title))
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))

		if len(t.Rows) == 0 {
			fmt.Fprintln(tw, "(none)")

			continue
		}

		for _, row := range t.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	return nil
}

func (f *Formatter) period(filter analytics.Filter) string {
	var start, end string
	if filter.Start != nil {
		start = f.Date(*filter.Start)
	}

	if filter.End != nil {
		end = f.Date(*filter.End)
	}

	switch {
	case start == "" && end == "":
		return "all time"
	case end == "":
		return "since " + start
	case start == "":
		return "until " + end
	default:
		return start + " - " + end
	}
}
