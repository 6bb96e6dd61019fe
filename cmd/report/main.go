package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/MrJamesThe3rd/fisly/internal/analytics"
	"github.com/MrJamesThe3rd/fisly/internal/config"
	"github.com/MrJamesThe3rd/fisly/internal/database"
	"github.com/MrJamesThe3rd/fisly/internal/observability/logging"
	"github.com/MrJamesThe3rd/fisly/internal/receipt"
	receiptStore "github.com/MrJamesThe3rd/fisly/internal/receipt/store"
	"github.com/MrJamesThe3rd/fisly/internal/report"
	"github.com/MrJamesThe3rd/fisly/internal/taxonomy"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).PaddingTop(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

type options struct {
	period   string
	from     string
	to       string
	merchant string
	category string
	format   string
}

func main() {
	fs := ff.NewFlagSet("fisly-report")

	var (
		period   = fs.StringLong("period", "month", "Trend bucket: day, week, month or year")
		from     = fs.StringLong("from", "", "First day to include (YYYY-MM-DD)")
		to       = fs.StringLong("to", "", "Last day to include (YYYY-MM-DD)")
		merchant = fs.StringLong("merchant", "", "Restrict to one merchant id")
		category = fs.StringLong("category", "", "Restrict to one taxonomy node id")
		format   = fs.StringLong("format", "table", "Output format: table or text")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("FISLY")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	opts := options{
		period:   *period,
		from:     *from,
		to:       *to,
		merchant: *merchant,
		category: *category,
		format:   *format,
	}

	if err := run(opts); err != nil {
		slog.Error("report failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(logging.NewJSONLogger(os.Stderr, cfg.App.Name, cfg.App.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	filter, err := buildFilter(opts, loc)
	if err != nil {
		return err
	}

	var tax *taxonomy.Taxonomy
	if cfg.Taxonomy.Path != "" {
		tax, err = taxonomy.LoadFile(cfg.Taxonomy.Path)
	} else {
		tax, err = taxonomy.LoadDefault()
	}

	if err != nil {
		return err
	}

	formatter, err := report.NewFormatter(cfg.Locale.Language, cfg.Locale.Currency)
	if err != nil {
		return err
	}

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	receipts := receipt.NewService(receiptStore.New(db), cfg.Receipt.ReconcileTolerance)
	svc := analytics.NewService(receipts, analytics.NewAggregator(tax, loc))

	rep, err := svc.Report(ctx, filter)
	if err != nil {
		return err
	}

	switch opts.format {
	case "text":
		return formatter.WriteText(os.Stdout, rep)
	case "table":
		fmt.Println(render(formatter.Tables(rep)))
		return nil
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}
}

func buildFilter(opts options, loc *time.Location) (analytics.Filter, error) {
	f := analytics.Filter{Period: analytics.Period(opts.period)}

	if opts.from != "" {
		t, err := time.ParseInLocation(time.DateOnly, opts.from, loc)
		if err != nil {
			return f, fmt.Errorf("parsing --from: %w", err)
		}

		f.Start = &t
	}

	// --to is inclusive, so it ends at the last instant of that day.
	if opts.to != "" {
		t, err := time.ParseInLocation(time.DateOnly, opts.to, loc)
		if err != nil {
			return f, fmt.Errorf("parsing --to: %w", err)
		}

		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		f.End = &end
	}

	if opts.merchant != "" {
		id, err := uuid.Parse(opts.merchant)
		if err != nil {
			return f, fmt.Errorf("parsing merchant id: %w", err)
		}

		f.MerchantID = &id
	}

	if opts.category != "" {
		f.CategoryID = new(opts.category)
	}

	return f, f.Validate()
}

func render(tables []report.Table) string {
	blocks := make([]string, 0, len(tables))

	for _, t := range tables {
		blocks = append(blocks, titleStyle.Render(strings.ToUpper(t.Title)))

		if len(t.Rows) == 0 {
			blocks = append(blocks, faintStyle.Render("(none)"))
			continue
		}

		tbl := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
			Headers(t.Headers...).
			Rows(t.Rows...).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}

				return cellStyle
			})

		blocks = append(blocks, tbl.Render())
	}

	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}
