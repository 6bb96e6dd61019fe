// Package analytics derives spending reports from a snapshot of receipts.
// Reports are recomputed on demand and never stored.
package analytics

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidInput = errors.New("invalid analytics input")

// MaxTrendPoints bounds the number of periods one report may span.
const MaxTrendPoints = 3660

// UnknownMerchantKey groups receipts whose merchant was not resolved.
const UnknownMerchantKey = "unknown"

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	default:
		return false
	}
}

// Filter selects the receipts a report covers. Start and End are inclusive.
// CategoryID matches any taxonomy level of a line item.
type Filter struct {
	Period     Period
	Start      *time.Time
	End        *time.Time
	MerchantID *uuid.UUID
	CategoryID *string
}

func (f Filter) Validate() error {
	if f.Period != "" && !f.Period.Valid() {
		return fmt.Errorf("unknown period %q: %w", f.Period, ErrInvalidInput)
	}

	if f.Start != nil && f.End != nil {
		if f.End.Before(*f.Start) {
			return fmt.Errorf("end is before start: %w", ErrInvalidInput)
		}

		if err := checkSpan(f.Period, *f.Start, *f.End); err != nil {
			return err
		}
	}

	return nil
}

func checkSpan(p Period, start, end time.Time) error {
	if n := periodCount(p, start, end); n > MaxTrendPoints {
		return fmt.Errorf("range spans %d %s periods, at most %d allowed: %w", n, p.orDefault(), MaxTrendPoints, ErrInvalidInput)
	}

	return nil
}

func (p Period) orDefault() Period {
	if p == "" {
		return PeriodMonth
	}

	return p
}

// periodCount is an upper bound on the trend points between start and end.
// Durations saturate past about 292 years, which still exceeds MaxTrendPoints.
func periodCount(p Period, start, end time.Time) int {
	switch p.orDefault() {
	case PeriodDay:
		return int(end.Sub(start).Hours()/24) + 2
	case PeriodWeek:
		return int(end.Sub(start).Hours()/(24*7)) + 2
	case PeriodYear:
		return end.Year() - start.Year() + 1
	default:
		return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
	}
}

type Summary struct {
	Total   decimal.Decimal
	Count   int
	Average decimal.Decimal
	Items   int
}

type CategoryShare struct {
	CategoryID string
	Name       string
	Total      decimal.Decimal
	Percentage decimal.Decimal
	Items      int
}

type Breakdown struct {
	Total      decimal.Decimal
	Categories []CategoryShare
}

type MerchantRank struct {
	Key        string
	MerchantID *uuid.UUID
	Name       string
	Total      decimal.Decimal
	Visits     int
}

type TrendPoint struct {
	Label string
	Start time.Time
	Total decimal.Decimal
	Count int
}

// Report holds every view computed from one snapshot.
type Report struct {
	Filter    Filter
	Summary   Summary
	Breakdown Breakdown
	Ranking   []MerchantRank
	Trend     []TrendPoint
}
