package analytics

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fisly/internal/receipt"
	"github.com/MrJamesThe3rd/fisly/internal/taxonomy"
)

var (
	hundred = decimal.NewFromInt(100)
	cent    = decimal.New(1, -2)
)

// Aggregator computes reports. It only reads the receipts it is given.
type Aggregator struct {
	tax *taxonomy.Taxonomy
	loc *time.Location
}

// NewAggregator returns an aggregator that names categories from tax and
// buckets dates in loc. Both may be nil; periods then fall on UTC boundaries.
func NewAggregator(tax *taxonomy.Taxonomy, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}

	return &Aggregator{tax: tax, loc: loc}
}

// Aggregate computes the summary, category breakdown, merchant ranking and
// trend of the receipts selected by f. Failed receipts are ignored.
func (a *Aggregator) Aggregate(f Filter, receipts []*receipt.Receipt) Report {
	if f.Period == "" {
		f.Period = PeriodMonth
	}

	included := make([]*receipt.Receipt, 0, len(receipts))
	for _, r := range receipts {
		if a.includes(f, r) {
			included = append(included, r)
		}
	}

	return Report{
		Filter:    f,
		Summary:   a.summary(f, included),
		Breakdown: a.breakdown(f, included),
		Ranking:   ranking(included),
		Trend:     a.trend(f, included),
	}
}

func (a *Aggregator) includes(f Filter, r *receipt.Receipt) bool {
	if r.Status == receipt.StatusFailed {
		return false
	}

	if f.Start != nil && r.Date.Before(*f.Start) {
		return false
	}

	if f.End != nil && r.Date.After(*f.End) {
		return false
	}

	if f.MerchantID != nil && (r.MerchantID == nil || *r.MerchantID != *f.MerchantID) {
		return false
	}

	if f.CategoryID != nil {
		return slices.ContainsFunc(r.Items, func(li *receipt.LineItem) bool {
			return inCategory(li, *f.CategoryID)
		})
	}

	return true
}

func inCategory(li *receipt.LineItem, id string) bool {
	c := li.Classification

	return c.DepartmentID == id || c.CategoryID == id || c.SubcategoryID == id || c.ItemGroupID == id
}

// items returns the line items of rs that count toward f.
func items(f Filter, rs []*receipt.Receipt) []*receipt.LineItem {
	var out []*receipt.LineItem

	for _, r := range rs {
		for _, li := range r.Items {
			if f.CategoryID != nil && !inCategory(li, *f.CategoryID) {
				continue
			}

			out = append(out, li)
		}
	}

	return out
}

func (a *Aggregator) summary(f Filter, rs []*receipt.Receipt) Summary {
	s := Summary{Total: decimal.Zero, Average: decimal.Zero, Count: len(rs)}

	for _, r := range rs {
		s.Total = s.Total.Add(r.Total)
	}

	if s.Count > 0 {
		s.Average = s.Total.Div(decimal.NewFromInt(int64(s.Count))).Round(2)
	}

	s.Items = len(items(f, rs))

	return s
}

func (a *Aggregator) breakdown(f Filter, rs []*receipt.Receipt) Breakdown {
	byCategory := make(map[string]*CategoryShare)

	for _, li := range items(f, rs) {
		id := li.Category()

		share, ok := byCategory[id]
		if !ok {
			share = &CategoryShare{CategoryID: id, Name: a.name(id), Total: decimal.Zero}
			byCategory[id] = share
		}

		share.Total = share.Total.Add(li.Net())
		share.Items++
	}

	b := Breakdown{Total: decimal.Zero, Categories: make([]CategoryShare, 0, len(byCategory))}

	for _, share := range byCategory {
		b.Total = b.Total.Add(share.Total)
		b.Categories = append(b.Categories, *share)
	}

	slices.SortFunc(b.Categories, func(x, y CategoryShare) int {
		if c := y.Total.Cmp(x.Total); c != 0 {
			return c
		}

		return cmp.Compare(x.CategoryID, y.CategoryID)
	})

	amounts := make([]decimal.Decimal, len(b.Categories))
	for i, c := range b.Categories {
		amounts[i] = c.Total
	}

	for i, p := range percentages(amounts, b.Total) {
		b.Categories[i].Percentage = p
	}

	return b
}

func (a *Aggregator) name(id string) string {
	if a.tax == nil {
		return id
	}

	if n, ok := a.tax.Node(id); ok {
		return n.Name
	}

	return id
}

// percentages splits 100 across amounts in hundredths using the largest
// remainder method, so the parts always add up to exactly 100. A zero total
// yields all zeros.
func percentages(amounts []decimal.Decimal, total decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(amounts))
	for i := range out {
		out[i] = decimal.Zero
	}

	if total.IsZero() {
		return out
	}

	remainders := make([]decimal.Decimal, len(amounts))
	sum := decimal.Zero

	for i, amount := range amounts {
		raw := amount.Mul(hundred).Div(total)
		out[i] = raw.RoundFloor(2)
		remainders[i] = raw.Sub(out[i])
		sum = sum.Add(out[i])
	}

	order := make([]int, len(amounts))
	for i := range order {
		order[i] = i
	}

	slices.SortStableFunc(order, func(x, y int) int {
		return remainders[y].Cmp(remainders[x])
	})

	missing := int(hundred.Sub(sum).Div(cent).IntPart())
	for k := 0; k < missing && k < len(order); k++ {
		out[order[k]] = out[order[k]].Add(cent)
	}

	return out
}

func ranking(rs []*receipt.Receipt) []MerchantRank {
	byKey := make(map[string]*MerchantRank)

	for _, r := range rs {
		key := UnknownMerchantKey
		if r.MerchantID != nil {
			key = r.MerchantID.String()
		}

		rank, ok := byKey[key]
		if !ok {
			rank = &MerchantRank{Key: key, MerchantID: r.MerchantID, Name: receipt.UnknownMerchant, Total: decimal.Zero}
			byKey[key] = rank
		}

		rank.Total = rank.Total.Add(r.Total)
		rank.Visits++

		if r.MerchantID != nil {
			rank.Name = r.MerchantName
		}
	}

	out := make([]MerchantRank, 0, len(byKey))
	for _, rank := range byKey {
		out = append(out, *rank)
	}

	slices.SortFunc(out, func(x, y MerchantRank) int {
		if c := y.Total.Cmp(x.Total); c != 0 {
			return c
		}

		if c := cmp.Compare(y.Visits, x.Visits); c != 0 {
			return c
		}

		return cmp.Compare(x.Key, y.Key)
	})

	return out
}

// trend emits one point per period from the start of the range to its end,
// zero-filled. Without an explicit range it spans the receipts' dates;
// undated receipts fall outside every period.
func (a *Aggregator) trend(f Filter, rs []*receipt.Receipt) []TrendPoint {
	start, end, ok := a.bounds(f, rs)
	if !ok {
		return []TrendPoint{}
	}

	var points []TrendPoint

	index := make(map[int64]int)

	for p := a.floor(f.Period, start); !p.After(end); p = next(f.Period, p) {
		index[p.Unix()] = len(points)
		points = append(points, TrendPoint{Label: label(f.Period, p), Start: p, Total: decimal.Zero})
	}

	for _, r := range rs {
		i, ok := index[a.floor(f.Period, r.Date).Unix()]
		if !ok {
			continue
		}

		points[i].Total = points[i].Total.Add(r.Total)
		points[i].Count++
	}

	return points
}

// bounds returns the trend range: the explicit filter bounds, each falling
// back to the earliest or latest dated receipt.
func (a *Aggregator) bounds(f Filter, rs []*receipt.Receipt) (time.Time, time.Time, bool) {
	start, end := f.Start, f.End

	for _, r := range rs {
		if r.Date.IsZero() {
			continue
		}

		if f.Start == nil && (start == nil || r.Date.Before(*start)) {
			start = &r.Date
		}

		if f.End == nil && (end == nil || r.Date.After(*end)) {
			end = &r.Date
		}
	}

	if end == nil {
		end = start
	}

	if start == nil {
		start = end
	}

	if start == nil || end.Before(*start) {
		return time.Time{}, time.Time{}, false
	}

	return *start, *end, true
}

// floor returns the start of the period containing t. Weeks start on Monday.
func (a *Aggregator) floor(p Period, t time.Time) time.Time {
	t = t.In(a.loc)
	y, m, d := t.Date()

	switch p {
	case PeriodDay:
		return time.Date(y, m, d, 0, 0, 0, 0, a.loc)
	case PeriodWeek:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, a.loc)
	case PeriodYear:
		return time.Date(y, 1, 1, 0, 0, 0, 0, a.loc)
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, a.loc)
	}
}

func next(p Period, t time.Time) time.Time {
	switch p {
	case PeriodDay:
		return t.AddDate(0, 0, 1)
	case PeriodWeek:
		return t.AddDate(0, 0, 7)
	case PeriodYear:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

func label(p Period, t time.Time) string {
	switch p {
	case PeriodDay:
		return t.Format(time.DateOnly)
	case PeriodWeek:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case PeriodYear:
		return t.Format("2006")
	default:
		return t.Format("2006-01")
	}
}
