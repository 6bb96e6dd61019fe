package ocr

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fisly/internal/money"
	"github.com/MrJamesThe3rd/fisly/internal/receipt"
)

// Thresholds are the minimum confidences per field plus the global
// auto-accept bar.
type Thresholds struct {
	Merchant   float64
	Date       float64
	Total      float64
	Items      float64
	AutoAccept float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Merchant:   0.85,
		Date:       0.80,
		Total:      0.90,
		Items:      0.80,
		AutoAccept: 0.95,
	}
}

// State classifies a confidence against a field minimum.
func (t Thresholds) State(confidence, minimum float64) receipt.FieldState {
	switch {
	case confidence >= t.AutoAccept:
		return receipt.StateAutoAccepted
	case confidence >= minimum:
		return receipt.StateLowConfidence
	default:
		return receipt.StateFlagged
	}
}

var dateLayouts = []string{
	"02.01.2006",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"02.01.2006 15:04",
	"02/01/2006 15:04",
	"2006-01-02 15:04:05",
}

// Draft is a receipt built from one OCR result, with the review state of
// every field. Hints and Barcodes hold the category hint and the printed
// barcode of each kept item, by position.
type Draft struct {
	Receipt  *receipt.Receipt
	Fields   map[Field]receipt.FieldReview
	Hints    []string
	Barcodes []*string
}

// Normalizer turns OCR results into receipt drafts. It performs no I/O.
type Normalizer struct {
	th Thresholds
}

func NewNormalizer(th Thresholds) *Normalizer {
	return &Normalizer{th: th}
}

// Normalize always produces a draft. Fields below their threshold are
// replaced by placeholders and flagged. The receipt is completed only when
// every field is auto-accepted.
func (n *Normalizer) Normalize(res Result) Draft {
	r := &receipt.Receipt{
		MerchantName: receipt.UnknownMerchant,
		Currency:     receipt.DefaultCurrency,
		Source:       receipt.SourceOCR,
		Review:       receipt.Review{Fields: make(map[string]receipt.FieldReview)},
	}

	d := Draft{Receipt: r, Fields: make(map[Field]receipt.FieldReview)}

	name := strings.Join(strings.Fields(res.Merchant.Text), " ")
	merchant := n.review(res.Merchant.Confidence, n.th.Merchant, name != "")
	if merchant.State != receipt.StateFlagged {
		r.MerchantName = name
	}

	d.set(FieldMerchant, merchant)

	date, dateErr := parseDate(res.Date.Text)
	dateReview := n.review(res.Date.Confidence, n.th.Date, dateErr == nil)
	if dateReview.State != receipt.StateFlagged {
		r.Date = date
	}

	d.set(FieldDate, dateReview)

	total, totalErr := money.Parse(res.Total.Text)
	totalReview := n.review(res.Total.Confidence, n.th.Total, totalErr == nil && !total.IsNegative())
	if totalReview.State != receipt.StateFlagged {
		r.Total = total.Round(2)
	}

	d.set(FieldTotal, totalReview)

	n.normalizeItems(&d, res.Items)

	r.Status = receipt.StatusCompleted
	if r.Review.Open() {
		r.Status = receipt.StatusProcessing
	}

	conf := overallConfidence(d.Fields)
	r.Confidence = &conf

	return d
}

func (n *Normalizer) normalizeItems(d *Draft, items []Item) {
	worst := receipt.FieldReview{Confidence: 1, State: receipt.StateAutoAccepted}
	kept := 0

	for _, it := range items {
		name := strings.Join(strings.Fields(it.Name), " ")
		if name == "" {
			continue
		}

		valid := true

		qty := it.Quantity
		if !qty.IsPositive() {
			qty = decimal.NewFromInt(1)
			valid = false
		}

		price := it.Price
		if price.IsNegative() {
			price = decimal.Zero
			valid = false
		}

		review := n.review(it.Confidence, n.th.Items, valid)

		li := &receipt.LineItem{
			Position:    kept,
			RawName:     name,
			CleanedName: it.CleanedName,
			Quantity:    qty,
			UnitPrice:   price.Div(qty).Round(2),
			Total:       price.Round(2),
			Confidence:  review.Confidence,
			NeedsReview: review.State != receipt.StateAutoAccepted,
		}

		hint := ""
		if it.CategoryHint != nil {
			hint = *it.CategoryHint
		}

		d.Receipt.Items = append(d.Receipt.Items, li)
		d.Hints = append(d.Hints, hint)
		d.Barcodes = append(d.Barcodes, barcode(it.Barcode))
		d.Receipt.Review.Fields[ItemKey(kept)] = review

		if review.State.Severity() > worst.State.Severity() {
			worst.State = review.State
		}

		worst.Confidence = min(worst.Confidence, review.Confidence)
		kept++
	}

	if kept > 0 {
		d.set(FieldItems, worst)
	}
}

// ItemKey is the review key of the item at position i.
func ItemKey(i int) string {
	return fmt.Sprintf("%s[%d]", FieldItems, i)
}

// review clamps the confidence and classifies it. Values that could not be
// read are flagged whatever the engine reported.
func (n *Normalizer) review(confidence, minimum float64, readable bool) receipt.FieldReview {
	c := min(max(confidence, 0), 1)
	if !readable {
		return receipt.FieldReview{Confidence: c, State: receipt.StateFlagged}
	}

	return receipt.FieldReview{Confidence: c, State: n.th.State(c, minimum)}
}

func (d *Draft) set(f Field, r receipt.FieldReview) {
	d.Fields[f] = r
	d.Receipt.Review.Fields[string(f)] = r
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func overallConfidence(fields map[Field]receipt.FieldReview) float64 {
	if len(fields) == 0 {
		return 0
	}

	sum := 0.0
	for _, f := range []Field{FieldMerchant, FieldDate, FieldTotal, FieldItems} {
		sum += fields[f].Confidence
	}

	return sum / float64(len(fields))
}

// barcode returns the digits of a printed barcode, or nil when it has none.
func barcode(s *string) *string {
	if s == nil {
		return nil
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}

		return -1
	}, *s)
	if digits == "" {
		return nil
	}

	return &digits
}
