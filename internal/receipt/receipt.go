package receipt

import (
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("receipt not found")
	ErrInvalidInput = errors.New("invalid receipt input")

	ErrMissingMerchant = errors.New("completed receipt has no merchant name")
	ErrMissingTotal    = errors.New("completed receipt has no total")
	ErrTotalMismatch   = errors.New("line items do not add up to the receipt total")
)

// UnknownMerchant is the display name of receipts whose merchant could not be read.
const UnknownMerchant = "Unknown"

// DefaultCurrency is the ISO 4217 code assumed when a channel does not carry one.
const DefaultCurrency = "TRY"

// Status represents the lifecycle state of a receipt.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Source records which capture channel produced the receipt.
type Source string

const (
	SourceOCR    Source = "ocr"
	SourceQR     Source = "qr"
	SourceManual Source = "manual"
)

// FieldState is the review state of one recognized field.
type FieldState string

const (
	StateAutoAccepted  FieldState = "auto_accepted"
	StateLowConfidence FieldState = "low_confidence"
	StateFlagged       FieldState = "flagged"
)

// Severity orders states from best to worst.
func (s FieldState) Severity() int {
	switch s {
	case StateAutoAccepted:
		return 0
	case StateLowConfidence:
		return 1
	default:
		return 2
	}
}

type FieldReview struct {
	Confidence float64    `json:"confidence"`
	State      FieldState `json:"state"`
}

// Review is the per-field confidence map attached to a receipt. Keys are
// field names ("merchant", "date", "total", "items") and "items[i]" for
// individual line items.
type Review struct {
	Fields        map[string]FieldReview `json:"fields,omitempty"`
	TotalMismatch bool                   `json:"total_mismatch,omitempty"`
}

// Open reports whether any field still needs confirmation.
func (r Review) Open() bool {
	for _, f := range r.Fields {
		if f.State != StateAutoAccepted {
			return true
		}
	}

	return false
}

// Classification holds the taxonomy ids of a line item. Levels below the
// matched node are empty.
type Classification struct {
	DepartmentID  string
	CategoryID    string
	SubcategoryID string
	ItemGroupID   string
}

// LineItem is one purchased article on a receipt. Total is the line total
// before Discount.
type LineItem struct {
	ID             uuid.UUID
	ReceiptID      uuid.UUID
	Position       int
	RawName        string
	CleanedName    *string
	Quantity       decimal.Decimal
	Unit           *string
	UnitPrice      decimal.Decimal
	Total          decimal.Decimal
	Discount       *decimal.Decimal
	Confidence     float64
	Classification Classification
	ProductID      *uuid.UUID
	NeedsReview    bool
}

// Name is the cleaned name when present, the raw name otherwise.
func (li *LineItem) Name() string {
	if li.CleanedName != nil && *li.CleanedName != "" {
		return *li.CleanedName
	}

	return li.RawName
}

// Net is the amount actually paid for the line.
func (li *LineItem) Net() decimal.Decimal {
	if li.Discount == nil {
		return li.Total
	}

	return li.Total.Sub(*li.Discount)
}

// Category is the category label used for grouping.
func (li *LineItem) Category() string {
	if li.Classification.CategoryID != "" {
		return li.Classification.CategoryID
	}

	if li.Classification.DepartmentID != "" {
		return li.Classification.DepartmentID
	}

	return "other"
}

// Validate rejects values no capture channel can legitimately produce.
func (li *LineItem) Validate() error {
	switch {
	case !li.Quantity.IsPositive():
		return errors.Join(ErrInvalidInput, errors.New("quantity must be positive"))
	case li.UnitPrice.IsNegative():
		return errors.Join(ErrInvalidInput, errors.New("unit price must not be negative"))
	case li.Total.IsNegative():
		return errors.Join(ErrInvalidInput, errors.New("line total must not be negative"))
	case li.Discount != nil && (li.Discount.IsNegative() || li.Discount.GreaterThan(li.Total)):
		return errors.Join(ErrInvalidInput, errors.New("discount must be between zero and the line total"))
	case li.Confidence < 0 || li.Confidence > 1:
		return errors.Join(ErrInvalidInput, errors.New("confidence must be between 0 and 1"))
	}

	return nil
}

// ItemID derives the id of the item at position in a receipt, so that
// reprocessing a receipt rewrites the same rows.
func ItemID(receiptID uuid.UUID, position int) uuid.UUID {
	return uuid.NewSHA1(receiptID, []byte(strconv.Itoa(position)))
}

// Receipt is a structured, confidence-annotated purchase record.
type Receipt struct {
	ID           uuid.UUID
	MerchantID   *uuid.UUID
	MerchantName string
	Date         time.Time
	Total        decimal.Decimal
	Currency     string
	Status       Status
	Source       Source
	Items        []*LineItem
	Confidence   *float64
	Review       Review

	// Tax document identity, set when the receipt came through the QR channel.
	ETTN           *string
	DocumentNumber *string
	MerchantTaxID  *string

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// ItemsTotal sums the net amount of every line item.
func (r *Receipt) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range r.Items {
		sum = sum.Add(li.Net())
	}

	return sum
}

// Validate reports invariant violations without rejecting the receipt. It sets
// Review.TotalMismatch when the line items differ from the total by more than
// tolerance. Receipts without items are not reconciled.
func (r *Receipt) Validate(tolerance decimal.Decimal) error {
	var errs []error

	if r.Status == StatusCompleted {
		if r.MerchantName == "" || r.MerchantName == UnknownMerchant {
			errs = append(errs, ErrMissingMerchant)
		}

		if !r.Total.IsPositive() {
			errs = append(errs, ErrMissingTotal)
		}
	}

	r.Review.TotalMismatch = false

	if len(r.Items) > 0 && r.ItemsTotal().Sub(r.Total).Abs().GreaterThan(tolerance) {
		r.Review.TotalMismatch = true

		errs = append(errs, ErrTotalMismatch)
	}

	return errors.Join(errs...)
}
