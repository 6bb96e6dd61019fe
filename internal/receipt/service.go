package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fisly/internal/pagination"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=receipt
type Repository interface {
	// SaveReceipt inserts or replaces the receipt with r.ID, replacing all of its items.
	SaveReceipt(ctx context.Context, r *Receipt) error
	GetReceipt(ctx context.Context, id uuid.UUID) (*Receipt, error)
	ListReceipts(ctx context.Context, filter ListFilter, page pagination.Params) (*pagination.Result[*Receipt], error)

	// Snapshot returns every receipt matching filter with its items loaded.
	Snapshot(ctx context.Context, filter ListFilter) ([]*Receipt, error)
	DeleteReceipt(ctx context.Context, id uuid.UUID) error
}

type ListFilter struct {
	MerchantID *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
	MinTotal   *decimal.Decimal
	MaxTotal   *decimal.Decimal
	Search     *string
	Status     *Status
}

type Service struct {
	repo      Repository
	tolerance decimal.Decimal
}

// NewService returns a receipt service. tolerance bounds the accepted
// difference between the line items and the receipt total.
func NewService(repo Repository, tolerance decimal.Decimal) *Service {
	return &Service{repo: repo, tolerance: tolerance}
}

type ItemParams struct {
	RawName   string
	Quantity  decimal.Decimal
	Unit      *string
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
	Discount  *decimal.Decimal
}

type CreateParams struct {
	MerchantID   *uuid.UUID
	MerchantName string
	Date         time.Time
	Total        decimal.Decimal
	Currency     string
	Items        []ItemParams
}

// Create stores a manually entered receipt. Manual values are trusted, so the
// receipt is completed as soon as it names a merchant and a total.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Receipt, error) {
	if params.Total.IsNegative() {
		return nil, fmt.Errorf("total must not be negative: %w", ErrInvalidInput)
	}

	r := &Receipt{
		ID:           uuid.New(),
		MerchantID:   params.MerchantID,
		MerchantName: strings.TrimSpace(params.MerchantName),
		Date:         params.Date,
		Total:        params.Total,
		Currency:     params.Currency,
		Source:       SourceManual,
		Status:       StatusProcessing,
	}

	if r.Currency == "" {
		r.Currency = DefaultCurrency
	}

	if r.MerchantName == "" {
		r.MerchantName = UnknownMerchant
	}

	if r.MerchantName != UnknownMerchant && r.Total.IsPositive() {
		r.Status = StatusCompleted
	}

	for i, p := range params.Items {
		li := &LineItem{
			ID:         ItemID(r.ID, i),
			ReceiptID:  r.ID,
			Position:   i,
			RawName:    p.RawName,
			Quantity:   p.Quantity,
			Unit:       p.Unit,
			UnitPrice:  p.UnitPrice,
			Total:      p.Total,
			Discount:   p.Discount,
			Confidence: 1,
		}
		if err := li.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		r.Items = append(r.Items, li)
	}

	if err := r.Validate(s.tolerance); err != nil {
		slog.Warn("receipt saved with open issues", "receipt_id", r.ID, "error", err)
	}

	if err := s.repo.SaveReceipt(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Receipt, error) {
	return s.repo.GetReceipt(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, page pagination.Params) (*pagination.Result[*Receipt], error) {
	return s.repo.ListReceipts(ctx, filter, page.Normalize())
}

func (s *Service) Snapshot(ctx context.Context, filter ListFilter) ([]*Receipt, error) {
	return s.repo.Snapshot(ctx, filter)
}

// Update replaces an existing receipt. It fails with ErrNotFound when the
// receipt does not exist.
func (s *Service) Update(ctx context.Context, r *Receipt) error {
	if _, err := s.repo.GetReceipt(ctx, r.ID); err != nil {
		return err
	}

	for i, li := range r.Items {
		if err := li.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}

		li.ReceiptID = r.ID
		li.Position = i

		if li.ID == uuid.Nil {
			li.ID = ItemID(r.ID, i)
		}
	}

	if err := r.Validate(s.tolerance); err != nil {
		slog.Warn("receipt saved with open issues", "receipt_id", r.ID, "error", err)
	}

	return s.repo.SaveReceipt(ctx, r)
}

// Confirm marks every field as reviewed and completes the receipt.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Receipt, error) {
	r, err := s.repo.GetReceipt(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.MerchantName == "" || r.MerchantName == UnknownMerchant || !r.Total.IsPositive() {
		return nil, fmt.Errorf("merchant and total are required to confirm: %w", ErrInvalidInput)
	}

	for k, f := range r.Review.Fields {
		f.State = StateAutoAccepted
		r.Review.Fields[k] = f
	}

	for _, li := range r.Items {
		li.NeedsReview = false
	}

	r.Status = StatusCompleted

	if err := s.repo.SaveReceipt(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteReceipt(ctx, id)
}
