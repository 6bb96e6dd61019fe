package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fisly/internal/ocr"
	"github.com/MrJamesThe3rd/fisly/internal/qr"
	"github.com/MrJamesThe3rd/fisly/internal/receipt"
	"github.com/MrJamesThe3rd/fisly/internal/taxonomy"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=pipeline
type Repository interface {
	SaveReceipt(ctx context.Context, r *receipt.Receipt) error
	GetReceipt(ctx context.Context, id uuid.UUID) (*receipt.Receipt, error)
}

type Options struct {
	Thresholds ocr.Thresholds
	Tolerance  decimal.Decimal

	// Enricher and Metrics are optional.
	Enricher Enricher
	Metrics  Recorder
}

type Service struct {
	repo       Repository
	merchants  MerchantResolver
	classifier *taxonomy.Classifier
	normalizer *ocr.Normalizer
	enricher   Enricher
	metrics    Recorder
	tolerance  decimal.Decimal
}

func NewService(repo Repository, merchants MerchantResolver, classifier *taxonomy.Classifier, opts Options) *Service {
	return &Service{
		repo:       repo,
		merchants:  merchants,
		classifier: classifier,
		normalizer: ocr.NewNormalizer(opts.Thresholds),
		enricher:   opts.Enricher,
		metrics:    opts.Metrics,
		tolerance:  opts.Tolerance,
	}
}

// ProcessOCR normalizes an OCR result and stores it under id, replacing any
// previous version. Values already confirmed by a QR code for the same id are
// kept.
func (s *Service) ProcessOCR(ctx context.Context, id uuid.UUID, res ocr.Result) (r *receipt.Receipt, err error) {
	start := time.Now()
	defer func() { s.observe(receipt.SourceOCR, id, r, start, err) }()

	if id == uuid.Nil {
		return nil, fmt.Errorf("receipt id is required: %w", receipt.ErrInvalidInput)
	}

	existing, err := s.existing(ctx, id)
	if err != nil {
		return nil, err
	}

	draft := s.normalizer.Normalize(res)
	r = draft.Receipt
	r.ID = id

	if existing != nil && existing.Source == receipt.SourceQR {
		s.apply(r, fromReceipt(existing))
	} else if r.MerchantName != receipt.UnknownMerchant {
		r.MerchantID = s.merchants.Resolve(r.MerchantName).MerchantID
	}

	s.prepareItems(ctx, r, draft.Hints, draft.Barcodes)

	if err := s.save(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

// ProcessQR decodes a GİB QR payload and merges it onto the receipt stored
// under id, creating one when none exists. A payload that cannot be decoded
// leaves an existing receipt untouched and otherwise stores a failed one.
func (s *Service) ProcessQR(ctx context.Context, id uuid.UUID, raw string) (r *receipt.Receipt, err error) {
	start := time.Now()
	defer func() { s.observe(receipt.SourceQR, id, r, start, err) }()

	if id == uuid.Nil {
		return nil, fmt.Errorf("receipt id is required: %w", receipt.ErrInvalidInput)
	}

	decoded := qr.Decode(raw)

	r, err = s.existing(ctx, id)
	if err != nil {
		return nil, err
	}

	if !decoded.Success && r != nil {
		slog.Warn("ignoring undecodable qr payload", "receipt_id", id, "format", decoded.Data.Format)

		return r, nil
	}

	if r == nil {
		r = &receipt.Receipt{
			ID:           id,
			MerchantName: receipt.UnknownMerchant,
			Currency:     receipt.DefaultCurrency,
			Source:       receipt.SourceQR,
		}
	}

	if r.Review.Fields == nil {
		r.Review.Fields = make(map[string]receipt.FieldReview)
	}

	r.Status = receipt.StatusFailed
	if decoded.Success {
		s.apply(r, fromQR(decoded.Data))
		r.Status = receipt.StatusProcessing
	}

	s.prepareItems(ctx, r, nil, nil)

	if err := s.save(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

// apply overwrites r with the trusted values of t and resolves the merchant
// from the best available identity.
func (s *Service) apply(r *receipt.Receipt, t trusted) {
	if len(t.merchants) > 0 {
		if r.MerchantName == receipt.UnknownMerchant || !accepted(r, ocr.FieldMerchant) {
			r.MerchantName = t.merchants[0]
		}

		r.Review.Fields[string(ocr.FieldMerchant)] = trustedReview
	}

	if t.total != nil {
		r.Total = t.total.Round(2)
		r.Review.Fields[string(ocr.FieldTotal)] = trustedReview
	}

	if t.date != nil {
		r.Date = *t.date
		r.Review.Fields[string(ocr.FieldDate)] = trustedReview
	}

	if t.currency != "" {
		r.Currency = t.currency
	}

	r.MerchantTaxID = t.merchantTaxID
	r.ETTN = t.ettn
	r.DocumentNumber = t.documentNumber
	r.Source = receipt.SourceQR

	if t.merchantID != nil {
		r.MerchantID = t.merchantID
	}

	for _, text := range append([]string{r.MerchantName}, t.merchants...) {
		if text == receipt.UnknownMerchant {
			continue
		}

		if m := s.merchants.Resolve(text); m.MerchantID != nil {
			r.MerchantID = m.MerchantID

			break
		}
	}
}

// prepareItems assigns deterministic ids to the items of r, links them to
// catalog products and classifies the ones not classified yet. hints and
// barcodes hold the OCR category hint and printed barcode of each item.
func (s *Service) prepareItems(ctx context.Context, r *receipt.Receipt, hints []string, barcodes []*string) {
	for i, li := range r.Items {
		li.ID = receipt.ItemID(r.ID, i)
		li.ReceiptID = r.ID
		li.Position = i

		hint := ""
		if i < len(hints) {
			hint = hints[i]
		}

		var code *string
		if i < len(barcodes) {
			code = barcodes[i]
		}

		if s.enricher != nil && li.ProductID == nil {
			if p := s.enricher.Enrich(ctx, li.Name(), code); p != nil {
				if p.ID != uuid.Nil {
					productID := p.ID
					li.ProductID = &productID
				}

				if li.CleanedName == nil {
					name := p.Name
					li.CleanedName = &name
				}

				if hint == "" {
					hint = p.Category
				}
			}
		}

		if li.Classification != (receipt.Classification{}) {
			continue
		}

		a := s.classifier.ClassifyWithHint(li.Name(), hint)
		li.Classification = receipt.Classification{
			DepartmentID:  a.DepartmentID,
			CategoryID:    a.CategoryID,
			SubcategoryID: a.SubcategoryID,
			ItemGroupID:   a.ItemGroupID,
		}
	}
}

func (s *Service) existing(ctx context.Context, id uuid.UUID) (*receipt.Receipt, error) {
	r, err := s.repo.GetReceipt(ctx, id)
	if errors.Is(err, receipt.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading receipt: %w", err)
	}

	return r, nil
}

func (s *Service) save(ctx context.Context, r *receipt.Receipt) error {
	if r.Status != receipt.StatusFailed {
		r.Status = receipt.StatusCompleted
		if r.Review.Open() {
			r.Status = receipt.StatusProcessing
		}
	}

	r.Confidence = confidence(r.Review)

	if err := r.Validate(s.tolerance); err != nil {
		slog.Warn("receipt saved with open issues", "receipt_id", r.ID, "error", err)
	}

	if err := s.repo.SaveReceipt(ctx, r); err != nil {
		return fmt.Errorf("saving receipt: %w", err)
	}

	return nil
}

func (s *Service) observe(source receipt.Source, id uuid.UUID, r *receipt.Receipt, start time.Time, err error) {
	status := ""
	if r != nil {
		status = string(r.Status)
	}

	if s.metrics != nil {
		s.metrics.ObserveReceipt(string(source), status, time.Since(start), err)
	}

	if err != nil {
		slog.Error("failed to process receipt", "receipt_id", id, "source", source, "error", err)

		return
	}

	slog.Info("receipt processed", "receipt_id", id, "source", source, "status", status)
}
