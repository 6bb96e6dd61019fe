package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fisly/internal/importer/pricelist"
	"github.com/MrJamesThe3rd/fisly/internal/product"
	"github.com/MrJamesThe3rd/fisly/internal/taxonomy"
)

//go:generate mockgen -source=service.go -destination=products_mock.go -package=importer
type Products interface {
	Resolve(ctx context.Context, name, category string, barcode *string) (*product.Product, error)
	RecordPrice(ctx context.Context, params product.PriceParams) (*product.Price, error)
}

type Service struct {
	products        Products
	classifier      *taxonomy.Classifier
	priceListParser Importer
}

// NewService returns an import service. classifier may be nil, in which case
// rows without a category column are stored under "other".
func NewService(products Products, classifier *taxonomy.Classifier) *Service {
	return &Service{
		products:        products,
		classifier:      classifier,
		priceListParser: pricelist.NewParser(),
	}
}

// RowError is a row that could not be imported. Line is the 1-based line
// number in the source file.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Result summarizes one import. Rows counts the parsed entries; each of them
// ends up in either Prices or Failed.
type Result struct {
	Rows   int
	Prices []*product.Price
	Failed []RowError
}

// Import parses r and records one scraped price per row at merchantID,
// creating the products it does not know yet.
func (s *Service) Import(ctx context.Context, format Format, merchantID uuid.UUID, r io.Reader) (*Result, error) {
	var importer Importer

	switch format {
	case FormatPriceList:
		importer = s.priceListParser
	default:
		return nil, fmt.Errorf("unknown format: %s: %w", format, product.ErrInvalidInput)
	}

	if merchantID == uuid.Nil {
		return nil, fmt.Errorf("merchant is required: %w", product.ErrInvalidInput)
	}

	entries, err := importer.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", product.ErrInvalidInput, err)
	}

	res := &Result{Rows: len(entries)}

	// A failing row is skipped and reported; the rows around it still land.
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		price, err := s.importEntry(ctx, merchantID, e)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("row %d: %w", e.Line, err)
			}

			slog.Warn("skipping price list row", "line", e.Line, "error", err)
			res.Failed = append(res.Failed, RowError{Line: e.Line, Err: err})

			continue
		}

		res.Prices = append(res.Prices, price)
	}

	if len(res.Prices) == 0 && len(res.Failed) > 0 {
		return nil, fmt.Errorf("no rows imported: %w", res.Failed[0])
	}

	return res, nil
}

func (s *Service) importEntry(ctx context.Context, merchantID uuid.UUID, e product.PriceEntry) (*product.Price, error) {
	p, err := s.products.Resolve(ctx, e.Name, s.category(e), e.Barcode)
	if err != nil {
		return nil, fmt.Errorf("resolving product: %w", err)
	}

	params := product.PriceParams{
		ProductID:  p.ID,
		MerchantID: merchantID,
		Price:      e.Price,
		Source:     product.SourceScraped,
	}

	if e.ObservedAt != nil {
		params.ObservedAt = *e.ObservedAt
	}

	price, err := s.products.RecordPrice(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("recording price: %w", err)
	}

	return price, nil
}

func (s *Service) category(e product.PriceEntry) string {
	if e.Category != "" {
		return e.Category
	}

	if s.classifier == nil {
		return ""
	}

	if a := s.classifier.Classify(e.Name); !a.Fallback {
		return a.CategoryID
	}

	return ""
}
