package product

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("product not found")
	ErrInvalidInput = errors.New("invalid product input")
)

// Source records where a price observation came from. It is provenance only;
// the comparator treats every source alike unless the caller filters.
type Source string

const (
	SourceManual       Source = "manual"
	SourceScraped      Source = "scraped"
	SourceUserReported Source = "user_reported"
)

func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceScraped, SourceUserReported:
		return true
	default:
		return false
	}
}

// Product is a catalog entry. NormalizedName is the matching key and is kept
// in the form produced by textnorm.MatchKey.
type Product struct {
	ID             uuid.UUID
	Name           string
	Category       string
	Barcode        *string
	Brand          *string
	NormalizedName string
	CreatedAt      time.Time
}

// Price is one observed shelf price of a product at a merchant.
type Price struct {
	ID         uuid.UUID
	ProductID  uuid.UUID
	MerchantID uuid.UUID
	Price      decimal.Decimal
	ObservedAt time.Time
	Source     Source
}

func (p *Price) Validate() error {
	switch {
	case p.ProductID == uuid.Nil:
		return errors.Join(ErrInvalidInput, errors.New("product id is required"))
	case p.MerchantID == uuid.Nil:
		return errors.Join(ErrInvalidInput, errors.New("merchant id is required"))
	case p.Price.IsNegative():
		return errors.Join(ErrInvalidInput, errors.New("price must not be negative"))
	case !p.Source.Valid():
		return errors.Join(ErrInvalidInput, errors.New("unknown price source"))
	}

	return nil
}

// PriceEntry is one row of a merchant price list, before it is matched to a
// stored product.
type PriceEntry struct {
	Line       int
	Name       string
	Category   string
	Barcode    *string
	Price      decimal.Decimal
	ObservedAt *time.Time
}
