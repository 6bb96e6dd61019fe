package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fisly/internal/pagination"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=product
type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*Product, error)
	ListProducts(ctx context.Context, filter ListFilter, page pagination.Params) (*pagination.Result[*Product], error)

	// AllProducts returns the whole catalog for the matcher snapshot.
	AllProducts(ctx context.Context) ([]*Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	AddPrice(ctx context.Context, p *Price) error
	ListPrices(ctx context.Context, productID uuid.UUID) ([]Price, error)
}

type ListFilter struct {
	Search   *string
	Category *string
}

type Service struct {
	repo      Repository
	threshold float64
	matcher   atomic.Pointer[Matcher]
}

// NewService returns a product service. threshold is the default fuzzy match
// threshold. Call Reload before matching against the stored catalog.
func NewService(repo Repository, threshold float64) *Service {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}

	s := &Service{repo: repo, threshold: threshold}
	s.matcher.Store(NewMatcher(nil))

	return s
}

// Reload rebuilds the matcher from the repository. The previous snapshot stays
// in place when loading fails.
func (s *Service) Reload(ctx context.Context) error {
	products, err := s.repo.AllProducts(ctx)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	s.matcher.Store(NewMatcher(products))

	return nil
}

func (s *Service) Match(name string) (*Product, error) {
	return s.matcher.Load().Match(name)
}

// FuzzyMatch uses the configured threshold when threshold is not in (0,1].
func (s *Service) FuzzyMatch(name string, threshold float64) ([]Scored, error) {
	if threshold <= 0 || threshold > 1 {
		threshold = s.threshold
	}

	return s.matcher.Load().FuzzyMatchScored(name, threshold)
}

type CreateParams struct {
	Name     string
	Category string
	Barcode  *string
	Brand    *string
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Product, error) {
	p := &Product{
		Name:     strings.TrimSpace(params.Name),
		Category: strings.TrimSpace(params.Category),
		Barcode:  trimmed(params.Barcode),
		Brand:    trimmed(params.Brand),
	}

	if p.Name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrInvalidInput)
	}

	p.NormalizedName = NormalizeName(p.Name)

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, page pagination.Params) (*pagination.Result[*Product], error) {
	return s.repo.ListProducts(ctx, filter, page.Normalize())
}

func (s *Service) Update(ctx context.Context, p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("name is required: %w", ErrInvalidInput)
	}

	p.Barcode = trimmed(p.Barcode)
	p.Brand = trimmed(p.Brand)
	p.NormalizedName = NormalizeName(p.Name)

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return err
	}

	return s.Reload(ctx)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	return s.Reload(ctx)
}

// Resolve returns the stored product for barcode or name, creating it when
// neither finds one.
func (s *Service) Resolve(ctx context.Context, name, category string, barcode *string) (*Product, error) {
	barcode = trimmed(barcode)

	if barcode != nil {
		p, err := s.repo.GetProductByBarcode(ctx, *barcode)
		if err == nil {
			return p, nil
		}

		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	p, err := s.Match(name)
	if err != nil {
		return nil, err
	}

	if p != nil {
		return p, nil
	}

	return s.Create(ctx, CreateParams{Name: name, Category: category, Barcode: barcode})
}

type PriceParams struct {
	ProductID  uuid.UUID
	MerchantID uuid.UUID
	Price      decimal.Decimal
	ObservedAt time.Time
	Source     Source
}

func (s *Service) RecordPrice(ctx context.Context, params PriceParams) (*Price, error) {
	p := &Price{
		ProductID:  params.ProductID,
		MerchantID: params.MerchantID,
		Price:      params.Price,
		ObservedAt: params.ObservedAt,
		Source:     params.Source,
	}

	if p.Source == "" {
		p.Source = SourceManual
	}

	if p.ObservedAt.IsZero() {
		p.ObservedAt = time.Now()
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.AddPrice(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) Prices(ctx context.Context, productID uuid.UUID) ([]Price, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	return s.repo.ListPrices(ctx, productID)
}

type CompareParams struct {
	ProductID      uuid.UUID
	UserPaid       decimal.Decimal
	UserMerchantID uuid.UUID
	Sources        []Source
}

// ComparePrice compares what the user paid with every stored observation of
// the product.
func (s *Service) ComparePrice(ctx context.Context, params CompareParams) (Comparison, error) {
	if params.UserPaid.IsNegative() {
		return Comparison{}, fmt.Errorf("paid price must not be negative: %w", ErrInvalidInput)
	}

	prices, err := s.Prices(ctx, params.ProductID)
	if err != nil {
		return Comparison{}, err
	}

	return Compare(params.UserPaid, params.UserMerchantID, prices, params.Sources...), nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}

	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}

	return &v
}
