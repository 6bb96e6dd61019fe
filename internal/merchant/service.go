package merchant

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=merchant
type Repository interface {
	CreateMerchant(ctx context.Context, m *Merchant) error
	GetMerchant(ctx context.Context, id uuid.UUID) (*Merchant, error)
	ListMerchants(ctx context.Context) ([]*Merchant, error)
	UpdatePatterns(ctx context.Context, id uuid.UUID, patterns []Pattern) error
	DeleteMerchant(ctx context.Context, id uuid.UUID) error
}

// Service manages the merchant registry and serves resolution from an
// in-memory snapshot that is swapped whenever the registry changes.
type Service struct {
	repo          Repository
	minSimilarity float64
	resolver      atomic.Pointer[Resolver]
}

func NewService(repo Repository, minSimilarity float64) *Service {
	s := &Service{repo: repo, minSimilarity: minSimilarity}
	s.resolver.Store(NewResolver(nil, minSimilarity))

	return s
}

// Reload rebuilds the resolver from the repository.
func (s *Service) Reload(ctx context.Context) error {
	merchants, err := s.repo.ListMerchants(ctx)
	if err != nil {
		return fmt.Errorf("loading merchants: %w", err)
	}

	s.resolver.Store(NewResolver(merchants, s.minSimilarity))

	return nil
}

// Resolve matches text against the current snapshot.
func (s *Service) Resolve(text string) Match {
	return s.resolver.Load().Resolve(text)
}

type CreateParams struct {
	CanonicalName string
	DisplayName   string
	Category      Category
	Patterns      []Pattern
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Merchant, error) {
	m := &Merchant{
		CanonicalName: strings.TrimSpace(params.CanonicalName),
		DisplayName:   strings.TrimSpace(params.DisplayName),
		Category:      params.Category,
		Patterns:      params.Patterns,
	}

	if m.DisplayName == "" {
		m.DisplayName = m.CanonicalName
	}

	if m.Category == "" {
		m.Category = CategoryOther
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.CreateMerchant(ctx, m); err != nil {
		return nil, err
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	return m, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Merchant, error) {
	return s.repo.GetMerchant(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Merchant, error) {
	return s.repo.ListMerchants(ctx)
}

// SetPatterns replaces the pattern set of a merchant.
func (s *Service) SetPatterns(ctx context.Context, id uuid.UUID, patterns []Pattern) error {
	for _, p := range patterns {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	if err := s.repo.UpdatePatterns(ctx, id, patterns); err != nil {
		return err
	}

	return s.Reload(ctx)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteMerchant(ctx, id); err != nil {
		return err
	}

	return s.Reload(ctx)
}
