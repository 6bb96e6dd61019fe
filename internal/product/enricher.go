package product

import (
	"context"
	"log/slog"
	"strings"
)

// Catalog is a remote product catalog. LookupByBarcode returns nil without an
// error when the code is unknown.
type Catalog interface {
	LookupByBarcode(ctx context.Context, code string) (*Product, error)
	Search(ctx context.Context, text string) ([]Product, error)
}

type LocalMatcher interface {
	Match(name string) (*Product, error)
}

// Enricher attaches catalog products to line item names. The local catalog is
// consulted first; the remote catalog is optional and its failures only mean
// that no enrichment is available.
type Enricher struct {
	local   LocalMatcher
	catalog Catalog
}

// NewEnricher returns an enricher. catalog may be nil.
func NewEnricher(local LocalMatcher, catalog Catalog) *Enricher {
	return &Enricher{local: local, catalog: catalog}
}

// Enrich returns the product best matching name, or nil.
func (e *Enricher) Enrich(ctx context.Context, name string, barcode *string) *Product {
	if strings.TrimSpace(name) == "" {
		return nil
	}

	if e.local != nil {
		p, err := e.local.Match(name)
		if err != nil {
			slog.Warn("local product match failed", "name", name, "error", err)
		}

		if p != nil {
			return p
		}
	}

	if e.catalog == nil {
		return nil
	}

	if barcode != nil && *barcode != "" {
		p, err := e.catalog.LookupByBarcode(ctx, *barcode)
		if err != nil {
			slog.Warn("catalog barcode lookup failed", "barcode", *barcode, "error", err)
		}

		if p != nil {
			return p
		}
	}

	hits, err := e.catalog.Search(ctx, name)
	if err != nil {
		slog.Warn("catalog search failed", "name", name, "error", err)

		return nil
	}

	for i := range hits {
		if Score(name, hits[i].Name) >= MatchThreshold {
			return &hits[i]
		}
	}

	return nil
}
