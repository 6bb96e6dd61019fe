package catalog

import (
	"context"

	"github.com/MrJamesThe3rd/fisly/internal/product"
	"github.com/MrJamesThe3rd/fisly/internal/resilience"
)

type FailureRecorder interface {
	RecordEnrichmentFailure(operation string, breakerOpen bool)
}

// Instrumented reports every failed call of the wrapped catalog.
type Instrumented struct {
	next     product.Catalog
	recorder FailureRecorder
}

func Instrument(next product.Catalog, recorder FailureRecorder) *Instrumented {
	return &Instrumented{next: next, recorder: recorder}
}

func (c *Instrumented) LookupByBarcode(ctx context.Context, code string) (*product.Product, error) {
	p, err := c.next.LookupByBarcode(ctx, code)
	c.observe("catalog.lookup", err)

	return p, err
}

func (c *Instrumented) Search(ctx context.Context, text string) ([]product.Product, error) {
	hits, err := c.next.Search(ctx, text)
	c.observe("catalog.search", err)

	return hits, err
}

func (c *Instrumented) observe(op string, err error) {
	if err == nil || c.recorder == nil {
		return
	}

	c.recorder.RecordEnrichmentFailure(op, resilience.IsCircuitOpen(err))
}
