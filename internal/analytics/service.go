package analytics

import (
	"context"
	"fmt"

	"github.com/MrJamesThe3rd/fisly/internal/receipt"
)

//go:generate mockgen -source=service.go -destination=snapshotter_mock.go -package=analytics
type Snapshotter interface {
	Snapshot(ctx context.Context, filter receipt.ListFilter) ([]*receipt.Receipt, error)
}

type Service struct {
	receipts   Snapshotter
	aggregator *Aggregator
}

func NewService(receipts Snapshotter, aggregator *Aggregator) *Service {
	return &Service{receipts: receipts, aggregator: aggregator}
}

// Report loads one snapshot for f and computes every view from it.
func (s *Service) Report(ctx context.Context, f Filter) (Report, error) {
	if err := f.Validate(); err != nil {
		return Report{}, err
	}

	snapshot, err := s.receipts.Snapshot(ctx, receipt.ListFilter{
		MerchantID: f.MerchantID,
		StartDate:  f.Start,
		EndDate:    f.End,
	})
	if err != nil {
		return Report{}, fmt.Errorf("loading receipts: %w", err)
	}

	// A half-open range takes its other bound from the snapshot.
	if start, end, ok := s.aggregator.bounds(f, snapshot); ok {
		if err := checkSpan(f.Period, start, end); err != nil {
			return Report{}, err
		}
	}

	return s.aggregator.Aggregate(f, snapshot), nil
}
