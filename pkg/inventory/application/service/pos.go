package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	"inventory/pkg/inventory/domain/model"
	domainservice "inventory/pkg/inventory/domain/service"
)

var tracer = otel.Tracer("inventory/application")

// PointOfSale admits live sale commits through a fixed number of workers.
// Live sales are always dated at commit time.
type PointOfSale interface {
	Sell(ctx context.Context, lines []model.SaleLineRequest) (*model.Sale, error)
}

func NewPointOfSale(sales domainservice.SaleService, workers int) PointOfSale {
	if workers < 1 {
		workers = 1
	}
	return &pointOfSale{
		sales:   sales,
		workers: semaphore.NewWeighted(int64(workers)),
	}
}

type pointOfSale struct {
	sales   domainservice.SaleService
	workers *semaphore.Weighted
}

func (p *pointOfSale) Sell(ctx context.Context, lines []model.SaleLineRequest) (*model.Sale, error) {
	ctx, span := tracer.Start(ctx, "sale.commit")
	defer span.End()
	span.SetAttributes(attribute.Int("sale.lines", len(lines)))

	if err := p.workers.Acquire(ctx, 1); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer p.workers.Release(1)

	sale, err := p.sales.Commit(ctx, lines, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("sale.id", sale.ID.String()),
		attribute.String("sale.total", sale.TotalAmount.String()),
	)
	span.SetStatus(codes.Ok, "sale committed")
	return sale, nil
}
