package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/smart-inventory/internal/inventory/domain"
)

var tracer = otel.Tracer("inventory-repository")

// StoreWithTracing wraps a Store and opens one span per repository call.
type StoreWithTracing struct {
	next domain.Store
}

func NewStoreWithTracing(next domain.Store) *StoreWithTracing {
	return &StoreWithTracing{next: next}
}

func (s *StoreWithTracing) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo domain.LedgerRepository) error) error {
	ctx, span := tracer.Start(ctx, "repository.WithinTransaction")
	defer span.End()

	err := s.next.WithinTransaction(ctx, func(ctx context.Context, repo domain.LedgerRepository) error {
		return fn(ctx, &ledgerRepositoryWithTracing{next: repo})
	})
	addDBErrorToSpan(span, err)
	return err
}

func (s *StoreWithTracing) SalesTotal(ctx context.Context, branchIDs []uint, from, to time.Time) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "repository.SalesTotal", trace.WithAttributes(
		branchScopeAttr(branchIDs),
		attribute.String("range.from", from.Format(time.RFC3339)),
	))
	defer span.End()

	total, err := s.next.SalesTotal(ctx, branchIDs, from, to)
	addDBErrorToSpan(span, err)
	return total, err
}

func (s *StoreWithTracing) CountOrders(ctx context.Context, branchIDs []uint) (int64, error) {
	ctx, span := tracer.Start(ctx, "repository.CountOrders", trace.WithAttributes(branchScopeAttr(branchIDs)))
	defer span.End()

	n, err := s.next.CountOrders(ctx, branchIDs)
	addDBErrorToSpan(span, err)
	return n, err
}

func (s *StoreWithTracing) TopProducts(ctx context.Context, branchIDs []uint, limit int) ([]domain.ProductSales, error) {
	ctx, span := tracer.Start(ctx, "repository.TopProducts", trace.WithAttributes(
		branchScopeAttr(branchIDs),
		attribute.Int("limit", limit),
	))
	defer span.End()

	rows, err := s.next.TopProducts(ctx, branchIDs, limit)
	addDBErrorToSpan(span, err)
	span.SetAttributes(attribute.Int("result.count", len(rows)))
	return rows, err
}

func (s *StoreWithTracing) LowStock(ctx context.Context, branchIDs []uint, threshold int) ([]domain.InventoryRecord, error) {
	ctx, span := tracer.Start(ctx, "repository.LowStock", trace.WithAttributes(
		branchScopeAttr(branchIDs),
		attribute.Int("threshold", threshold),
	))
	defer span.End()

	records, err := s.next.LowStock(ctx, branchIDs, threshold)
	addDBErrorToSpan(span, err)
	span.SetAttributes(attribute.Int("result.count", len(records)))
	return records, err
}

func (s *StoreWithTracing) ListBranchIDs(ctx context.Context) ([]uint, error) {
	ctx, span := tracer.Start(ctx, "repository.ListBranchIDs")
	defer span.End()

	ids, err := s.next.ListBranchIDs(ctx)
	addDBErrorToSpan(span, err)
	return ids, err
}

func (s *StoreWithTracing) ListInventory(ctx context.Context, branchIDs []uint) ([]domain.InventoryRecord, error) {
	ctx, span := tracer.Start(ctx, "repository.ListInventory", trace.WithAttributes(branchScopeAttr(branchIDs)))
	defer span.End()

	records, err := s.next.ListInventory(ctx, branchIDs)
	addDBErrorToSpan(span, err)
	span.SetAttributes(attribute.Int("result.count", len(records)))
	return records, err
}

func (s *StoreWithTracing) ListAvailable(ctx context.Context, branchID uint) ([]domain.InventoryRecord, error) {
	ctx, span := tracer.Start(ctx, "repository.ListAvailable", trace.WithAttributes(attribute.Int("branch.id", int(branchID))))
	defer span.End()

	records, err := s.next.ListAvailable(ctx, branchID)
	addDBErrorToSpan(span, err)
	return records, err
}

func (s *StoreWithTracing) ListMovements(ctx context.Context, branchIDs []uint, limit, offset int) ([]domain.StockMovement, error) {
	ctx, span := tracer.Start(ctx, "repository.ListMovements", trace.WithAttributes(
		branchScopeAttr(branchIDs),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	))
	defer span.End()

	movements, err := s.next.ListMovements(ctx, branchIDs, limit, offset)
	addDBErrorToSpan(span, err)
	return movements, err
}

func (s *StoreWithTracing) InventoryStats(ctx context.Context, branchIDs []uint, threshold int) (*domain.InventoryStats, error) {
	ctx, span := tracer.Start(ctx, "repository.InventoryStats", trace.WithAttributes(branchScopeAttr(branchIDs)))
	defer span.End()

	stats, err := s.next.InventoryStats(ctx, branchIDs, threshold)
	addDBErrorToSpan(span, err)
	return stats, err
}

type ledgerRepositoryWithTracing struct {
	next domain.LedgerRepository
}

func (r *ledgerRepositoryWithTracing) FindBranch(ctx context.Context, id uint) (*domain.Branch, error) {
	ctx, span := tracer.Start(ctx, "repository.FindBranch", trace.WithAttributes(attribute.Int("branch.id", int(id))))
	defer span.End()

	branch, err := r.next.FindBranch(ctx, id)
	addDBErrorToSpan(span, err)
	span.SetAttributes(attribute.Bool("found", branch != nil))
	return branch, err
}

func (r *ledgerRepositoryWithTracing) FindProduct(ctx context.Context, id uint) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "repository.FindProduct", trace.WithAttributes(attribute.Int("product.id", int(id))))
	defer span.End()

	product, err := r.next.FindProduct(ctx, id)
	addDBErrorToSpan(span, err)
	span.SetAttributes(attribute.Bool("found", product != nil))
	return product, err
}

func (r *ledgerRepositoryWithTracing) LockRecord(ctx context.Context, branchID, productID uint) (*domain.InventoryRecord, error) {
	ctx, span := tracer.Start(ctx, "repository.LockRecord", trace.WithAttributes(recordAttrs(branchID, productID)...))
	defer span.End()

	record, err := r.next.LockRecord(ctx, branchID, productID)
	addDBErrorToSpan(span, err)
	if record != nil {
		span.SetAttributes(attribute.Int("inventory.quantity", record.Quantity))
	}
	return record, err
}

func (r *ledgerRepositoryWithTracing) LockRecords(ctx context.Context, branchID uint, productIDs []uint) error {
	ctx, span := tracer.Start(ctx, "repository.LockRecords", trace.WithAttributes(
		attribute.Int("branch.id", int(branchID)),
		attribute.Int("rows", len(productIDs)),
	))
	defer span.End()

	err := r.next.LockRecords(ctx, branchID, productIDs)
	addDBErrorToSpan(span, err)
	return err
}

func (r *ledgerRepositoryWithTracing) LockOrCreateRecord(ctx context.Context, branchID, productID uint) (*domain.InventoryRecord, error) {
	ctx, span := tracer.Start(ctx, "repository.LockOrCreateRecord", trace.WithAttributes(recordAttrs(branchID, productID)...))
	defer span.End()

	record, err := r.next.LockOrCreateRecord(ctx, branchID, productID)
	addDBErrorToSpan(span, err)
	return record, err
}

func (r *ledgerRepositoryWithTracing) UpdateQuantity(ctx context.Context, record *domain.InventoryRecord) error {
	ctx, span := tracer.Start(ctx, "repository.UpdateQuantity", trace.WithAttributes(
		append(recordAttrs(record.BranchID, record.ProductID), attribute.Int("inventory.quantity", record.Quantity))...,
	))
	defer span.End()

	err := r.next.UpdateQuantity(ctx, record)
	addDBErrorToSpan(span, err)
	return err
}

func (r *ledgerRepositoryWithTracing) AppendMovements(ctx context.Context, movements []domain.StockMovement) error {
	ctx, span := tracer.Start(ctx, "repository.AppendMovements", trace.WithAttributes(attribute.Int("rows", len(movements))))
	defer span.End()

	err := r.next.AppendMovements(ctx, movements)
	addDBErrorToSpan(span, err)
	return err
}

func (r *ledgerRepositoryWithTracing) CreateOrder(ctx context.Context, order *domain.Order) error {
	ctx, span := tracer.Start(ctx, "repository.CreateOrder", trace.WithAttributes(
		attribute.Int("branch.id", int(order.BranchID)),
		attribute.Int("order.items", len(order.Items)),
	))
	defer span.End()

	err := r.next.CreateOrder(ctx, order)
	addDBErrorToSpan(span, err)
	if err == nil {
		span.SetAttributes(attribute.Int("order.id", int(order.ID)))
	}
	return err
}

func recordAttrs(branchID, productID uint) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("branch.id", int(branchID)),
		attribute.Int("product.id", int(productID)),
	}
}

func branchScopeAttr(branchIDs []uint) attribute.KeyValue {
	ids := make([]int, len(branchIDs))
	for i, id := range branchIDs {
		ids[i] = int(id)
	}
	return attribute.IntSlice("branch.ids", ids)
}

// Helper function to add database error details to span
func addDBErrorToSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("database error: %v", err))
	}
}
