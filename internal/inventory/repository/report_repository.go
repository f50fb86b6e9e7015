package repository

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/tair/smart-inventory/internal/inventory/domain"
)

// branchArray encodes a branch scope for "= ANY(?)". An empty scope matches no rows.
func branchArray(ids []uint) interface{} {
	arr := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		arr[i] = int64(id)
	}
	return arr
}

func (s *GormStore) SalesTotal(ctx context.Context, branchIDs []uint, from, to time.Time) (decimal.Decimal, error) {
	q := s.db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("COALESCE(SUM(total), 0)").
		Where("branch_id = ANY(?)", branchArray(branchIDs)).
		Where("created_at >= ?", from)
	if !to.IsZero() {
		q = q.Where("created_at < ?", to)
	}

	var total decimal.Decimal
	if err := q.Row().Scan(&total); err != nil {
		return decimal.Zero, translateError("sum sales", err)
	}
	return total, nil
}

func (s *GormStore) CountOrders(ctx context.Context, branchIDs []uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("branch_id = ANY(?)", branchArray(branchIDs)).
		Count(&count).Error
	if err != nil {
		return 0, translateError("count orders", err)
	}
	return count, nil
}

func (s *GormStore) TopProducts(ctx context.Context, branchIDs []uint, limit int) ([]domain.ProductSales, error) {
	var rows []domain.ProductSales
	q := s.db.WithContext(ctx).
		Table("order_items").
		Select("products.id AS product_id, products.name AS name, SUM(order_items.quantity) AS total_sold").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("orders.branch_id = ANY(?)", branchArray(branchIDs)).
		Group("products.id, products.name").
		Order("total_sold DESC, products.id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, translateError("rank top products", err)
	}
	return rows, nil
}

func (s *GormStore) LowStock(ctx context.Context, branchIDs []uint, threshold int) ([]domain.InventoryRecord, error) {
	var records []domain.InventoryRecord
	err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Branch").
		Where("branch_id = ANY(?) AND quantity <= ?", branchArray(branchIDs), threshold).
		Order("quantity, id").
		Find(&records).Error
	if err != nil {
		return nil, translateError("list low stock", err)
	}
	return records, nil
}

func (s *GormStore) ListBranchIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&domain.Branch{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, translateError("list branches", err)
	}
	return ids, nil
}

func (s *GormStore) ListInventory(ctx context.Context, branchIDs []uint) ([]domain.InventoryRecord, error) {
	var records []domain.InventoryRecord
	err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Branch").
		Where("branch_id = ANY(?)", branchArray(branchIDs)).
		Order("branch_id, product_id").
		Find(&records).Error
	if err != nil {
		return nil, translateError("list inventory", err)
	}
	return records, nil
}

func (s *GormStore) ListAvailable(ctx context.Context, branchID uint) ([]domain.InventoryRecord, error) {
	var records []domain.InventoryRecord
	err := s.db.WithContext(ctx).
		Preload("Product").
		Where("branch_id = ? AND quantity > 0", branchID).
		Order("product_id").
		Find(&records).Error
	if err != nil {
		return nil, translateError("list available stock", err)
	}
	return records, nil
}

func (s *GormStore) ListMovements(ctx context.Context, branchIDs []uint, limit, offset int) ([]domain.StockMovement, error) {
	var movements []domain.StockMovement
	q := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Branch").
		Where("branch_id = ANY(?)", branchArray(branchIDs)).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&movements).Error; err != nil {
		return nil, translateError("list stock movements", err)
	}
	return movements, nil
}

func (s *GormStore) InventoryStats(ctx context.Context, branchIDs []uint, threshold int) (*domain.InventoryStats, error) {
	var stats domain.InventoryStats
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(quantity), 0) AS total_volume,
			COUNT(*) FILTER (WHERE quantity <= ?) AS low_stock_count,
			COUNT(*) FILTER (WHERE quantity <= 0) AS out_of_stock_count,
			COUNT(DISTINCT product_id) AS total_skus
		FROM inventories
		WHERE branch_id = ANY(?)`, threshold, branchArray(branchIDs)).
		Scan(&stats).Error
	if err != nil {
		return nil, translateError("compute inventory stats", err)
	}
	return &stats, nil
}
