package query

import (
	"context"
	"fmt"

	"github.com/tair/smart-inventory/internal/inventory/domain"
)

// LowStockItem is an inventory row at or below the low stock threshold.
type LowStockItem struct {
	InventoryID uint   `json:"inventory_id"`
	BranchID    uint   `json:"branch_id"`
	BranchName  string `json:"branch_name"`
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
}

type GetLowStockQuery struct {
	BranchIDs []uint
}

type GetLowStockHandler struct {
	reports domain.ReportRepository
}

func NewGetLowStockHandler(reports domain.ReportRepository) *GetLowStockHandler {
	return &GetLowStockHandler{reports: reports}
}

func (h *GetLowStockHandler) Handle(ctx context.Context, q GetLowStockQuery) ([]LowStockItem, error) {
	records, err := h.reports.LowStock(ctx, q.BranchIDs, domain.LowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	return toLowStockItems(records), nil
}

func toLowStockItems(records []domain.InventoryRecord) []LowStockItem {
	items := make([]LowStockItem, 0, len(records))
	for _, r := range records {
		item := LowStockItem{
			InventoryID: r.ID,
			BranchID:    r.BranchID,
			ProductID:   r.ProductID,
			Quantity:    r.Quantity,
		}
		if r.Product != nil {
			item.ProductName = r.Product.Name
			item.SKU = r.Product.SKU
		}
		if r.Branch != nil {
			item.BranchName = r.Branch.Name
		}
		items = append(items, item)
	}
	return items
}
