package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/smart-inventory/internal/inventory/domain"
)

// InventoryItem is an inventory row enriched with product and branch names
type InventoryItem struct {
	ID          uint      `json:"id"`
	BranchID    uint      `json:"branch_id"`
	BranchName  string    `json:"branch_name"`
	ProductID   uint      `json:"product_id"`
	ProductName string    `json:"product_name"`
	SKU         string    `json:"sku"`
	Quantity    int       `json:"quantity"`
	LowStock    bool      `json:"low_stock"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListInventoryQuery represents the query to list inventories
type ListInventoryQuery struct {
	BranchIDs []uint
}

// ListInventoryHandler handles list inventory query
type ListInventoryHandler struct {
	reader domain.InventoryReader
}

// NewListInventoryHandler creates a new list inventory handler
func NewListInventoryHandler(reader domain.InventoryReader) *ListInventoryHandler {
	return &ListInventoryHandler{reader: reader}
}

// Handle executes the list inventory query
func (h *ListInventoryHandler) Handle(ctx context.Context, q ListInventoryQuery) ([]InventoryItem, error) {
	records, err := h.reader.ListInventory(ctx, q.BranchIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventories: %w", err)
	}

	items := make([]InventoryItem, 0, len(records))
	for _, r := range records {
		item := InventoryItem{
			ID:        r.ID,
			BranchID:  r.BranchID,
			ProductID: r.ProductID,
			Quantity:  r.Quantity,
			LowStock:  r.Quantity <= domain.LowStockThreshold,
			UpdatedAt: r.UpdatedAt,
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
	return items, nil
}
