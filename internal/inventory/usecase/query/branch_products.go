package query

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tair/smart-inventory/internal/inventory/domain"
)

// BranchProduct is a product that can be sold at a branch right now
type BranchProduct struct {
	ProductID     uint            `json:"product_id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	TaxPercentage decimal.Decimal `json:"tax_percentage"`
	Stock         int             `json:"stock"`
	Status        string          `json:"status"`
}

type ListBranchProductsQuery struct {
	BranchID uint
}

type ListBranchProductsHandler struct {
	reader domain.InventoryReader
}

func NewListBranchProductsHandler(reader domain.InventoryReader) *ListBranchProductsHandler {
	return &ListBranchProductsHandler{reader: reader}
}

// Handle lists products with stock > 0 at the branch. Inactive products are included with their status.
func (h *ListBranchProductsHandler) Handle(ctx context.Context, q ListBranchProductsQuery) ([]BranchProduct, error) {
	if q.BranchID == 0 {
		return nil, domain.Validation("branch_products", "branch id is required")
	}

	records, err := h.reader.ListAvailable(ctx, q.BranchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list branch products: %w", err)
	}

	products := make([]BranchProduct, 0, len(records))
	for _, r := range records {
		if r.Product == nil {
			continue
		}
		products = append(products, BranchProduct{
			ProductID:     r.ProductID,
			Name:          r.Product.Name,
			SKU:           r.Product.SKU,
			SalePrice:     r.Product.SalePrice,
			TaxPercentage: r.Product.TaxPercentage,
			Stock:         r.Quantity,
			Status:        r.Product.Status,
		})
	}
	return products, nil
}
