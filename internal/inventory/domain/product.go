package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// Product is reference data: the service reads it but never edits it.
type Product struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	Name          string          `json:"name" gorm:"not null"`
	SKU           string          `json:"sku" gorm:"uniqueIndex;not null"`
	CostPrice     decimal.Decimal `json:"cost_price" gorm:"type:numeric(12,2);not null;default:0"`
	SalePrice     decimal.Decimal `json:"sale_price" gorm:"type:numeric(12,2);not null;default:0"`
	TaxPercentage decimal.Decimal `json:"tax_percentage" gorm:"type:numeric(5,2);not null;default:0"`
	Status        string          `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

var hundred = decimal.NewFromInt(100)

// Validate checks the product row invariants.
func (p *Product) Validate() error {
	const op = "validate_product"
	switch {
	case strings.TrimSpace(p.Name) == "":
		return Validation(op, "product name is required")
	case strings.TrimSpace(p.SKU) == "":
		return Validation(op, "product sku is required")
	case p.SalePrice.IsNegative() || p.CostPrice.IsNegative():
		return Validation(op, "prices must not be negative")
	case p.TaxPercentage.IsNegative() || p.TaxPercentage.GreaterThan(hundred):
		return Validation(op, "tax percentage must be between 0 and 100")
	case p.Status != ProductStatusActive && p.Status != ProductStatusInactive:
		return Validation(op, "unknown product status "+p.Status)
	}
	return nil
}
