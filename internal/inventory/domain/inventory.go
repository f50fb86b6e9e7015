package domain

import (
	"time"
)

// LowStockThreshold marks records at or below this quantity as low stock.
const LowStockThreshold = 10

// MovementType is the kind of a stock movement row.
type MovementType string

const (
	MovementAdd         MovementType = "add"
	MovementAdjust      MovementType = "adjust"
	MovementTransferOut MovementType = "transfer_out"
	MovementTransferIn  MovementType = "transfer_in"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementAdd, MovementAdjust, MovementTransferOut, MovementTransferIn:
		return true
	}
	return false
}

// InventoryRecord is the stock counter for one product at one branch
type InventoryRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BranchID  uint      `json:"branch_id" gorm:"not null;uniqueIndex:idx_inventories_branch_product"`
	ProductID uint      `json:"product_id" gorm:"not null;uniqueIndex:idx_inventories_branch_product;index"`
	Quantity  int       `json:"quantity" gorm:"not null;default:0;check:quantity >= 0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Branch  *Branch  `json:"branch,omitempty" gorm:"foreignKey:BranchID"`
}

// TableName specifies the table name
func (InventoryRecord) TableName() string {
	return "inventories"
}

// StockMovement is an append-only audit row. Quantity is the signed delta.
type StockMovement struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	BranchID  uint         `json:"branch_id" gorm:"not null;index"`
	ProductID uint         `json:"product_id" gorm:"not null;index"`
	Type      MovementType `json:"type" gorm:"type:varchar(20);not null"`
	Quantity  int          `json:"quantity" gorm:"not null"`
	Note      string       `json:"note,omitempty"`
	UserID    uint         `json:"user_id" gorm:"index"`
	CreatedAt time.Time    `json:"created_at" gorm:"index"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Branch  *Branch  `json:"branch,omitempty" gorm:"foreignKey:BranchID"`
}

func (StockMovement) TableName() string {
	return "stock_movements"
}

// InventoryStats is the aggregate shown on the inventory dashboard.
type InventoryStats struct {
	TotalVolume     int64 `json:"total_volume" gorm:"column:total_volume"`
	LowStockCount   int64 `json:"low_stock_count" gorm:"column:low_stock_count"`
	OutOfStockCount int64 `json:"out_of_stock_count" gorm:"column:out_of_stock_count"`
	TotalSKUs       int64 `json:"total_skus" gorm:"column:total_skus"`
}
