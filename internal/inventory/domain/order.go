package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a completed point-of-sale order.
type Order struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	BranchID  uint            `json:"branch_id" gorm:"not null;index"`
	UserID    uint            `json:"user_id" gorm:"not null;index"`
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	Tax       decimal.Decimal `json:"tax" gorm:"type:numeric(12,2);not null"`
	Total     decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt time.Time       `json:"updated_at"`

	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem snapshots the unit price and the computed line tax at sale time.
type OrderItem struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"not null;index"`
	ProductID uint            `json:"product_id" gorm:"not null;index"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Tax       decimal.Decimal `json:"tax" gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// OrderLine is one requested (product, quantity) pair of a new order.
type OrderLine struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// ProductSales is one row of the top products ranking.
type ProductSales struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	TotalSold int64  `json:"total_sold"`
}
