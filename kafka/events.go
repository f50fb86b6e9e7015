package kafka

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockMovedEvent mirrors one committed stock movement row
type StockMovedEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	MovementID uint      `json:"movement_id"`
	BranchID   uint      `json:"branch_id"`
	ProductID  uint      `json:"product_id"`
	Type       string    `json:"type"`
	Quantity   int       `json:"quantity"`
	UserID     uint      `json:"user_id"`
	Note       string    `json:"note,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// OrderCreatedEvent is published once an order has been committed
type OrderCreatedEvent struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	OrderID   uint             `json:"order_id"`
	BranchID  uint             `json:"branch_id"`
	UserID    uint             `json:"user_id"`
	Subtotal  decimal.Decimal  `json:"subtotal"`
	Tax       decimal.Decimal  `json:"tax"`
	Total     decimal.Decimal  `json:"total"`
	Items     []OrderItemEvent `json:"items"`
	Timestamp time.Time        `json:"timestamp"`
}

type OrderItemEvent struct {
	ProductID uint            `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Tax       decimal.Decimal `json:"tax"`
}

// StockReceivedEvent is a delivery from purchasing to be booked as added stock
type StockReceivedEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	BranchID  uint      `json:"branch_id"`
	ProductID uint      `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UserID    uint      `json:"user_id"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypeStockMoved    = "stock.moved"
	EventTypeOrderCreated  = "order.created"
	EventTypeStockReceived = "stock.received"
)

// Kafka topics
const (
	TopicStockMoved    = "stock-moved"
	TopicOrderCreated  = "order-created"
	TopicStockReceived = "stock-received"
)
