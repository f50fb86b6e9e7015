package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerRepository is bound to a single open transaction. Lookup methods
// return a nil value and a nil error when the row does not exist.
type LedgerRepository interface {
	FindBranch(ctx context.Context, id uint) (*Branch, error)
	FindProduct(ctx context.Context, id uint) (*Product, error)

	// LockRecord takes the row lock on the (branch, product) record.
	LockRecord(ctx context.Context, branchID, productID uint) (*InventoryRecord, error)
	// LockRecords locks every existing record of productIDs at branchID in ascending product id order.
	LockRecords(ctx context.Context, branchID uint, productIDs []uint) error
	// LockOrCreateRecord locks the record, inserting it with quantity 0 first if needed.
	LockOrCreateRecord(ctx context.Context, branchID, productID uint) (*InventoryRecord, error)
	// UpdateQuantity persists record.Quantity. The record must be locked by this transaction.
	UpdateQuantity(ctx context.Context, record *InventoryRecord) error

	AppendMovements(ctx context.Context, movements []StockMovement) error
	CreateOrder(ctx context.Context, order *Order) error
}

// UnitOfWork runs fn inside one transaction. A non-nil error from fn, a
// panic, or a failed commit rolls everything back.
type UnitOfWork interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo LedgerRepository) error) error
}

// ReportRepository serves read-only aggregates over committed rows.
type ReportRepository interface {
	// SalesTotal sums order totals created in [from, to). A zero to leaves the range open.
	SalesTotal(ctx context.Context, branchIDs []uint, from, to time.Time) (decimal.Decimal, error)
	CountOrders(ctx context.Context, branchIDs []uint) (int64, error)
	TopProducts(ctx context.Context, branchIDs []uint, limit int) ([]ProductSales, error)
	// LowStock returns records with quantity <= threshold with Product and Branch loaded.
	LowStock(ctx context.Context, branchIDs []uint, threshold int) ([]InventoryRecord, error)
}

// InventoryReader backs the inventory listing endpoints.
type InventoryReader interface {
	ListBranchIDs(ctx context.Context) ([]uint, error)
	ListInventory(ctx context.Context, branchIDs []uint) ([]InventoryRecord, error)
	// ListAvailable returns records with quantity > 0 at branchID with Product loaded.
	ListAvailable(ctx context.Context, branchID uint) ([]InventoryRecord, error)
	// ListMovements returns movements newest first with Product and Branch loaded.
	ListMovements(ctx context.Context, branchIDs []uint, limit, offset int) ([]StockMovement, error)
	InventoryStats(ctx context.Context, branchIDs []uint, threshold int) (*InventoryStats, error)
}

// Store is everything a storage backend provides.
type Store interface {
	UnitOfWork
	ReportRepository
	InventoryReader
}

// EventPublisher announces committed changes. Implementations must not be
// called inside a transaction.
type EventPublisher interface {
	PublishStockMoved(ctx context.Context, movements []StockMovement) error
	PublishOrderCreated(ctx context.Context, order *Order) error
}
