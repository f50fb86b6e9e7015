// Package ledger implements the stock mutation primitives. Every function
// runs against a transaction-bound repository and takes the row lock on a
// record before reading its quantity.
package ledger

import (
	"context"
	"fmt"

	"github.com/tair/smart-inventory/internal/inventory/domain"
)

const (
	OpAddStock         = "add_stock"
	OpAdjustStock      = "adjust_stock"
	OpTransferStock    = "transfer_stock"
	OpDecrementForSale = "decrement_for_sale"
)

// Entry describes a single-branch stock change.
type Entry struct {
	BranchID  uint
	ProductID uint
	Quantity  int
	UserID    uint
	Note      string
}

// TransferEntry moves Quantity units of a product between two branches.
type TransferEntry struct {
	FromBranchID uint
	ToBranchID   uint
	ProductID    uint
	Quantity     int
	UserID       uint
	Note         string
}

// TransferResult holds both records after the move and the two movement rows.
type TransferResult struct {
	Source      *domain.InventoryRecord
	Destination *domain.InventoryRecord
	Movements   []domain.StockMovement
}

// AddStock increments the record, creating it with quantity 0 on first use.
func AddStock(ctx context.Context, repo domain.LedgerRepository, e Entry) (*domain.InventoryRecord, *domain.StockMovement, error) {
	if e.Quantity <= 0 {
		return nil, nil, domain.Validation(OpAddStock, "quantity must be greater than zero")
	}
	if err := RequireBranch(ctx, repo, OpAddStock, e.BranchID); err != nil {
		return nil, nil, err
	}
	if _, err := RequireActiveProduct(ctx, repo, OpAddStock, e.ProductID); err != nil {
		return nil, nil, err
	}

	record, err := repo.LockOrCreateRecord(ctx, e.BranchID, e.ProductID)
	if err != nil {
		return nil, nil, err
	}

	record.Quantity += e.Quantity
	if err := repo.UpdateQuantity(ctx, record); err != nil {
		return nil, nil, err
	}

	movements := []domain.StockMovement{movement(e.BranchID, e.ProductID, domain.MovementAdd, e.Quantity, e.UserID, e.Note)}
	if err := repo.AppendMovements(ctx, movements); err != nil {
		return nil, nil, err
	}
	return record, &movements[0], nil
}

// AdjustStock applies a signed correction. The record must already exist and
// the result must not be negative. A zero delta still records a movement.
func AdjustStock(ctx context.Context, repo domain.LedgerRepository, e Entry) (*domain.InventoryRecord, *domain.StockMovement, error) {
	if _, err := RequireActiveProduct(ctx, repo, OpAdjustStock, e.ProductID); err != nil {
		return nil, nil, err
	}

	record, err := repo.LockRecord(ctx, e.BranchID, e.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, domain.NotFound(OpAdjustStock,
			fmt.Sprintf("no inventory record for product ID %d at branch %d", e.ProductID, e.BranchID),
			e.BranchID, e.ProductID)
	}

	if record.Quantity+e.Quantity < 0 {
		return nil, nil, domain.InvariantViolation(OpAdjustStock,
			fmt.Sprintf("stock cannot go negative: current %d, delta %d", record.Quantity, e.Quantity),
			e.BranchID, e.ProductID)
	}

	record.Quantity += e.Quantity
	if err := repo.UpdateQuantity(ctx, record); err != nil {
		return nil, nil, err
	}

	movements := []domain.StockMovement{movement(e.BranchID, e.ProductID, domain.MovementAdjust, e.Quantity, e.UserID, e.Note)}
	if err := repo.AppendMovements(ctx, movements); err != nil {
		return nil, nil, err
	}
	return record, &movements[0], nil
}

// Transfer moves stock from one branch to another. Both rows are locked in
// ascending branch id order.
func Transfer(ctx context.Context, repo domain.LedgerRepository, t TransferEntry) (*TransferResult, error) {
	if t.Quantity <= 0 {
		return nil, domain.Validation(OpTransferStock, "quantity must be greater than zero")
	}
	if t.FromBranchID == t.ToBranchID {
		return nil, domain.Validation(OpTransferStock, "source and destination branch must differ")
	}
	if _, err := RequireActiveProduct(ctx, repo, OpTransferStock, t.ProductID); err != nil {
		return nil, err
	}
	if err := RequireBranch(ctx, repo, OpTransferStock, t.ToBranchID); err != nil {
		return nil, err
	}

	var source, destination *domain.InventoryRecord
	var err error
	lockSource := func() error {
		source, err = repo.LockRecord(ctx, t.FromBranchID, t.ProductID)
		if err != nil {
			return err
		}
		if source == nil {
			return domain.NotFound(OpTransferStock,
				fmt.Sprintf("no inventory record for product ID %d at branch %d", t.ProductID, t.FromBranchID),
				t.FromBranchID, t.ProductID)
		}
		return nil
	}
	lockDestination := func() error {
		destination, err = repo.LockOrCreateRecord(ctx, t.ToBranchID, t.ProductID)
		return err
	}

	first, second := lockSource, lockDestination
	if t.ToBranchID < t.FromBranchID {
		first, second = lockDestination, lockSource
	}
	if err := first(); err != nil {
		return nil, err
	}
	if err := second(); err != nil {
		return nil, err
	}

	if source.Quantity < t.Quantity {
		return nil, domain.InsufficientStock(OpTransferStock, t.FromBranchID, t.ProductID, source.Quantity, t.Quantity)
	}

	source.Quantity -= t.Quantity
	destination.Quantity += t.Quantity
	if err := repo.UpdateQuantity(ctx, source); err != nil {
		return nil, err
	}
	if err := repo.UpdateQuantity(ctx, destination); err != nil {
		return nil, err
	}

	movements := []domain.StockMovement{
		movement(t.FromBranchID, t.ProductID, domain.MovementTransferOut, -t.Quantity, t.UserID, t.Note),
		movement(t.ToBranchID, t.ProductID, domain.MovementTransferIn, t.Quantity, t.UserID, t.Note),
	}
	if err := repo.AppendMovements(ctx, movements); err != nil {
		return nil, err
	}

	return &TransferResult{Source: source, Destination: destination, Movements: movements}, nil
}

// DecrementForSale deducts sold units and returns the record as it was
// before the deduction. No movement row is written; the order line is the
// audit trail for sales.
func DecrementForSale(ctx context.Context, repo domain.LedgerRepository, branchID, productID uint, quantity int) (*domain.InventoryRecord, error) {
	if quantity <= 0 {
		return nil, domain.Validation(OpDecrementForSale, "quantity must be greater than zero")
	}

	record, err := repo.LockRecord(ctx, branchID, productID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.InsufficientStock(OpDecrementForSale, branchID, productID, 0, quantity)
	}
	if record.Quantity < quantity {
		return nil, domain.InsufficientStock(OpDecrementForSale, branchID, productID, record.Quantity, quantity)
	}

	before := *record
	record.Quantity -= quantity
	if err := repo.UpdateQuantity(ctx, record); err != nil {
		return nil, err
	}
	return &before, nil
}

// RequireBranch fails with a not-found error when the branch does not exist.
func RequireBranch(ctx context.Context, repo domain.LedgerRepository, op string, branchID uint) error {
	branch, err := repo.FindBranch(ctx, branchID)
	if err != nil {
		return err
	}
	if branch == nil {
		return domain.NotFound(op, fmt.Sprintf("branch %d not found", branchID), branchID, 0)
	}
	return nil
}

// RequireActiveProduct loads a product that may be stocked or sold.
func RequireActiveProduct(ctx context.Context, repo domain.LedgerRepository, op string, productID uint) (*domain.Product, error) {
	product, err := repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NotFound(op, fmt.Sprintf("product ID %d not found", productID), 0, productID)
	}
	if !product.IsActive() {
		return nil, &domain.Error{
			Kind:      domain.ErrValidation,
			Op:        op,
			ProductID: productID,
			Message:   fmt.Sprintf("product ID %d is inactive", productID),
		}
	}
	return product, nil
}

func movement(branchID, productID uint, kind domain.MovementType, quantity int, userID uint, note string) domain.StockMovement {
	return domain.StockMovement{
		BranchID:  branchID,
		ProductID: productID,
		Type:      kind,
		Quantity:  quantity,
		UserID:    userID,
		Note:      note,
	}
}
