package command

import (
	"context"
	"time"

	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/internal/inventory/ledger"
	"github.com/tair/smart-inventory/pkg/logger"
)

// AddStockCommand receives new units of a product at a branch
type AddStockCommand struct {
	Actor     domain.Actor
	BranchID  uint
	ProductID uint
	Quantity  int
	Note      string
}

// AddStockHandler handles add stock command
type AddStockHandler struct {
	uow     domain.UnitOfWork
	events  domain.EventPublisher
	metrics *Metrics
}

// NewAddStockHandler creates a new add stock handler
func NewAddStockHandler(uow domain.UnitOfWork, events domain.EventPublisher, metrics *Metrics) *AddStockHandler {
	return &AddStockHandler{uow: uow, events: events, metrics: metrics}
}

// Handle executes the add stock command
func (h *AddStockHandler) Handle(ctx context.Context, cmd AddStockCommand) (*domain.InventoryRecord, error) {
	start := time.Now()

	var record *domain.InventoryRecord
	var movement *domain.StockMovement
	err := h.uow.WithinTransaction(ctx, func(ctx context.Context, repo domain.LedgerRepository) error {
		var err error
		record, movement, err = ledger.AddStock(ctx, repo, ledger.Entry{
			BranchID:  cmd.BranchID,
			ProductID: cmd.ProductID,
			Quantity:  cmd.Quantity,
			UserID:    cmd.Actor.UserID,
			Note:      cmd.Note,
		})
		return err
	})
	h.metrics.observe(ledger.OpAddStock, start, err)
	if err != nil {
		logFailure(ctx, ledger.OpAddStock, err)
		return nil, err
	}

	logger.Info(ctx).
		Uint("branch_id", cmd.BranchID).
		Uint("product_id", cmd.ProductID).
		Int("quantity", cmd.Quantity).
		Int("stock", record.Quantity).
		Uint("user_id", cmd.Actor.UserID).
		Msg("Stock added")

	publishMovements(ctx, h.events, []domain.StockMovement{*movement})
	return record, nil
}
