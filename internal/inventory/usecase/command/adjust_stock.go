package command

import (
	"context"
	"time"

	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/internal/inventory/ledger"
	"github.com/tair/smart-inventory/pkg/logger"
)

// AdjustStockCommand corrects a stock count by a signed delta
type AdjustStockCommand struct {
	Actor     domain.Actor
	BranchID  uint
	ProductID uint
	Delta     int
	Note      string
}

type AdjustStockHandler struct {
	uow     domain.UnitOfWork
	events  domain.EventPublisher
	metrics *Metrics
}

func NewAdjustStockHandler(uow domain.UnitOfWork, events domain.EventPublisher, metrics *Metrics) *AdjustStockHandler {
	return &AdjustStockHandler{uow: uow, events: events, metrics: metrics}
}

func (h *AdjustStockHandler) Handle(ctx context.Context, cmd AdjustStockCommand) (*domain.InventoryRecord, error) {
	start := time.Now()

	var record *domain.InventoryRecord
	var movement *domain.StockMovement
	err := h.uow.WithinTransaction(ctx, func(ctx context.Context, repo domain.LedgerRepository) error {
		var err error
		record, movement, err = ledger.AdjustStock(ctx, repo, ledger.Entry{
			BranchID:  cmd.BranchID,
			ProductID: cmd.ProductID,
			Quantity:  cmd.Delta,
			UserID:    cmd.Actor.UserID,
			Note:      cmd.Note,
		})
		return err
	})
	h.metrics.observe(ledger.OpAdjustStock, start, err)
	if err != nil {
		logFailure(ctx, ledger.OpAdjustStock, err)
		return nil, err
	}

	logger.Info(ctx).
		Uint("branch_id", cmd.BranchID).
		Uint("product_id", cmd.ProductID).
		Int("delta", cmd.Delta).
		Int("stock", record.Quantity).
		Msg("Stock adjusted")

	publishMovements(ctx, h.events, []domain.StockMovement{*movement})
	return record, nil
}
