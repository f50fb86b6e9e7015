package command

import (
	"context"
	"time"

	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/internal/inventory/ledger"
	"github.com/tair/smart-inventory/pkg/logger"
)

// TransferStockCommand moves units of one product between branches
type TransferStockCommand struct {
	Actor        domain.Actor
	FromBranchID uint
	ToBranchID   uint
	ProductID    uint
	Quantity     int
	Note         string
}

type TransferStockHandler struct {
	uow     domain.UnitOfWork
	events  domain.EventPublisher
	metrics *Metrics
}

func NewTransferStockHandler(uow domain.UnitOfWork, events domain.EventPublisher, metrics *Metrics) *TransferStockHandler {
	return &TransferStockHandler{uow: uow, events: events, metrics: metrics}
}

func (h *TransferStockHandler) Handle(ctx context.Context, cmd TransferStockCommand) (*ledger.TransferResult, error) {
	start := time.Now()

	var result *ledger.TransferResult
	err := h.uow.WithinTransaction(ctx, func(ctx context.Context, repo domain.LedgerRepository) error {
		var err error
		result, err = ledger.Transfer(ctx, repo, ledger.TransferEntry{
			FromBranchID: cmd.FromBranchID,
			ToBranchID:   cmd.ToBranchID,
			ProductID:    cmd.ProductID,
			Quantity:     cmd.Quantity,
			UserID:       cmd.Actor.UserID,
			Note:         cmd.Note,
		})
		return err
	})
	h.metrics.observe(ledger.OpTransferStock, start, err)
	if err != nil {
		logFailure(ctx, ledger.OpTransferStock, err)
		return nil, err
	}

	logger.Info(ctx).
		Uint("from_branch_id", cmd.FromBranchID).
		Uint("to_branch_id", cmd.ToBranchID).
		Uint("product_id", cmd.ProductID).
		Int("quantity", cmd.Quantity).
		Msg("Stock transferred")

	publishMovements(ctx, h.events, result.Movements)
	return result, nil
}
