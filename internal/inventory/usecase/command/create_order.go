package command

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/internal/inventory/ledger"
	"github.com/tair/smart-inventory/pkg/logger"
)

const OpCreateOrder = "create_order"

// CreateOrderCommand sells the given lines at one branch
type CreateOrderCommand struct {
	Actor    domain.Actor
	BranchID uint
	Lines    []domain.OrderLine
}

// CreateOrderHandler turns an order into stock deductions and priced order
// lines inside one transaction. Either every line is applied or none is.
type CreateOrderHandler struct {
	uow     domain.UnitOfWork
	events  domain.EventPublisher
	metrics *Metrics
}

func NewCreateOrderHandler(uow domain.UnitOfWork, events domain.EventPublisher, metrics *Metrics) *CreateOrderHandler {
	return &CreateOrderHandler{uow: uow, events: events, metrics: metrics}
}

func (h *CreateOrderHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	start := time.Now()

	if err := validateLines(cmd.Lines); err != nil {
		h.metrics.observe(OpCreateOrder, start, err)
		return nil, err
	}

	var order *domain.Order
	err := h.uow.WithinTransaction(ctx, func(ctx context.Context, repo domain.LedgerRepository) error {
		var err error
		order, err = fulfill(ctx, repo, cmd)
		return err
	})
	h.metrics.observe(OpCreateOrder, start, err)
	if err != nil {
		logFailure(ctx, OpCreateOrder, err)
		return nil, err
	}
	h.metrics.orderCreated(order)

	logger.Info(ctx).
		Uint("order_id", order.ID).
		Uint("branch_id", order.BranchID).
		Uint("user_id", order.UserID).
		Int("items", len(order.Items)).
		Str("total", order.Total.StringFixed(2)).
		Msg("Order created")

	if h.events != nil {
		if err := h.events.PublishOrderCreated(ctx, order); err != nil {
			logger.Warn(ctx).Err(err).Uint("order_id", order.ID).Msg("Failed to publish order created event")
		}
	}
	return order, nil
}

func validateLines(lines []domain.OrderLine) error {
	if len(lines) == 0 {
		return domain.Validation(OpCreateOrder, "order must contain at least one item")
	}
	for i, line := range lines {
		if line.ProductID == 0 {
			return domain.Validation(OpCreateOrder, fmt.Sprintf("item %d: product_id is required", i+1))
		}
		if line.Quantity <= 0 {
			return domain.Validation(OpCreateOrder, fmt.Sprintf("item %d: quantity must be greater than zero", i+1))
		}
	}
	return nil
}

func fulfill(ctx context.Context, repo domain.LedgerRepository, cmd CreateOrderCommand) (*domain.Order, error) {
	if err := ledger.RequireBranch(ctx, repo, OpCreateOrder, cmd.BranchID); err != nil {
		return nil, err
	}

	// lock every touched row up front, in product id order
	productIDs := make([]uint, 0, len(cmd.Lines))
	for _, line := range cmd.Lines {
		productIDs = append(productIDs, line.ProductID)
	}
	slices.Sort(productIDs)
	productIDs = slices.Compact(productIDs)
	if err := repo.LockRecords(ctx, cmd.BranchID, productIDs); err != nil {
		return nil, err
	}

	order := &domain.Order{
		BranchID: cmd.BranchID,
		UserID:   cmd.Actor.UserID,
		Items:    make([]domain.OrderItem, 0, len(cmd.Lines)),
	}
	subtotal, tax := decimal.Zero, decimal.Zero

	for _, line := range cmd.Lines {
		product, err := ledger.RequireActiveProduct(ctx, repo, OpCreateOrder, line.ProductID)
		if err != nil {
			return nil, err
		}
		if _, err := ledger.DecrementForSale(ctx, repo, cmd.BranchID, line.ProductID, line.Quantity); err != nil {
			return nil, err
		}

		linePrice, lineTax := LineAmounts(product.SalePrice, line.Quantity, product.TaxPercentage)
		subtotal = subtotal.Add(linePrice)
		tax = tax.Add(lineTax)

		order.Items = append(order.Items, domain.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     product.SalePrice,
			Tax:       lineTax,
		})
	}

	order.Subtotal = subtotal
	order.Tax = tax
	order.Total = subtotal.Add(tax)

	if err := repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}
