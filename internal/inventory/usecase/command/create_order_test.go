package command_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/internal/inventory/repository"
	"github.com/tair/smart-inventory/internal/inventory/usecase/command"
)

func TestCreateOrderPricesAndDeducts(t *testing.T) {
	f := newFixture(t)
	f.stock(t, 1, widgetID, 5)
	sales := domain.Actor{UserID: 9, Role: domain.RoleSales, BranchIDs: []uint{1}}

	order, err := f.order.Handle(context.Background(), command.CreateOrderCommand{
		Actor:    sales,
		BranchID: 1,
		Lines:    []domain.OrderLine{{ProductID: widgetID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	assertMoney(t, "subtotal", order.Subtotal, "60.00")
	assertMoney(t, "tax", order.Tax, "6.00")
	assertMoney(t, "total", order.Total, "66.00")
	if order.UserID != 9 || order.BranchID != 1 || order.ID == 0 {
		t.Errorf("unexpected order header %+v", order)
	}
	if len(order.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(order.Items))
	}
	item := order.Items[0]
	assertMoney(t, "unit price", item.Price, "20.00")
	assertMoney(t, "line tax", item.Tax, "6.00")
	if item.Quantity != 3 || item.OrderID != order.ID {
		t.Errorf("unexpected item %+v", item)
	}

	if got := f.quantity(1, widgetID); got != 2 {
		t.Errorf("stock = %d, want 2", got)
	}
	if len(f.events.orders) != 1 {
		t.Errorf("order events = %d, want 1", len(f.events.orders))
	}
}

func TestCreateOrderRoundsTaxPerLine(t *testing.T) {
	f := newFixture(t)
	f.stock(t, 1, gadgetID, 10)

	// 5.55 x 1 at 7.5% is 0.41625 per line
	order, err := f.order.Handle(context.Background(), command.CreateOrderCommand{
		Actor:    manager,
		BranchID: 1,
		Lines:    []domain.OrderLine{{ProductID: gadgetID, Quantity: 1}, {ProductID: gadgetID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	assertMoney(t, "subtotal", order.Subtotal, "11.10")
	assertMoney(t, "tax", order.Tax, "0.84")
	assertMoney(t, "total", order.Total, "11.94")
	if got := f.quantity(1, gadgetID); got != 8 {
		t.Errorf("stock = %d, want 8", got)
	}
}

func TestCreateOrderInsufficientStockLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	f.stock(t, 1, widgetID, 2)

	_, err := f.order.Handle(context.Background(), command.CreateOrderCommand{
		Actor:    manager,
		BranchID: 1,
		Lines:    []domain.OrderLine{{ProductID: widgetID, Quantity: 3}},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) || domainErr.ProductID != widgetID || domainErr.BranchID != 1 {
		t.Errorf("error should name product and branch: %v", err)
	}
	if got := f.quantity(1, widgetID); got != 2 {
		t.Errorf("stock = %d, want 2", got)
	}
	if len(f.store.Orders()) != 0 || len(f.events.orders) != 0 {
		t.Error("failed order must not be persisted or published")
	}
}

func TestCreateOrderIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.stock(t, 1, widgetID, 5)
	f.stock(t, 1, gadgetID, 1)

	_, err := f.order.Handle(context.Background(), command.CreateOrderCommand{
		Actor:    manager,
		BranchID: 1,
		Lines: []domain.OrderLine{
			{ProductID: widgetID, Quantity: 4},
			{ProductID: gadgetID, Quantity: 2},
		},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if f.quantity(1, widgetID) != 5 || f.quantity(1, gadgetID) != 1 {
		t.Errorf("partial deduction leaked: widget=%d gadget=%d", f.quantity(1, widgetID), f.quantity(1, gadgetID))
	}
	if len(f.store.Orders()) != 0 {
		t.Error("no order should exist")
	}
}

func TestCreateOrderDuplicateLinesDeductInSequence(t *testing.T) {
	f := newFixture(t)
	f.stock(t, 1, widgetID, 3)
	lines := []domain.OrderLine{{ProductID: widgetID, Quantity: 2}, {ProductID: widgetID, Quantity: 2}}

	_, err := f.order.Handle(context.Background(), command.CreateOrderCommand{Actor: manager, BranchID: 1, Lines: lines})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	f.stock(t, 1, widgetID, 1)
	order, err := f.order.Handle(context.Background(), command.CreateOrderCommand{Actor: manager, BranchID: 1, Lines: lines})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(order.Items) != 2 || f.quantity(1, widgetID) != 0 {
		t.Errorf("items=%d stock=%d", len(order.Items), f.quantity(1, widgetID))
	}
}

func TestCreateOrderRejects(t *testing.T) {
	tests := []struct {
		name     string
		branchID uint
		lines    []domain.OrderLine
		want     error
	}{
		{"no lines", 1, nil, domain.ErrValidation},
		{"zero quantity", 1, []domain.OrderLine{{ProductID: widgetID, Quantity: 0}}, domain.ErrValidation},
		{"missing product id", 1, []domain.OrderLine{{Quantity: 1}}, domain.ErrValidation},
		{"unknown product", 1, []domain.OrderLine{{ProductID: 404, Quantity: 1}}, domain.ErrNotFound},
		{"inactive product", 1, []domain.OrderLine{{ProductID: retiredID, Quantity: 1}}, domain.ErrValidation},
		{"unknown branch", 404, []domain.OrderLine{{ProductID: widgetID, Quantity: 1}}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.stock(t, 1, widgetID, 5)

			_, err := f.order.Handle(context.Background(), command.CreateOrderCommand{Actor: manager, BranchID: tt.branchID, Lines: tt.lines})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if f.quantity(1, widgetID) != 5 {
				t.Errorf("stock changed to %d", f.quantity(1, widgetID))
			}
		})
	}
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	f := newFixture(t)
	f.stock(t, 1, widgetID, 10)

	const buyers = 30
	var (
		wg           sync.WaitGroup
		succeeded    atomic.Int64
		insufficient atomic.Int64
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.order.Handle(context.Background(), command.CreateOrderCommand{
				Actor:    manager,
				BranchID: 1,
				Lines:    []domain.OrderLine{{ProductID: widgetID, Quantity: 1}},
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				insufficient.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded.Load() != 10 || insufficient.Load() != buyers-10 {
		t.Errorf("succeeded=%d insufficient=%d", succeeded.Load(), insufficient.Load())
	}
	if got := f.quantity(1, widgetID); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}
	if len(f.store.Orders()) != 10 {
		t.Errorf("orders = %d, want 10", len(f.store.Orders()))
	}
}

func TestCreateOrderTimesOutOnHeldLock(t *testing.T) {
	f := newFixture(t, repository.WithLockTimeout(20*time.Millisecond))
	f.stock(t, 1, widgetID, 5)

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = f.store.WithinTransaction(context.Background(), func(ctx context.Context, repo domain.LedgerRepository) error {
			if _, err := repo.LockRecord(ctx, 1, widgetID); err != nil {
				return err
			}
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	_, err := f.order.Handle(context.Background(), command.CreateOrderCommand{
		Actor:    manager,
		BranchID: 1,
		Lines:    []domain.OrderLine{{ProductID: widgetID, Quantity: 1}},
	})
	close(release)

	if !errors.Is(err, domain.ErrContention) {
		t.Fatalf("expected contention, got %v", err)
	}
	if got := f.quantity(1, widgetID); got != 5 {
		t.Errorf("stock = %d, want 5", got)
	}
}

func assertMoney(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", field, got.StringFixed(2), want)
	}
}
