package command_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/internal/inventory/repository"
	"github.com/tair/smart-inventory/internal/inventory/usecase/command"
)

const (
	widgetID  uint = 1
	gadgetID  uint = 2
	retiredID uint = 3
)

var manager = domain.Actor{UserID: 9, Role: domain.RoleBranchManager, BranchIDs: []uint{1}}

type fakePublisher struct {
	mu        sync.Mutex
	movements []domain.StockMovement
	orders    []domain.Order
	err       error
}

func (p *fakePublisher) PublishStockMoved(ctx context.Context, movements []domain.StockMovement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.movements = append(p.movements, movements...)
	return p.err
}

func (p *fakePublisher) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, *order)
	return p.err
}

type fixture struct {
	store    *repository.MemoryStore
	events   *fakePublisher
	add      *command.AddStockHandler
	adjust   *command.AdjustStockHandler
	transfer *command.TransferStockHandler
	order    *command.CreateOrderHandler
}

func newFixture(t *testing.T, opts ...repository.MemoryOption) *fixture {
	t.Helper()

	store := repository.NewMemoryStore(opts...)
	for _, b := range []domain.Branch{{ID: 1, Name: "Downtown"}, {ID: 2, Name: "Airport"}} {
		if _, err := store.PutBranch(b); err != nil {
			t.Fatalf("PutBranch: %v", err)
		}
	}
	products := []domain.Product{
		{ID: widgetID, Name: "Widget", SKU: "W-1", SalePrice: decimal.RequireFromString("20.00"), TaxPercentage: decimal.NewFromInt(10)},
		{ID: gadgetID, Name: "Gadget", SKU: "G-1", SalePrice: decimal.RequireFromString("5.55"), TaxPercentage: decimal.RequireFromString("7.5")},
		{ID: retiredID, Name: "Retired", SKU: "R-1", SalePrice: decimal.NewFromInt(1), Status: domain.ProductStatusInactive},
	}
	for _, p := range products {
		if _, err := store.PutProduct(p); err != nil {
			t.Fatalf("PutProduct: %v", err)
		}
	}

	events := &fakePublisher{}
	return &fixture{
		store:    store,
		events:   events,
		add:      command.NewAddStockHandler(store, events, nil),
		adjust:   command.NewAdjustStockHandler(store, events, nil),
		transfer: command.NewTransferStockHandler(store, events, nil),
		order:    command.NewCreateOrderHandler(store, events, nil),
	}
}

func (f *fixture) stock(t *testing.T, branchID, productID uint, qty int) {
	t.Helper()
	if _, err := f.add.Handle(context.Background(), command.AddStockCommand{
		Actor: manager, BranchID: branchID, ProductID: productID, Quantity: qty,
	}); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

func (f *fixture) quantity(branchID, productID uint) int {
	q, _ := f.store.Quantity(branchID, productID)
	return q
}
