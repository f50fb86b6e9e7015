package command_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/internal/inventory/repository"
	"github.com/tair/smart-inventory/internal/inventory/usecase/command"
)

func TestTransferMovesStockAndWritesPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, 1, widgetID, 10)

	result, err := f.transfer.Handle(ctx, command.TransferStockCommand{
		Actor: manager, FromBranchID: 1, ToBranchID: 2, ProductID: widgetID, Quantity: 4,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.Source.Quantity != 6 || result.Destination.Quantity != 4 {
		t.Errorf("source=%d destination=%d", result.Source.Quantity, result.Destination.Quantity)
	}
	if f.quantity(1, widgetID) != 6 || f.quantity(2, widgetID) != 4 {
		t.Errorf("committed quantities %d/%d", f.quantity(1, widgetID), f.quantity(2, widgetID))
	}

	movements := f.store.Movements()[1:]
	if len(movements) != 2 {
		t.Fatalf("transfer movements = %d, want 2", len(movements))
	}
	out, in := movements[0], movements[1]
	if out.Type != domain.MovementTransferOut || out.BranchID != 1 || out.Quantity != -4 {
		t.Errorf("unexpected transfer_out %+v", out)
	}
	if in.Type != domain.MovementTransferIn || in.BranchID != 2 || in.Quantity != 4 {
		t.Errorf("unexpected transfer_in %+v", in)
	}
}

func TestTransferRoundTripRestoresQuantities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, 1, widgetID, 7)
	f.stock(t, 2, widgetID, 3)

	for _, cmd := range []command.TransferStockCommand{
		{Actor: manager, FromBranchID: 1, ToBranchID: 2, ProductID: widgetID, Quantity: 5},
		{Actor: manager, FromBranchID: 2, ToBranchID: 1, ProductID: widgetID, Quantity: 5},
	} {
		if _, err := f.transfer.Handle(ctx, cmd); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}

	if f.quantity(1, widgetID) != 7 || f.quantity(2, widgetID) != 3 {
		t.Errorf("round trip changed quantities: %d/%d", f.quantity(1, widgetID), f.quantity(2, widgetID))
	}
}

func TestTransferRejects(t *testing.T) {
	tests := []struct {
		name string
		cmd  command.TransferStockCommand
		want error
	}{
		{"insufficient", command.TransferStockCommand{FromBranchID: 1, ToBranchID: 2, ProductID: widgetID, Quantity: 11}, domain.ErrInsufficientStock},
		{"same branch", command.TransferStockCommand{FromBranchID: 1, ToBranchID: 1, ProductID: widgetID, Quantity: 1}, domain.ErrValidation},
		{"zero quantity", command.TransferStockCommand{FromBranchID: 1, ToBranchID: 2, ProductID: widgetID, Quantity: 0}, domain.ErrValidation},
		{"missing source record", command.TransferStockCommand{FromBranchID: 2, ToBranchID: 1, ProductID: widgetID, Quantity: 1}, domain.ErrNotFound},
		{"unknown destination", command.TransferStockCommand{FromBranchID: 1, ToBranchID: 77, ProductID: widgetID, Quantity: 1}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.stock(t, 1, widgetID, 10)

			if _, err := f.transfer.Handle(context.Background(), tt.cmd); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if f.quantity(1, widgetID) != 10 {
				t.Errorf("source changed to %d", f.quantity(1, widgetID))
			}
			if _, ok := f.store.Quantity(2, widgetID); ok {
				t.Error("destination record must not be created by a failed transfer")
			}
			if len(f.store.Movements()) != 1 {
				t.Errorf("failed transfer wrote movements")
			}
		})
	}
}

func TestConcurrentOppositeTransfersAdjustsAndSales(t *testing.T) {
	f := newFixture(t, repository.WithLockTimeout(2*time.Second))
	ctx := context.Background()
	f.stock(t, 1, widgetID, 100)
	f.stock(t, 2, widgetID, 100)

	ops := make([]func() error, 0, 200)
	for i := 0; i < 50; i++ {
		ops = append(ops,
			func() error {
				_, err := f.transfer.Handle(ctx, command.TransferStockCommand{Actor: manager, FromBranchID: 1, ToBranchID: 2, ProductID: widgetID, Quantity: 1})
				return err
			},
			func() error {
				_, err := f.transfer.Handle(ctx, command.TransferStockCommand{Actor: manager, FromBranchID: 2, ToBranchID: 1, ProductID: widgetID, Quantity: 1})
				return err
			},
			func() error {
				_, err := f.adjust.Handle(ctx, command.AdjustStockCommand{Actor: manager, BranchID: 2, ProductID: widgetID, Delta: 1})
				return err
			},
			func() error {
				_, err := f.order.Handle(ctx, command.CreateOrderCommand{
					Actor: manager, BranchID: 1, Lines: []domain.OrderLine{{ProductID: widgetID, Quantity: 1}},
				})
				return err
			},
		)
	}

	var wg sync.WaitGroup
	var failed int64
	for _, op := range ops {
		wg.Add(1)
		go func(op func() error) {
			defer wg.Done()
			if err := op(); err != nil {
				atomic.AddInt64(&failed, 1)
				t.Errorf("operation failed: %v", err)
			}
		}(op)
	}
	wg.Wait()
	if failed != 0 {
		t.Fatalf("%d operations failed", failed)
	}

	sold := 0
	for _, o := range f.store.Orders() {
		for _, item := range o.Items {
			sold += item.Quantity
		}
	}
	if sold != 50 {
		t.Errorf("sold = %d, want 50", sold)
	}

	sums := map[uint]int{}
	for _, m := range f.store.Movements() {
		sums[m.BranchID] += m.Quantity
	}
	if got := f.quantity(1, widgetID); got != 50 || got != sums[1]-sold {
		t.Errorf("branch 1 quantity = %d, want 50 (movements %d minus sold %d)", got, sums[1], sold)
	}
	if got := f.quantity(2, widgetID); got != 150 || got != sums[2] {
		t.Errorf("branch 2 quantity = %d, want 150 matching movements %d", got, sums[2])
	}
}
