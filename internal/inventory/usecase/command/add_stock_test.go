package command_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/internal/inventory/usecase/command"
)

func TestAddStockCreatesAndIncrements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.add.Handle(ctx, command.AddStockCommand{Actor: manager, BranchID: 1, ProductID: widgetID, Quantity: 5, Note: "delivery"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if rec.Quantity != 5 {
		t.Errorf("quantity = %d, want 5", rec.Quantity)
	}

	rec, err = f.add.Handle(ctx, command.AddStockCommand{Actor: manager, BranchID: 1, ProductID: widgetID, Quantity: 3})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if rec.Quantity != 8 {
		t.Errorf("quantity = %d, want 8", rec.Quantity)
	}

	movements := f.store.Movements()
	if len(movements) != 2 {
		t.Fatalf("movements = %d, want 2", len(movements))
	}
	first := movements[0]
	if first.Type != domain.MovementAdd || first.Quantity != 5 || first.UserID != manager.UserID || first.Note != "delivery" {
		t.Errorf("unexpected movement %+v", first)
	}
	if len(f.events.movements) != 2 {
		t.Errorf("published movements = %d, want 2", len(f.events.movements))
	}
}

func TestAddStockRejects(t *testing.T) {
	tests := []struct {
		name string
		cmd  command.AddStockCommand
		want error
	}{
		{"zero quantity", command.AddStockCommand{BranchID: 1, ProductID: widgetID, Quantity: 0}, domain.ErrValidation},
		{"negative quantity", command.AddStockCommand{BranchID: 1, ProductID: widgetID, Quantity: -2}, domain.ErrValidation},
		{"unknown branch", command.AddStockCommand{BranchID: 42, ProductID: widgetID, Quantity: 1}, domain.ErrNotFound},
		{"unknown product", command.AddStockCommand{BranchID: 1, ProductID: 42, Quantity: 1}, domain.ErrNotFound},
		{"inactive product", command.AddStockCommand{BranchID: 1, ProductID: retiredID, Quantity: 1}, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.cmd.Actor = manager

			_, err := f.add.Handle(context.Background(), tt.cmd)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(f.store.Movements()) != 0 {
				t.Error("rejected add must not write movements")
			}
			if len(f.events.movements) != 0 {
				t.Error("rejected add must not publish")
			}
		})
	}
}

func TestAddStockConcurrentSumOfDeltas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 40
	var wg sync.WaitGroup
	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			if _, err := f.add.Handle(ctx, command.AddStockCommand{Actor: manager, BranchID: 1, ProductID: widgetID, Quantity: qty}); err != nil {
				t.Errorf("Handle: %v", err)
			}
		}(i)
	}
	wg.Wait()

	want := workers * (workers + 1) / 2
	if got := f.quantity(1, widgetID); got != want {
		t.Errorf("quantity = %d, want %d", got, want)
	}

	sum := 0
	for _, m := range f.store.Movements() {
		sum += m.Quantity
	}
	if sum != want {
		t.Errorf("sum of movement deltas = %d, want %d", sum, want)
	}
}

func TestPublishFailureDoesNotFailCommittedAdd(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")

	rec, err := f.add.Handle(context.Background(), command.AddStockCommand{Actor: manager, BranchID: 1, ProductID: widgetID, Quantity: 2})
	if err != nil {
		t.Fatalf("publish failure must not surface: %v", err)
	}
	if rec.Quantity != 2 || f.quantity(1, widgetID) != 2 {
		t.Errorf("stock should be committed")
	}
}
