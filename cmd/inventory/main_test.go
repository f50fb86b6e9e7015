package main

import (
	"context"
	"testing"
	"time"

	"github.com/tair/smart-inventory/internal/config"
	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/pkg/auth"
)

func TestNewTokenManagerFallsBackInDevelopment(t *testing.T) {
	tokens := newTokenManager(config.Config{Environment: "development", JWTIssuer: "smart-inventory"})

	dev, err := auth.NewTokenManager(devJWTSecret, "smart-inventory")
	if err != nil {
		t.Fatal(err)
	}
	token, err := dev.GenerateToken(auth.Claims{UserID: 1, Role: domain.RoleSuperAdmin}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tokens.ValidateToken(token); err != nil {
		t.Errorf("development token rejected: %v", err)
	}
}

func TestOpenMemoryStore(t *testing.T) {
	store, pinger, closeStore := openStore(context.Background(), config.Config{StoreDriver: config.StoreDriverMemory})
	defer closeStore()

	if pinger != nil {
		t.Error("memory store has no database to ping")
	}
	err := store.WithinTransaction(context.Background(), func(ctx context.Context, repo domain.LedgerRepository) error {
		branch, err := repo.FindBranch(ctx, 1)
		if err != nil {
			return err
		}
		if branch != nil {
			t.Errorf("fresh store has branch %+v", branch)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTransaction: %v", err)
	}
}
