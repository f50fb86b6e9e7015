package query

import (
	"context"
	"fmt"

	"github.com/tair/smart-inventory/internal/inventory/domain"
)

type InventoryStatsQuery struct {
	BranchIDs []uint
}

type InventoryStatsHandler struct {
	reader domain.InventoryReader
}

func NewInventoryStatsHandler(reader domain.InventoryReader) *InventoryStatsHandler {
	return &InventoryStatsHandler{reader: reader}
}

func (h *InventoryStatsHandler) Handle(ctx context.Context, q InventoryStatsQuery) (*domain.InventoryStats, error) {
	stats, err := h.reader.InventoryStats(ctx, q.BranchIDs, domain.LowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to compute inventory stats: %w", err)
	}
	return stats, nil
}
