package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/smart-inventory/internal/inventory/domain"
)

// MovementView is one row of the stock movement history
type MovementView struct {
	ID          uint                `json:"id"`
	Type        domain.MovementType `json:"type"`
	Quantity    int                 `json:"quantity"`
	Note        string              `json:"note,omitempty"`
	UserID      uint                `json:"user_id"`
	BranchID    uint                `json:"branch_id"`
	BranchName  string              `json:"branch_name"`
	ProductID   uint                `json:"product_id"`
	ProductName string              `json:"product_name"`
	CreatedAt   time.Time           `json:"created_at"`
}

type MovementHistoryQuery struct {
	BranchIDs []uint
	Limit     int
	Offset    int
}

type MovementHistoryHandler struct {
	reader domain.InventoryReader
}

func NewMovementHistoryHandler(reader domain.InventoryReader) *MovementHistoryHandler {
	return &MovementHistoryHandler{reader: reader}
}

// Handle returns movements newest first.
func (h *MovementHistoryHandler) Handle(ctx context.Context, q MovementHistoryQuery) ([]MovementView, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 200 {
		q.Limit = 200
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	movements, err := h.reader.ListMovements(ctx, q.BranchIDs, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}

	views := make([]MovementView, 0, len(movements))
	for _, m := range movements {
		v := MovementView{
			ID:        m.ID,
			Type:      m.Type,
			Quantity:  m.Quantity,
			Note:      m.Note,
			UserID:    m.UserID,
			BranchID:  m.BranchID,
			ProductID: m.ProductID,
			CreatedAt: m.CreatedAt,
		}
		if m.Product != nil {
			v.ProductName = m.Product.Name
		}
		if m.Branch != nil {
			v.BranchName = m.Branch.Name
		}
		views = append(views, v)
	}
	return views, nil
}
