package query

import (
	"context"
	"fmt"
	"slices"

	"github.com/tair/smart-inventory/internal/inventory/domain"
)

// ScopeResolver turns an actor into the branch ids it may read.
type ScopeResolver struct {
	reader domain.InventoryReader
}

func NewScopeResolver(reader domain.InventoryReader) *ScopeResolver {
	return &ScopeResolver{reader: reader}
}

// Resolve returns every branch for super admins and the actor's own branches otherwise.
func (r *ScopeResolver) Resolve(ctx context.Context, actor domain.Actor) ([]uint, error) {
	if !actor.IsSuperAdmin() {
		ids := slices.Clone(actor.BranchIDs)
		slices.Sort(ids)
		return slices.Compact(ids), nil
	}
	ids, err := r.reader.ListBranchIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve branch scope: %w", err)
	}
	return ids, nil
}
