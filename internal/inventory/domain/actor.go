package domain

import "slices"

const (
	RoleSuperAdmin    = "super_admin"
	RoleBranchManager = "branch_manager"
	RoleSales         = "sales"
)

// Actor is the authenticated caller. It is passed explicitly to every
// operation instead of being read from ambient state.
type Actor struct {
	UserID    uint
	Role      string
	BranchIDs []uint
}

func (a Actor) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// CanAccessBranch reports whether a may read or mutate stock at branchID.
func (a Actor) CanAccessBranch(branchID uint) bool {
	if a.IsSuperAdmin() {
		return true
	}
	return slices.Contains(a.BranchIDs, branchID)
}

func ValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleBranchManager, RoleSales:
		return true
	}
	return false
}
