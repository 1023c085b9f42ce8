package registry

import (
	"context"

	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
)

// Entry is one row of the role permission matrix.
type Entry struct {
	Role                  string `json:"role"`
	Description           string `json:"description"`
	CanViewFinance        bool   `json:"can_view_finance"`
	CanViewMarketing      bool   `json:"can_view_marketing"`
	CanViewHR             bool   `json:"can_view_hr"`
	CanViewEngineering    bool   `json:"can_view_engineering"`
	CanViewCompanyGeneral bool   `json:"can_view_company_general"`
}

// Normalize applies the matrix invariants: company-general is always
// viewable and the executive role sees everything.
func (e Entry) Normalize() Entry {
	e.CanViewCompanyGeneral = true
	if access.RoleID(e.Role).IsExecutive() {
		e.CanViewFinance = true
		e.CanViewMarketing = true
		e.CanViewHR = true
		e.CanViewEngineering = true
	}
	return e
}

func (e Entry) Allows(category access.Category) bool {
	switch category {
	case access.CategoryFinance:
		return e.CanViewFinance
	case access.CategoryMarketing:
		return e.CanViewMarketing
	case access.CategoryHR:
		return e.CanViewHR
	case access.CategoryEngineering:
		return e.CanViewEngineering
	case access.CategoryGeneral:
		return e.CanViewCompanyGeneral
	}
	return false
}

// Categories returns the categories the entry may view, in canonical order.
func (e Entry) Categories() []access.Category {
	out := make([]access.Category, 0, len(access.Categories))
	for _, c := range access.Categories {
		if e.Allows(c) {
			out = append(out, c)
		}
	}
	return out
}

// DefaultEntries is the matrix the registry ships with.
func DefaultEntries() []Entry {
	return []Entry{
		{Role: string(access.RoleFinance), Description: "Finance team members", CanViewFinance: true, CanViewCompanyGeneral: true},
		{Role: string(access.RoleMarketing), Description: "Marketing team members", CanViewMarketing: true, CanViewCompanyGeneral: true},
		{Role: string(access.RoleHR), Description: "HR team members", CanViewHR: true, CanViewCompanyGeneral: true},
		{Role: string(access.RoleEngineering), Description: "Engineering team members", CanViewEngineering: true, CanViewCompanyGeneral: true},
		{Role: string(access.RoleCLevel), Description: "C-level executives with full access", CanViewFinance: true, CanViewMarketing: true, CanViewHR: true, CanViewEngineering: true, CanViewCompanyGeneral: true},
		{Role: string(access.RoleEmployee), Description: "Regular employees with limited access", CanViewCompanyGeneral: true},
	}
}

// RemoteAPI is the role endpoint set of the external registry. Every call
// carries the caller's bearer credential.
type RemoteAPI interface {
	ListRoles(ctx context.Context, bearer string) ([]Entry, error)
	CreateRole(ctx context.Context, bearer string, entry Entry) error
	UpdateRole(ctx context.Context, bearer string, role string, entry Entry) error
}

// Checker answers whether a role may view a category. The guard and the
// dashboard depend on this instead of the full service.
type Checker interface {
	Allows(role access.RoleID, category access.Category) bool
}
