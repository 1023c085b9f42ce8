package registry

import (
	"strings"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/core/common/validation"
)

// UpsertDTO is the body of POST /roles and PUT /roles/{role}.
type UpsertDTO struct {
	Role                  string `json:"role" validate:"notblank,max=64"`
	Description           string `json:"description" validate:"notblank,max=512"`
	CanViewFinance        bool   `json:"can_view_finance"`
	CanViewMarketing      bool   `json:"can_view_marketing"`
	CanViewHR             bool   `json:"can_view_hr"`
	CanViewEngineering    bool   `json:"can_view_engineering"`
	CanViewCompanyGeneral bool   `json:"can_view_company_general"`
}

func (d UpsertDTO) Validate() error {
	return validation.Struct(d, "Role name and description are required", internal.ErrCodeRegistryValidation)
}

func (d UpsertDTO) ToEntry() Entry {
	return Entry{
		Role:                  strings.TrimSpace(d.Role),
		Description:           strings.TrimSpace(d.Description),
		CanViewFinance:        d.CanViewFinance,
		CanViewMarketing:      d.CanViewMarketing,
		CanViewHR:             d.CanViewHR,
		CanViewEngineering:    d.CanViewEngineering,
		CanViewCompanyGeneral: d.CanViewCompanyGeneral,
	}.Normalize()
}

type RolesResponse struct {
	Roles []Entry `json:"roles"`
}

type UpsertResponse struct {
	Message string `json:"message"`
	Role    Entry  `json:"role"`
	Created bool   `json:"created"`
}
