package access

import "strings"

// RoleID is one of the organizational roles used for access decisions.
type RoleID string

const (
	RoleFinance     RoleID = "finance"
	RoleMarketing   RoleID = "marketing"
	RoleHR          RoleID = "hr"
	RoleEngineering RoleID = "engineering"
	RoleCLevel      RoleID = "c-level-executive"
	RoleEmployee    RoleID = "employee"
)

// Roles lists every known role in display order.
var Roles = []RoleID{
	RoleFinance,
	RoleMarketing,
	RoleHR,
	RoleEngineering,
	RoleCLevel,
	RoleEmployee,
}

var roleDisplayNames = map[RoleID]string{
	RoleFinance:     "Finance Team",
	RoleMarketing:   "Marketing Team",
	RoleHR:          "HR Team",
	RoleEngineering: "Engineering Department",
	RoleCLevel:      "C-Level Executive",
	RoleEmployee:    "Employee",
}

func ParseRole(s string) (RoleID, bool) {
	r := RoleID(strings.TrimSpace(s))
	if r.Valid() {
		return r, true
	}
	return "", false
}

func (r RoleID) Valid() bool {
	_, ok := roleDisplayNames[r]
	return ok
}

// DisplayName returns the label shown for the role, or the raw id when unknown.
func (r RoleID) DisplayName() string {
	if name, ok := roleDisplayNames[r]; ok {
		return name
	}
	return string(r)
}

func (r RoleID) IsExecutive() bool {
	return r == RoleCLevel
}

// Category is the data category a document belongs to.
type Category string

const (
	CategoryFinance     Category = "finance"
	CategoryMarketing   Category = "marketing"
	CategoryHR          Category = "hr"
	CategoryEngineering Category = "engineering"
	CategoryGeneral     Category = "general"
)

var Categories = []Category{
	CategoryFinance,
	CategoryMarketing,
	CategoryHR,
	CategoryEngineering,
	CategoryGeneral,
}

func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// OwnerRole returns the department role implied by the category.
// The general category has no owning role.
func (c Category) OwnerRole() (RoleID, bool) {
	switch c {
	case CategoryFinance:
		return RoleFinance, true
	case CategoryMarketing:
		return RoleMarketing, true
	case CategoryHR:
		return RoleHR, true
	case CategoryEngineering:
		return RoleEngineering, true
	}
	return "", false
}

func ContainsRole(roles []RoleID, role RoleID) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
