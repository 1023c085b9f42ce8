package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
)

// Record is a document as the registry stores it.
type Record struct {
	ID           string          `json:"_id"`
	Title        string          `json:"title"`
	Uploader     string          `json:"uploader"`
	Category     access.Category `json:"category"`
	AllowedRoles []access.RoleID `json:"allowed_roles"`
	Description  string          `json:"description,omitempty"`
	Content      string          `json:"document"`
}

func (r Record) VisibleTo(role access.RoleID) bool {
	return access.ContainsRole(r.AllowedRoles, role)
}

// CategoryFilter is a document category or CategoryAll.
type CategoryFilter string

const CategoryAll CategoryFilter = "all"

// ParseCategoryFilter accepts a known category, "all" or an empty string (all).
func ParseCategoryFilter(s string) (CategoryFilter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == string(CategoryAll) {
		return CategoryAll, nil
	}
	c, ok := access.ParseCategory(s)
	if !ok {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return CategoryFilter(c), nil
}

func (f CategoryFilter) Matches(c access.Category) bool {
	return f == CategoryAll || access.Category(f) == c
}

// VisibleDocuments keeps the records role may see and then narrows them to
// category. Input order is preserved and the result is never nil.
func VisibleDocuments(all []Record, role access.RoleID, category CategoryFilter) []Record {
	out := make([]Record, 0, len(all))
	for _, r := range all {
		if !r.VisibleTo(role) {
			continue
		}
		if !category.Matches(r.Category) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// NormalizeAllowedRoles returns roles without unknown or repeated entries,
// followed by the executive role and the category's owning role when missing.
func NormalizeAllowedRoles(category access.Category, roles []access.RoleID) []access.RoleID {
	out := make([]access.RoleID, 0, len(roles)+2)
	add := func(r access.RoleID) {
		if r.Valid() && !access.ContainsRole(out, r) {
			out = append(out, r)
		}
	}

	for _, r := range roles {
		add(access.RoleID(strings.TrimSpace(string(r))))
	}
	add(access.RoleCLevel)
	if owner, ok := category.OwnerRole(); ok {
		add(owner)
	}
	return out
}

// ParseAllowedRoles splits comma separated role lists, as sent by upload forms.
func ParseAllowedRoles(values []string) []access.RoleID {
	var out []access.RoleID
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, access.RoleID(part))
			}
		}
	}
	return out
}

// Upload is a normalized upload ready for the registry.
type Upload struct {
	Title        string
	Category     access.Category
	Description  string
	AllowedRoles []access.RoleID
	FileName     string
	Content      []byte
}

// RemoteAPI is the document endpoint set of the external registry.
type RemoteAPI interface {
	ListDocuments(ctx context.Context, bearer string) ([]Record, error)
	UploadDocument(ctx context.Context, bearer string, upload Upload) (Record, error)
}
