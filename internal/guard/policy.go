package guard

import (
	"sort"
	"strings"

	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/frahmantamala/finsolve-gateway/internal/registry"
)

const (
	LoginPath   = "/login"
	LandingPath = "/dashboard"
)

// Requirement is what an identity must satisfy to render a route. An empty
// Roles list admits every role; every listed category must be viewable.
type Requirement struct {
	Roles      []access.RoleID
	Categories []access.Category
}

func (req Requirement) SatisfiedBy(role access.RoleID, checker registry.Checker) bool {
	if len(req.Roles) > 0 && !access.ContainsRole(req.Roles, role) {
		return false
	}
	for _, c := range req.Categories {
		if checker == nil || !checker.Allows(role, c) {
			return false
		}
	}
	return true
}

type Rule struct {
	Pattern     string
	Requirement Requirement
}

// Policy maps route prefixes to requirements. The longest matching prefix wins.
type Policy struct {
	rules []Rule
}

func NewPolicy(rules ...Rule) Policy {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	for i := range sorted {
		sorted[i].Pattern = cleanPath(sorted[i].Pattern)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Pattern) > len(sorted[j].Pattern)
	})
	return Policy{rules: sorted}
}

// DefaultPolicy protects the dashboard and keeps its admin views for executives.
func DefaultPolicy() Policy {
	executiveOnly := Requirement{Roles: []access.RoleID{access.RoleCLevel}}
	return NewPolicy(
		Rule{Pattern: LandingPath},
		Rule{Pattern: "/dashboard/upload", Requirement: executiveOnly},
		Rule{Pattern: "/dashboard/users", Requirement: executiveOnly},
		Rule{Pattern: "/dashboard/roles", Requirement: executiveOnly},
		Rule{Pattern: "/dashboard/documents", Requirement: executiveOnly},
	)
}

// Match returns the requirement for path and whether the path is protected at all.
func (p Policy) Match(path string) (Requirement, bool) {
	path = cleanPath(path)
	for _, rule := range p.rules {
		if path == rule.Pattern || strings.HasPrefix(path, rule.Pattern+"/") {
			return rule.Requirement, true
		}
	}
	return Requirement{}, false
}

// Permits reports whether role may render path. Unprotected paths are always permitted.
func (p Policy) Permits(path string, role access.RoleID, checker registry.Checker) bool {
	req, protected := p.Match(path)
	if !protected {
		return true
	}
	return req.SatisfiedBy(role, checker)
}

func cleanPath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
