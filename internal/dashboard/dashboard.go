package dashboard

import (
	"context"

	"github.com/frahmantamala/finsolve-gateway/internal/chat"
	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/frahmantamala/finsolve-gateway/internal/document"
	"github.com/frahmantamala/finsolve-gateway/internal/registry"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/user"
)

// Link is one entry of the dashboard navigation.
type Link struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

// Navigation is every dashboard view in menu order.
var Navigation = []Link{
	{Path: "/dashboard", Label: "Chat"},
	{Path: "/dashboard/upload", Label: "Upload Documents"},
	{Path: "/dashboard/documents", Label: "Documents"},
	{Path: "/dashboard/users", Label: "Manage Users"},
	{Path: "/dashboard/roles", Label: "Manage Roles"},
}

type RoleLister interface {
	List(ctx context.Context, identity session.Identity) []registry.Entry
}

type UserLister interface {
	List(ctx context.Context, identity session.Identity) ([]user.View, error)
}

type DocumentLister interface {
	List(ctx context.Context, identity session.Identity, category document.CategoryFilter) ([]document.Record, error)
}

type ChatReader interface {
	Models(ctx context.Context, identity session.Identity) []chat.Model
	Transcript(sessionID string) []chat.Entry
	State(ctx context.Context, sessionID string) (chat.State, error)
}

// PathPermitter decides whether a role may open a dashboard path.
type PathPermitter interface {
	Permits(path string, role access.RoleID) bool
}

type RoleOption struct {
	ID   access.RoleID `json:"id"`
	Name string        `json:"name"`
}

type HomeView struct {
	User       session.View      `json:"user"`
	Links      []Link            `json:"links"`
	Categories []access.Category `json:"categories"`
	Models     []chat.Model      `json:"models"`
	Default    string            `json:"default_model"`
	Chat       chat.State        `json:"chat_state"`
	Transcript []chat.Entry      `json:"transcript"`
}

type RolesView struct {
	Roles []registry.Entry `json:"roles"`
}

type UsersView struct {
	Users []user.View  `json:"users"`
	Roles []RoleOption `json:"roles"`
}

type DocumentsView struct {
	Documents  []document.Record `json:"documents"`
	Categories []access.Category `json:"categories"`
}

type UploadView struct {
	Categories []access.Category `json:"categories"`
	Roles      []RoleOption      `json:"roles"`
	Extensions []string          `json:"extensions"`
	MaxBytes   int64             `json:"max_bytes"`
}

func roleOptions() []RoleOption {
	out := make([]RoleOption, 0, len(access.Roles))
	for _, r := range access.Roles {
		out = append(out, RoleOption{ID: r, Name: r.DisplayName()})
	}
	return out
}
