package dashboard

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/frahmantamala/finsolve-gateway/internal/document"
	"github.com/frahmantamala/finsolve-gateway/internal/registry"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
)

type Service struct {
	permits   PathPermitter
	checker   registry.Checker
	roles     RoleLister
	users     UserLister
	documents DocumentLister
	chat      ChatReader
	logger    *slog.Logger
}

type Dependencies struct {
	Permits   PathPermitter
	Checker   registry.Checker
	Roles     RoleLister
	Users     UserLister
	Documents DocumentLister
	Chat      ChatReader
}

func NewService(deps Dependencies, logger *slog.Logger) *Service {
	return &Service{
		permits:   deps.Permits,
		checker:   deps.Checker,
		roles:     deps.Roles,
		users:     deps.Users,
		documents: deps.Documents,
		chat:      deps.Chat,
		logger:    logger,
	}
}

// Home builds the landing view. Only links the role may open are listed.
func (s *Service) Home(ctx context.Context, identity session.Identity) HomeView {
	links := make([]Link, 0, len(Navigation))
	for _, link := range Navigation {
		if s.permits.Permits(link.Path, identity.Role) {
			links = append(links, link)
		}
	}

	categories := make([]access.Category, 0, len(access.Categories))
	for _, c := range access.Categories {
		if s.checker.Allows(identity.Role, c) {
			categories = append(categories, c)
		}
	}

	models := s.chat.Models(ctx, identity)
	state, err := s.chat.State(ctx, identity.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read chat state", "error", err)
	}

	var defaultModel string
	if len(models) > 0 {
		defaultModel = models[0].ID
	}

	return HomeView{
		User:       identity.ToView(),
		Links:      links,
		Categories: categories,
		Models:     models,
		Default:    defaultModel,
		Chat:       state,
		Transcript: s.chat.Transcript(identity.ID),
	}
}

func (s *Service) Roles(ctx context.Context, identity session.Identity) RolesView {
	return RolesView{Roles: s.roles.List(ctx, identity)}
}

func (s *Service) Users(ctx context.Context, identity session.Identity) (UsersView, error) {
	users, err := s.users.List(ctx, identity)
	if err != nil {
		return UsersView{}, err
	}
	return UsersView{Users: users, Roles: roleOptions()}, nil
}

func (s *Service) Documents(ctx context.Context, identity session.Identity) (DocumentsView, error) {
	docs, err := s.documents.List(ctx, identity, document.CategoryAll)
	if err != nil {
		return DocumentsView{}, err
	}
	return DocumentsView{Documents: docs, Categories: access.Categories}, nil
}

func (s *Service) Upload() UploadView {
	return UploadView{
		Categories: access.Categories,
		Roles:      roleOptions(),
		Extensions: document.SupportedExtensions(),
		MaxBytes:   document.MaxUploadBytes,
	}
}
