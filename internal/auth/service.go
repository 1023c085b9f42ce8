package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/upstream"
)

// Service authenticates against the external Authentication Service.
type Service struct {
	client *upstream.Client
	logger *slog.Logger
}

func NewService(client *upstream.Client, logger *slog.Logger) *Service {
	return &Service{
		client: client,
		logger: logger,
	}
}

// Authenticate returns the identity exactly as the Authentication Service
// reports it. It never writes the session.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (session.Identity, error) {
	if err := dto.Validate(); err != nil {
		return session.Identity{}, err
	}

	var resp loginResponse
	err := s.client.DoJSON(ctx, http.MethodPost, "/login", "", loginRequest{
		Username: dto.Username,
		Password: dto.Password,
	}, &resp)
	if err != nil {
		if se, ok := upstream.AsStatusError(err); ok {
			return session.Identity{}, fmt.Errorf("%w: status %d", ErrInvalidCredentials, se.Status)
		}
		return session.Identity{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	if resp.AccessToken == "" {
		return session.Identity{}, fmt.Errorf("%w: response carried no access token", ErrServiceUnavailable)
	}

	role, ok := access.ParseRole(resp.Role)
	if !ok {
		s.logger.WarnContext(ctx, "authentication service returned an unknown role", "username", dto.Username, "role", resp.Role)
		return session.Identity{}, fmt.Errorf("%w: unknown role %q", ErrInvalidCredentials, resp.Role)
	}

	return session.Identity{
		Username:   dto.Username,
		Role:       role,
		Credential: resp.AccessToken,
	}, nil
}
