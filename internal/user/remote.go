package user

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/frahmantamala/finsolve-gateway/internal/upstream"
)

type Remote struct {
	client *upstream.Client
}

func NewRemote(client *upstream.Client) *Remote {
	return &Remote{client: client}
}

func (r *Remote) ListUsers(ctx context.Context, bearer string) ([]User, error) {
	var users []User
	if err := r.client.DoJSON(ctx, http.MethodGet, "/user", bearer, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *Remote) CreateUser(ctx context.Context, bearer string, creds Credentials) error {
	return r.client.DoJSON(ctx, http.MethodPost, "/users", bearer, creds, nil)
}

func (r *Remote) UpdateUser(ctx context.Context, bearer string, id string, creds Credentials) error {
	err := r.client.DoJSON(ctx, http.MethodPut, "/users/"+url.PathEscape(id), bearer, creds, nil)
	if se, ok := upstream.AsStatusError(err); ok && se.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}
