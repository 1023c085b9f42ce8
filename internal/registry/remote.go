package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/frahmantamala/finsolve-gateway/internal/upstream"
)

// Remote implements RemoteAPI over the registry's REST endpoints.
type Remote struct {
	client *upstream.Client
}

func NewRemote(client *upstream.Client) *Remote {
	return &Remote{client: client}
}

func (r *Remote) ListRoles(ctx context.Context, bearer string) ([]Entry, error) {
	var raw json.RawMessage
	if err := r.client.DoJSON(ctx, http.MethodGet, "/roles", bearer, nil, &raw); err != nil {
		return nil, err
	}

	// The registry answers either a bare array or {"roles": [...]}.
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err == nil {
		return entries, nil
	}
	var wrapped RolesResponse
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, &upstream.TransportError{Service: r.client.Name(), Err: err}
	}
	return wrapped.Roles, nil
}

func (r *Remote) CreateRole(ctx context.Context, bearer string, entry Entry) error {
	return r.client.DoJSON(ctx, http.MethodPost, "/roles", bearer, entry, nil)
}

func (r *Remote) UpdateRole(ctx context.Context, bearer string, role string, entry Entry) error {
	return r.client.DoJSON(ctx, http.MethodPut, "/roles/"+url.PathEscape(role), bearer, entry, nil)
}
