package middleware

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/pkg/logger"
	"github.com/unrolled/secure"
)

type SecurityOptions struct {
	// BaseURL is the public address of the gateway. Its host becomes the only
	// allowed Host header when set.
	BaseURL    string
	Origins    []string
	Production bool
}

// SecureHeaders sets the browser hardening headers on every response.
func SecureHeaders(opts SecurityOptions) func(http.Handler) http.Handler {
	var hosts []string
	if u, err := url.Parse(opts.BaseURL); err == nil && u.Host != "" {
		hosts = []string{u.Host}
	}

	s := secure.New(secure.Options{
		AllowedHosts:          hosts,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "same-origin",
		ContentSecurityPolicy: "default-src 'self'; frame-ancestors 'none'",
		SSLRedirect:           opts.Production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:            stsSeconds(opts.Production),
		STSIncludeSubdomains:  opts.Production,
		IsDevelopment:         !opts.Production,
	})
	return s.Handler
}

func stsSeconds(production bool) int64 {
	if production {
		return 31536000
	}
	return 0
}

// SameOrigin rejects state changing requests whose Origin header names a site
// other than the gateway itself or one of the allowed origins. Requests
// without an Origin header are left to the SameSite cookie.
func SameOrigin(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" || originAllowed(origin, r.Host, allowed) {
				next.ServeHTTP(w, r)
				return
			}

			logger.From(r.Context()).Warn("cross origin request rejected", "origin", origin, "path", r.URL.Path)
			status, body := internal.NewForbiddenError("Cross-origin request rejected", internal.ErrCodeInvalidRequest).ToHTTPResponse()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(body)
		})
	}
}

func originAllowed(origin, host string, allowed []string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, host) {
		return true
	}
	origin = strings.TrimRight(origin, "/")
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
