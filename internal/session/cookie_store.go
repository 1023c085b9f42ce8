package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "finsolve-gateway"

type Config struct {
	CookieName string
	Secret     string
	TTL        time.Duration
	Secure     bool
}

// claims is the session token payload. Cred holds the sealed upstream credential.
type claims struct {
	Role string `json:"role"`
	Cred string `json:"cred"`
	jwt.RegisteredClaims
}

// CookieStore keeps the identity in a signed HttpOnly cookie so it survives
// page reloads without server-side session state. Bearer headers carrying the
// same token are accepted for non-browser clients.
type CookieStore struct {
	cookieName  string
	secret      []byte
	ttl         time.Duration
	secure      bool
	sealer      *Sealer
	revocations Revocations
	now         func() time.Time
}

func NewCookieStore(cfg Config, sealer *Sealer, revocations Revocations) *CookieStore {
	if revocations == nil {
		revocations = NewMemoryRevocations()
	}
	return &CookieStore{
		cookieName:  cfg.CookieName,
		secret:      []byte(cfg.Secret),
		ttl:         cfg.TTL,
		secure:      cfg.Secure,
		sealer:      sealer,
		revocations: revocations,
		now:         time.Now,
	}
}

func (s *CookieStore) Set(w http.ResponseWriter, r *http.Request, identity Identity) (Identity, error) {
	if identity.Username == "" || identity.Credential == "" || !identity.Role.Valid() {
		return Identity{}, ErrInvalidIdentity
	}

	if r != nil {
		if prior, err := s.Get(r); err == nil && prior.ID != identity.ID {
			if err := s.revocations.Revoke(r.Context(), prior.ID, prior.ExpiresAt); err != nil {
				return Identity{}, fmt.Errorf("revoke replaced session: %w", err)
			}
		}
	}

	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	identity.ExpiresAt = s.now().Add(s.ttl).UTC().Truncate(time.Second)

	token, err := s.Encode(identity)
	if err != nil {
		return Identity{}, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  identity.ExpiresAt,
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return identity, nil
}

func (s *CookieStore) Get(r *http.Request) (Identity, error) {
	token := s.tokenFromRequest(r)
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	return s.Decode(r.Context(), token)
}

func (s *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})

	token := s.tokenFromRequest(r)
	if token == "" {
		return nil
	}
	c, err := s.parse(token)
	if err != nil {
		return nil
	}
	return s.revocations.Revoke(r.Context(), c.ID, c.ExpiresAt.Time)
}

// Encode signs identity into a session token.
func (s *CookieStore) Encode(identity Identity) (string, error) {
	sealed, err := s.sealer.Seal(identity.Credential, identity.ID)
	if err != nil {
		return "", err
	}

	c := &claims{
		Role: string(identity.Role),
		Cred: sealed,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        identity.ID,
			Subject:   identity.Username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(identity.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies token and rebuilds the identity it was issued for.
func (s *CookieStore) Decode(ctx context.Context, token string) (Identity, error) {
	c, err := s.parse(token)
	if err != nil {
		return Identity{}, err
	}

	role, ok := access.ParseRole(c.Role)
	if !ok || c.Subject == "" || c.ID == "" {
		return Identity{}, fmt.Errorf("%w: malformed session claims", ErrUnauthenticated)
	}

	revoked, err := s.revocations.IsRevoked(ctx, c.ID)
	if err != nil {
		return Identity{}, fmt.Errorf("check session revocation: %w", err)
	}
	if revoked {
		return Identity{}, fmt.Errorf("%w: session revoked", ErrUnauthenticated)
	}

	credential, err := s.sealer.Open(c.Cred, c.ID)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	return Identity{
		ID:         c.ID,
		Username:   c.Subject,
		Role:       role,
		Credential: credential,
		ExpiresAt:  c.ExpiresAt.Time.UTC(),
	}, nil
}

func (s *CookieStore) parse(token string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: session expired", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("%w: invalid session token", ErrUnauthenticated)
	}
	return c, nil
}

func (s *CookieStore) tokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if cookie, err := r.Cookie(s.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
