package session_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

func TestSession(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Session Suite")
}

const (
	testSessionSecret    = "0123456789abcdef0123456789abcdef-session"
	testCredentialSecret = "fedcba9876543210fedcba9876543210-credential"
)

func newStore(revocations session.Revocations) *session.CookieStore {
	sealer, err := session.NewSealer(testCredentialSecret)
	Expect(err).NotTo(HaveOccurred())
	return session.NewCookieStore(session.Config{
		CookieName: "finsolve_session",
		Secret:     testSessionSecret,
		TTL:        time.Hour,
	}, sealer, revocations)
}

// requestWithCookies replays the cookies a recorder received.
func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

var _ = Describe("Sealer", func() {
	It("round-trips a credential bound to its session id", func() {
		sealer, err := session.NewSealer(testCredentialSecret)
		Expect(err).NotTo(HaveOccurred())

		sealed, err := sealer.Seal("upstream-token", "sid-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(sealed).NotTo(ContainSubstring("upstream-token"))

		opened, err := sealer.Open(sealed, "sid-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(opened).To(Equal("upstream-token"))

		_, err = sealer.Open(sealed, "sid-2")
		Expect(err).To(MatchError(session.ErrSealBroken))
	})

	It("rejects short secrets", func() {
		_, err := session.NewSealer("short")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("CookieStore", func() {
	var (
		store    *session.CookieStore
		identity session.Identity
	)

	BeforeEach(func() {
		store = newStore(session.NewMemoryRevocations())
		identity = session.Identity{Username: "tony", Role: access.RoleFinance, Credential: "upstream-token"}
	})

	It("is unauthenticated before anything is set", func() {
		_, err := store.Get(httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(errors.Is(err, session.ErrUnauthenticated)).To(BeTrue())
	})

	It("rehydrates token and role unchanged from the cookie", func() {
		rec := httptest.NewRecorder()
		stored, err := store.Set(rec, httptest.NewRequest(http.MethodPost, "/login", nil), identity)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.ID).NotTo(BeEmpty())

		cookie := rec.Result().Cookies()[0]
		Expect(cookie.HttpOnly).To(BeTrue())
		Expect(cookie.SameSite).To(Equal(http.SameSiteStrictMode))
		Expect(cookie.Value).NotTo(ContainSubstring("upstream-token"))

		got, err := store.Get(requestWithCookies(rec))
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Username).To(Equal("tony"))
		Expect(got.Role).To(Equal(access.RoleFinance))
		Expect(got.Credential).To(Equal("upstream-token"))
		Expect(got.ID).To(Equal(stored.ID))
		Expect(got.ExpiresAt).To(BeTemporally("==", stored.ExpiresAt))
	})

	It("accepts the same token as a bearer header", func() {
		rec := httptest.NewRecorder()
		_, err := store.Set(rec, nil, identity)
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/chat", nil)
		req.Header.Set("Authorization", "Bearer "+rec.Result().Cookies()[0].Value)

		got, err := store.Get(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Credential).To(Equal("upstream-token"))
	})

	It("refuses identities without a known role", func() {
		identity.Role = "admin"
		_, err := store.Set(httptest.NewRecorder(), nil, identity)
		Expect(err).To(MatchError(session.ErrInvalidIdentity))
	})

	It("rejects tokens signed with another secret", func() {
		sealer, _ := session.NewSealer(testCredentialSecret)
		other := session.NewCookieStore(session.Config{CookieName: "finsolve_session", Secret: "another-secret-another-secret-another", TTL: time.Hour}, sealer, nil)
		rec := httptest.NewRecorder()
		_, err := other.Set(rec, nil, identity)
		Expect(err).NotTo(HaveOccurred())

		_, err = store.Get(requestWithCookies(rec))
		Expect(errors.Is(err, session.ErrUnauthenticated)).To(BeTrue())
	})

	It("clears the cookie and revokes the token on logout", func() {
		rec := httptest.NewRecorder()
		_, err := store.Set(rec, nil, identity)
		Expect(err).NotTo(HaveOccurred())
		req := requestWithCookies(rec)

		out := httptest.NewRecorder()
		Expect(store.Clear(out, req)).To(Succeed())
		Expect(out.Result().Cookies()[0].MaxAge).To(BeNumerically("<", 0))

		_, err = store.Get(req)
		Expect(errors.Is(err, session.ErrUnauthenticated)).To(BeTrue())
	})

	It("revokes the previous session when a new identity replaces it", func() {
		first := httptest.NewRecorder()
		_, err := store.Set(first, nil, identity)
		Expect(err).NotTo(HaveOccurred())
		oldReq := requestWithCookies(first)

		second := httptest.NewRecorder()
		_, err = store.Set(second, oldReq, session.Identity{Username: "sam", Role: access.RoleHR, Credential: "other"})
		Expect(err).NotTo(HaveOccurred())

		_, err = store.Get(oldReq)
		Expect(errors.Is(err, session.ErrUnauthenticated)).To(BeTrue())

		got, err := store.Get(requestWithCookies(second))
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Username).To(Equal("sam"))
	})
})

var _ = Describe("RedisRevocations", func() {
	var (
		mr          *miniredis.Miniredis
		revocations *session.RedisRevocations
	)

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		revocations = session.NewRedisRevocations(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	})

	AfterEach(func() {
		mr.Close()
	})

	It("remembers a revoked id until it expires", func() {
		ctx := context.Background()
		Expect(revocations.Revoke(ctx, "sid-1", time.Now().Add(time.Minute))).To(Succeed())

		revoked, err := revocations.IsRevoked(ctx, "sid-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(BeTrue())

		mr.FastForward(2 * time.Minute)

		revoked, err = revocations.IsRevoked(ctx, "sid-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(BeFalse())
	})

	It("skips ids whose tokens already expired", func() {
		ctx := context.Background()
		Expect(revocations.Revoke(ctx, "sid-2", time.Now().Add(-time.Minute))).To(Succeed())
		Expect(mr.Exists("session:revoked:sid-2")).To(BeFalse())
	})

	It("fails closed in the store when redis is down", func() {
		store := newStore(revocations)
		rec := httptest.NewRecorder()
		_, err := store.Set(rec, nil, session.Identity{Username: "tony", Role: access.RoleFinance, Credential: "tok"})
		Expect(err).NotTo(HaveOccurred())

		mr.Close()

		_, err = store.Get(requestWithCookies(rec))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Middleware", func() {
	It("passes the identity to the handler through the context", func() {
		store := newStore(nil)
		rec := httptest.NewRecorder()
		_, err := store.Set(rec, nil, session.Identity{Username: "tony", Role: access.RoleMarketing, Credential: "tok"})
		Expect(err).NotTo(HaveOccurred())

		var seen session.Identity
		var ok bool
		h := session.Middleware(store, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, ok = session.FromContext(r.Context())
			}))

		h.ServeHTTP(httptest.NewRecorder(), requestWithCookies(rec))

		Expect(ok).To(BeTrue())
		Expect(seen.Role).To(Equal(access.RoleMarketing))
	})

	It("leaves anonymous requests without an identity", func() {
		var ok bool
		h := session.Middleware(newStore(nil), slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok = session.FromContext(r.Context())
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(ok).To(BeFalse())
	})
})
