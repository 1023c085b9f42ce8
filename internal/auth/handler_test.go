package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/finsolve-gateway/internal/auth"
	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/frahmantamala/finsolve-gateway/internal/core/events"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.AccessEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ae, ok := event.(*events.AccessEvent); ok {
		p.events = append(p.events, ae)
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type countingObserver struct {
	outcomes []string
}

func (o *countingObserver) ObserveLogin(outcome string) {
	o.outcomes = append(o.outcomes, outcome)
}

func newSessionStore() *session.CookieStore {
	sealer, err := session.NewSealer("fedcba9876543210fedcba9876543210-credential")
	Expect(err).NotTo(HaveOccurred())
	return session.NewCookieStore(session.Config{
		CookieName: "finsolve_session",
		Secret:     "0123456789abcdef0123456789abcdef-session",
		TTL:        time.Hour,
	}, sealer, session.NewMemoryRevocations())
}

func loginRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

var _ = Describe("Handler", func() {
	var (
		server    *httptest.Server
		store     *session.CookieStore
		publisher *recordingPublisher
		observer  *countingObserver
		handler   *auth.Handler
	)

	BeforeEach(func() {
		server = fakeAuthService(map[string]string{"tony": "password123"}, map[string]string{"tony": "finance"})
		store = newSessionStore()
		publisher = &recordingPublisher{}
		observer = &countingObserver{}
		handler = auth.NewHandler(transport.NewBaseHandler(testLogger), newService(server.URL), store, publisher, observer)
	})

	AfterEach(func() {
		server.Close()
	})

	It("starts a session and returns the role on success", func() {
		rec := httptest.NewRecorder()
		handler.Login(rec, loginRequest(`{"username":"tony","password":"password123"}`))

		Expect(rec.Code).To(Equal(http.StatusOK))
		var view session.View
		Expect(json.NewDecoder(rec.Body).Decode(&view)).To(Succeed())
		Expect(view.Username).To(Equal("tony"))
		Expect(view.Role).To(Equal(access.RoleFinance))
		Expect(view.RoleName).To(Equal("Finance Team"))

		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		for _, c := range rec.Result().Cookies() {
			req.AddCookie(c)
		}
		identity, err := store.Get(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(identity.Credential).To(Equal("token-tony"))

		Expect(publisher.types()).To(Equal([]string{events.EventTypeLoginSucceeded}))
		Expect(observer.outcomes).To(Equal([]string{"success"}))
	})

	It("answers a denied login with the generic message and leaves the session empty", func() {
		rec := httptest.NewRecorder()
		handler.Login(rec, loginRequest(`{"username":"tony","password":"nope"}`))

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(rec.Body.String()).To(ContainSubstring("Invalid username or password"))
		Expect(rec.Result().Cookies()).To(BeEmpty())

		Expect(publisher.types()).To(Equal([]string{events.EventTypeLoginFailed}))
		Expect(publisher.events[0].Detail).To(Equal(auth.CauseInvalidCredentials))
		Expect(observer.outcomes).To(Equal([]string{auth.CauseInvalidCredentials}))
	})

	It("answers an unreachable service with the same generic message", func() {
		server.Close()

		rec := httptest.NewRecorder()
		handler.Login(rec, loginRequest(`{"username":"tony","password":"password123"}`))

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(rec.Body.String()).To(ContainSubstring("Invalid username or password"))
		Expect(publisher.events[0].Detail).To(Equal(auth.CauseServiceUnavailable))
	})

	It("rejects a missing field with a validation error", func() {
		rec := httptest.NewRecorder()
		handler.Login(rec, loginRequest(`{"username":"tony"}`))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("Username and password are required"))
		Expect(publisher.types()).To(BeEmpty())
	})

	It("rejects an empty body", func() {
		rec := httptest.NewRecorder()
		handler.Login(rec, loginRequest(""))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	Describe("session lifecycle", func() {
		var cookies []*http.Cookie

		BeforeEach(func() {
			rec := httptest.NewRecorder()
			handler.Login(rec, loginRequest(`{"username":"tony","password":"password123"}`))
			Expect(rec.Code).To(Equal(http.StatusOK))
			cookies = rec.Result().Cookies()
		})

		withSession := func(req *http.Request) *http.Request {
			for _, c := range cookies {
				req.AddCookie(c)
			}
			identity, err := store.Get(req)
			if err == nil {
				req = req.WithContext(session.WithIdentity(req.Context(), identity))
			}
			return req
		}

		It("reports the current session", func() {
			rec := httptest.NewRecorder()
			handler.CurrentSession(rec, withSession(httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"role":"finance"`))
		})

		It("returns 401 without a session", func() {
			rec := httptest.NewRecorder()
			handler.CurrentSession(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil))

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("logs out and revokes the token", func() {
			rec := httptest.NewRecorder()
			handler.Logout(rec, withSession(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)))

			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(publisher.types()).To(ContainElement(events.EventTypeLogout))

			req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			for _, c := range cookies {
				req.AddCookie(c)
			}
			_, err := store.Get(req)
			Expect(err).To(MatchError(ContainSubstring("unauthenticated")))
		})
	})
})
