package registry_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/frahmantamala/finsolve-gateway/internal/registry"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/transport"
	"github.com/frahmantamala/finsolve-gateway/internal/upstream"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeRegistry records role writes the way the external registry would.
type fakeRegistry struct {
	mu       sync.Mutex
	requests []string
	bodies   []registry.Entry
	auth     []string
}

func (f *fakeRegistry) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		f.auth = append(f.auth, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/roles":
			_ = json.NewEncoder(w).Encode(registry.DefaultEntries())
		case r.Method == http.MethodPost && r.URL.Path == "/roles":
			var e registry.Entry
			_ = json.NewDecoder(r.Body).Decode(&e)
			if e.Role == "finance" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"detail":"Role finance already exists"}`)
				return
			}
			f.bodies = append(f.bodies, e)
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"message":"created"}`)
		case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/roles/"):
			var e registry.Entry
			_ = json.NewDecoder(r.Body).Decode(&e)
			f.bodies = append(f.bodies, e)
			_, _ = io.WriteString(w, `{"message":"updated"}`)
		default:
			http.NotFound(w, r)
		}
	}))
}

var _ = Describe("Handler", func() {
	var (
		fake    *fakeRegistry
		server  *httptest.Server
		service *registry.Service
		router  chi.Router
	)

	BeforeEach(func() {
		fake = &fakeRegistry{}
		server = fake.server()
		client := upstream.NewClient(upstream.Config{Name: "registry", BaseURL: server.URL, Timeout: 2 * time.Second}, testLogger)
		service = registry.NewService(registry.NewRemote(client), nil, testLogger)
		handler := registry.NewHandler(transport.NewBaseHandler(testLogger), service)

		router = chi.NewRouter()
		router.Get("/roles", handler.GetRoles)
		router.Post("/roles", handler.CreateRole)
		router.Put("/roles/{role}", handler.UpdateRole)
	})

	AfterEach(func() {
		service.Wait()
		server.Close()
	})

	as := func(req *http.Request, identity session.Identity) *http.Request {
		return req.WithContext(session.WithIdentity(req.Context(), identity))
	}

	It("lists the matrix refreshed from the registry", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/roles", nil), executive))

		Expect(rec.Code).To(Equal(http.StatusOK))
		var resp registry.RolesResponse
		Expect(json.NewDecoder(rec.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Roles).To(HaveLen(6))
		Expect(fake.auth).To(ContainElement("Bearer exec-token"))
	})

	It("stores company-general as true when the form unchecks it", func() {
		body := `{"role":"finance","description":"Finance team members","can_view_finance":true,"can_view_company_general":false}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodPut, "/roles/finance", strings.NewReader(body)), executive))

		Expect(rec.Code).To(Equal(http.StatusOK))
		service.Wait()
		fake.mu.Lock()
		defer fake.mu.Unlock()
		Expect(fake.requests).To(ContainElement("PUT /roles/finance"))
		Expect(fake.bodies[0].CanViewCompanyGeneral).To(BeTrue())
	})

	It("keeps the role id from the path", func() {
		body := `{"role":"renamed","description":"Marketing team members","can_view_marketing":true}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodPut, "/roles/marketing", strings.NewReader(body)), executive))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"role":"marketing"`))
	})

	It("creates a new role", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodPost, "/roles", strings.NewReader(`{"role":"legal","description":"Legal"}`)), executive))

		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(rec.Body.String()).To(ContainSubstring("Role created successfully!"))
	})

	It("returns 403 for a non-executive", func() {
		rec := httptest.NewRecorder()
		hr := session.Identity{Username: "hana", Role: access.RoleHR, Credential: "hr-token"}
		router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodPost, "/roles", strings.NewReader(`{"role":"legal","description":"Legal"}`)), hr))

		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(fake.requests).To(BeEmpty())
	})

	It("returns 401 without a session", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/roles", nil))

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})
})
