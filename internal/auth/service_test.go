package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/auth"
	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/frahmantamala/finsolve-gateway/internal/upstream"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Module Suite")
}

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeAuthService mimics the Authentication Service login endpoint.
func fakeAuthService(users map[string]string, roles map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/login" {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if pw, ok := users[body.Username]; !ok || pw != body.Password {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "token-" + body.Username,
			"role":         roles[body.Username],
		})
	}))
}

func newService(baseURL string) *auth.Service {
	client := upstream.NewClient(upstream.Config{Name: "auth", BaseURL: baseURL, Timeout: 2 * time.Second}, testLogger)
	return auth.NewService(client, testLogger)
}

var _ = Describe("Service", func() {
	var (
		server  *httptest.Server
		service *auth.Service
	)

	BeforeEach(func() {
		server = fakeAuthService(
			map[string]string{"tony": "password123", "ghost": "boo", "blank": "x"},
			map[string]string{"tony": "finance", "ghost": "admin", "blank": "finance"},
		)
		service = newService(server.URL)
	})

	AfterEach(func() {
		server.Close()
	})

	It("returns the identity reported by the authentication service", func() {
		identity, err := service.Authenticate(context.Background(), auth.LoginDTO{Username: "tony", Password: "password123"})

		Expect(err).NotTo(HaveOccurred())
		Expect(identity.Username).To(Equal("tony"))
		Expect(identity.Role).To(Equal(access.RoleFinance))
		Expect(identity.Credential).To(Equal("token-tony"))
		Expect(identity.ID).To(BeEmpty())
	})

	It("maps a non-success status to invalid credentials", func() {
		_, err := service.Authenticate(context.Background(), auth.LoginDTO{Username: "tony", Password: "wrong"})

		Expect(errors.Is(err, auth.ErrInvalidCredentials)).To(BeTrue())
		Expect(auth.FailureCause(err)).To(Equal(auth.CauseInvalidCredentials))
	})

	It("treats an unknown role as a denial", func() {
		_, err := service.Authenticate(context.Background(), auth.LoginDTO{Username: "ghost", Password: "boo"})

		Expect(errors.Is(err, auth.ErrInvalidCredentials)).To(BeTrue())
	})

	It("maps an unreachable service to service unavailable", func() {
		server.Close()

		_, err := service.Authenticate(context.Background(), auth.LoginDTO{Username: "tony", Password: "password123"})

		Expect(errors.Is(err, auth.ErrServiceUnavailable)).To(BeTrue())
		Expect(auth.FailureCause(err)).To(Equal(auth.CauseServiceUnavailable))
	})

	It("maps a success without a token to service unavailable", func() {
		empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"role":"finance"}`))
		}))
		defer empty.Close()

		_, err := newService(empty.URL).Authenticate(context.Background(), auth.LoginDTO{Username: "tony", Password: "password123"})

		Expect(errors.Is(err, auth.ErrServiceUnavailable)).To(BeTrue())
	})

	DescribeTable("rejects incomplete credentials before calling upstream",
		func(username, password string) {
			_, err := service.Authenticate(context.Background(), auth.LoginDTO{Username: username, Password: password})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(appErr.Message).To(Equal("Username and password are required"))
			Expect(auth.FailureCause(err)).To(Equal(auth.CauseValidation))
		},
		Entry("empty username", "", "password123"),
		Entry("blank username", "   ", "password123"),
		Entry("empty password", "tony", ""),
	)
})
