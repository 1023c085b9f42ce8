package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/audit"
	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	auditDatamodel "github.com/frahmantamala/finsolve-gateway/internal/core/datamodel/audit"
	"github.com/frahmantamala/finsolve-gateway/internal/core/events"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAudit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Audit Suite")
}

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

type mockRepository struct {
	mu       sync.Mutex
	rows     []*auditDatamodel.AccessEvent
	filters  []audit.Filter
	err      error
	counts   []audit.TypeCount
	sinceArg time.Time
}

func (m *mockRepository) Create(_ context.Context, event *auditDatamodel.AccessEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, event)
	return nil
}

func (m *mockRepository) List(_ context.Context, filter audit.Filter) ([]*auditDatamodel.AccessEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, filter)
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func (m *mockRepository) CountByType(_ context.Context, since time.Time) ([]audit.TypeCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinceArg = since
	if m.err != nil {
		return nil, m.err
	}
	return m.counts, nil
}

func (m *mockRepository) stored() []*auditDatamodel.AccessEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*auditDatamodel.AccessEvent, len(m.rows))
	copy(out, m.rows)
	return out
}

var (
	executive = session.Identity{ID: "s-1", Username: "ceo", Role: access.RoleCLevel, Credential: "tok"}
	employee  = session.Identity{ID: "s-2", Username: "emp", Role: access.RoleEmployee, Credential: "tok"}
)

var _ = Describe("Service", func() {
	var (
		repo    *mockRepository
		service *audit.Service
	)

	BeforeEach(func() {
		repo = &mockRepository{}
		service = audit.NewService(repo, repo, testLogger)
	})

	Describe("Record", func() {
		It("stores every field of an access event", func() {
			event := events.NewAccessEvent(events.EventTypeLoginFailed, "", "alice", "", "/api/v1/login",
				events.OutcomeFailure, "invalid_credentials")

			Expect(service.Record(context.Background(), event)).To(Succeed())

			rows := repo.stored()
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].ID).To(Equal(event.ID))
			Expect(rows[0].EventType).To(Equal(events.EventTypeLoginFailed))
			Expect(rows[0].Actor).To(Equal("alice"))
			Expect(rows[0].Outcome).To(Equal(events.OutcomeFailure))
			Expect(rows[0].Detail).To(Equal("invalid_credentials"))
			Expect(rows[0].OccurredAt).To(Equal(event.Timestamp))
		})

		It("ignores events that are not access events", func() {
			event := events.BaseEvent{ID: "x", Type: "other.thing", Timestamp: time.Now()}
			Expect(service.Record(context.Background(), event)).To(Succeed())
			Expect(repo.stored()).To(BeEmpty())
		})

		It("returns the repository error", func() {
			repo.err = errors.New("db down")
			event := events.NewAccessEvent(events.EventTypeLogout, "s-1", "bob", "hr", "", events.OutcomeSuccess, "")
			Expect(service.Record(context.Background(), event)).To(MatchError(ContainSubstring("db down")))
		})
	})

	Describe("Register", func() {
		It("receives every access event type published on the bus", func() {
			bus := events.NewEventBus(testLogger)
			service.Register(bus)

			for _, eventType := range events.AccessEventTypes {
				Expect(bus.PublishSync(context.Background(),
					events.NewAccessEvent(eventType, "s-1", "ceo", "c-level-executive", "t", events.OutcomeSuccess, ""))).To(Succeed())
			}

			Expect(repo.stored()).To(HaveLen(len(events.AccessEventTypes)))
		})
	})

	Describe("List", func() {
		It("is reserved to executives", func() {
			_, err := service.List(context.Background(), employee, audit.Filter{})
			Expect(errors.Is(err, internal.ErrForbiddenRole)).To(BeTrue())
			Expect(repo.filters).To(BeEmpty())
		})

		DescribeTable("clamps the limit",
			func(requested, expected int) {
				_, err := service.List(context.Background(), executive, audit.Filter{Limit: requested})
				Expect(err).NotTo(HaveOccurred())
				Expect(repo.filters[0].Limit).To(Equal(expected))
			},
			Entry("unset", 0, audit.DefaultLimit),
			Entry("negative", -3, audit.DefaultLimit),
			Entry("within range", 10, 10),
			Entry("too large", 5000, audit.MaxLimit),
		)

		It("maps rows to events", func() {
			at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
			repo.rows = []*auditDatamodel.AccessEvent{{
				ID: "e-1", EventType: events.EventTypeAccessDenied, Actor: "emp", Role: "employee",
				Target: "/api/v1/users", Outcome: events.OutcomeDenied, OccurredAt: at,
			}}

			list, err := service.List(context.Background(), executive, audit.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(ConsistOf(audit.Event{
				ID: "e-1", Type: events.EventTypeAccessDenied, Actor: "emp", Role: "employee",
				Target: "/api/v1/users", Outcome: events.OutcomeDenied, OccurredAt: at,
			}))
		})

		It("hides repository failures behind an internal error", func() {
			repo.err = errors.New("connection refused")
			_, err := service.List(context.Background(), executive, audit.Filter{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Summary", func() {
		It("never returns a nil slice", func() {
			counts, err := service.Summary(context.Background(), executive, time.Now().Add(-time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(counts).NotTo(BeNil())
			Expect(counts).To(BeEmpty())
		})

		It("is reserved to executives", func() {
			_, err := service.Summary(context.Background(), employee, time.Now())
			Expect(errors.Is(err, internal.ErrForbiddenRole)).To(BeTrue())
		})
	})
})

var _ = Describe("Handler", func() {
	var (
		repo    *mockRepository
		handler *audit.Handler
	)

	BeforeEach(func() {
		repo = &mockRepository{}
		handler = audit.NewHandler(transport.NewBaseHandler(testLogger), audit.NewService(repo, repo, testLogger))
	})

	serve := func(fn http.HandlerFunc, target string, identity *session.Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if identity != nil {
			req = req.WithContext(session.WithIdentity(req.Context(), *identity))
		}
		rec := httptest.NewRecorder()
		fn(rec, req)
		return rec
	}

	It("passes query filters to the repository", func() {
		rec := serve(handler.GetEvents, "/api/v1/audit?type=auth.logout&actor=bob&limit=5&since=1h", &executive)
		Expect(rec.Code).To(Equal(http.StatusOK))

		Expect(repo.filters).To(HaveLen(1))
		f := repo.filters[0]
		Expect(f.Type).To(Equal("auth.logout"))
		Expect(f.Actor).To(Equal("bob"))
		Expect(f.Limit).To(Equal(5))
		Expect(f.Since).To(BeTemporally("~", time.Now().Add(-time.Hour), 5*time.Second))

		var body map[string]json.RawMessage
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(string(body["events"])).To(Equal("[]"))
	})

	It("rejects a malformed limit", func() {
		rec := serve(handler.GetEvents, "/api/v1/audit?limit=abc", &executive)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 403 for a non-executive", func() {
		rec := serve(handler.GetEvents, "/api/v1/audit", &employee)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("returns 401 without a session", func() {
		rec := serve(handler.GetEvents, "/api/v1/audit", nil)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("summarizes the last day by default", func() {
		repo.counts = []audit.TypeCount{{Type: events.EventTypeLoginFailed, Outcome: events.OutcomeFailure, Count: 3}}
		rec := serve(handler.GetSummary, "/api/v1/audit/summary", &executive)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(repo.sinceArg).To(BeTemporally("~", time.Now().Add(-24*time.Hour), 5*time.Second))

		var resp audit.SummaryResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Counts).To(ConsistOf(repo.counts[0]))
	})

	It("accepts an absolute since", func() {
		rec := serve(handler.GetSummary, "/api/v1/audit/summary?since=2026-01-02T03:04:05Z", &executive)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(repo.sinceArg.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))).To(BeTrue())
	})
})
