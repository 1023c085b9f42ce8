package document_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/frahmantamala/finsolve-gateway/internal/document"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/transport"
	"github.com/frahmantamala/finsolve-gateway/internal/upstream"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

var seeded = []document.Record{
	{ID: "1", Title: "Q4 Budget", Category: access.CategoryFinance, AllowedRoles: []access.RoleID{access.RoleFinance, access.RoleCLevel}},
	{ID: "2", Title: "Handbook", Category: access.CategoryGeneral, AllowedRoles: []access.RoleID{access.RoleFinance, access.RoleHR, access.RoleEmployee, access.RoleCLevel}},
	{ID: "3", Title: "Payroll", Category: access.CategoryHR, AllowedRoles: []access.RoleID{access.RoleHR, access.RoleCLevel}},
}

// fakeDocumentRegistry serves /documents and records /upload form fields.
type fakeDocumentRegistry struct {
	mu         sync.Mutex
	uploads    []map[string]string
	fileBodies []string
	failList   bool
	failUpload bool
}

func (f *fakeDocumentRegistry) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/documents":
			if f.failList {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(seeded)
		case "/upload":
			if f.failUpload {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"error":"Unsupported document encoding"}`)
				return
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fields := map[string]string{}
			for k, v := range r.MultipartForm.Value {
				fields[k] = v[0]
			}
			file, _, err := r.FormFile("file")
			body := ""
			if err == nil {
				b, _ := io.ReadAll(file)
				body = string(b)
			}
			f.mu.Lock()
			f.uploads = append(f.uploads, fields)
			f.fileBodies = append(f.fileBodies, body)
			f.mu.Unlock()
			_, _ = io.WriteString(w, `{"_id":"new-doc","message":"File uploaded"}`)
		default:
			http.NotFound(w, r)
		}
	}))
}

var _ = Describe("Service", func() {
	var (
		fake    *fakeDocumentRegistry
		server  *httptest.Server
		service *document.Service
		ceo     session.Identity
	)

	BeforeEach(func() {
		fake = &fakeDocumentRegistry{}
		server = fake.server()
		client := upstream.NewClient(upstream.Config{Name: "registry", BaseURL: server.URL, Timeout: 2 * time.Second}, testLogger)
		service = document.NewService(document.NewRemote(client), nil, testLogger)
		ceo = session.Identity{ID: "sid", Username: "ceo", Role: access.RoleCLevel, Credential: "tok"}
	})

	AfterEach(func() {
		server.Close()
	})

	It("filters by role and category", func() {
		hr := session.Identity{Username: "hana", Role: access.RoleHR, Credential: "tok"}

		all, err := service.List(context.Background(), hr, document.CategoryAll)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(2))
		Expect(all[0].Title).To(Equal("Handbook"))

		narrowed, err := service.List(context.Background(), hr, document.CategoryFilter(access.CategoryHR))
		Expect(err).NotTo(HaveOccurred())
		Expect(narrowed).To(HaveLen(1))
		Expect(narrowed[0].Title).To(Equal("Payroll"))
	})

	It("returns an empty list when nothing matches", func() {
		marketing := session.Identity{Username: "mia", Role: access.RoleMarketing, Credential: "tok"}

		docs, err := service.List(context.Background(), marketing, document.CategoryAll)

		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(BeEmpty())
	})

	It("reports a fetch failure distinctly from an empty list", func() {
		fake.failList = true

		_, err := service.List(context.Background(), ceo, document.CategoryAll)

		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeFetchFailed))
		Expect(appErr.StatusCode).To(Equal(http.StatusBadGateway))
	})

	It("always grants the executive role on upload regardless of caller roles", func() {
		record, err := service.Upload(context.Background(), ceo, document.UploadDTO{
			Title:        "Campaign plan",
			Category:     "marketing",
			AllowedRoles: []access.RoleID{access.RoleEmployee},
			FileName:     "plan.md",
			Content:      []byte("# plan"),
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(record.ID).To(Equal("new-doc"))
		Expect(record.AllowedRoles).To(ContainElement(access.RoleCLevel))
		Expect(fake.uploads).To(HaveLen(1))
		Expect(fake.uploads[0]["allowed_roles"]).To(Equal("employee,c-level-executive,marketing"))
		Expect(fake.uploads[0]["category"]).To(Equal("marketing"))
		Expect(fake.fileBodies[0]).To(Equal("# plan"))
	})

	It("defaults the category to general", func() {
		record, err := service.Upload(context.Background(), ceo, document.UploadDTO{Title: "Memo", FileName: "memo.txt", Content: []byte("hi")})

		Expect(err).NotTo(HaveOccurred())
		Expect(record.Category).To(Equal(access.CategoryGeneral))
		Expect(record.AllowedRoles).To(Equal([]access.RoleID{access.RoleCLevel}))
	})

	DescribeTable("rejects invalid uploads before calling the registry",
		func(dto document.UploadDTO, code internal.ErrorCode, message string) {
			_, err := service.Upload(context.Background(), ceo, dto)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(code))
			Expect(appErr.Message).To(Equal(message))
			Expect(fake.uploads).To(BeEmpty())
		},
		Entry("missing title", document.UploadDTO{FileName: "a.txt", Content: []byte("x")}, internal.ErrCodeValidationFailed, "Title and file are required"),
		Entry("missing file", document.UploadDTO{Title: "A"}, internal.ErrCodeValidationFailed, "Title and file are required"),
		Entry("pdf", document.UploadDTO{Title: "A", FileName: "a.pdf", Content: []byte("x")}, internal.ErrCodeUnsupportedFile, "Only .txt, .md and .csv files are supported"),
	)

	It("refuses non-executive uploads", func() {
		finance := session.Identity{Username: "tony", Role: access.RoleFinance, Credential: "tok"}

		_, err := service.Upload(context.Background(), finance, document.UploadDTO{Title: "A", FileName: "a.txt", Content: []byte("x")})

		Expect(err).To(Equal(internal.ErrForbiddenRole))
	})

	It("surfaces the registry error message", func() {
		fake.failUpload = true

		_, err := service.Upload(context.Background(), ceo, document.UploadDTO{Title: "A", FileName: "a.csv", Content: []byte("x")})

		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Message).To(Equal("Unsupported document encoding"))
	})

	Describe("Handler", func() {
		var handler *document.Handler

		BeforeEach(func() {
			handler = document.NewHandler(transport.NewBaseHandler(testLogger), service)
		})

		It("lists documents for the session role", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/documents?category=finance", nil)
			req = req.WithContext(session.WithIdentity(req.Context(), session.Identity{Username: "tony", Role: access.RoleFinance, Credential: "tok"}))
			rec := httptest.NewRecorder()

			handler.GetDocuments(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp document.DocumentsResponse
			Expect(json.NewDecoder(rec.Body).Decode(&resp)).To(Succeed())
			Expect(resp.Documents).To(HaveLen(1))
			Expect(resp.Documents[0].ID).To(Equal("1"))
		})

		It("rejects an unknown category filter", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/documents?category=legal", nil)
			req = req.WithContext(session.WithIdentity(req.Context(), ceo))
			rec := httptest.NewRecorder()

			handler.GetDocuments(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("accepts a multipart upload", func() {
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			_ = mw.WriteField("title", "Roadmap")
			_ = mw.WriteField("category", "engineering")
			_ = mw.WriteField("allowed_roles", "employee")
			fw, _ := mw.CreateFormFile("file", "roadmap.md")
			_, _ = fw.Write([]byte("## Q1"))
			Expect(mw.Close()).To(Succeed())

			req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			req = req.WithContext(session.WithIdentity(req.Context(), ceo))
			rec := httptest.NewRecorder()

			handler.UploadDocument(rec, req)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(rec.Body.String()).To(ContainSubstring("File uploaded successfully!"))
			Expect(strings.Split(fake.uploads[0]["allowed_roles"], ",")).To(ConsistOf("employee", "c-level-executive", "engineering"))
		})
	})
})
