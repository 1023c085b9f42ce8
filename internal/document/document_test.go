package document_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/frahmantamala/finsolve-gateway/internal/document"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestDocument(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Document Suite")
}

// randomRecords builds a reproducible document set with random role grants.
func randomRecords(seed int64, n int) []document.Record {
	rng := rand.New(rand.NewSource(seed))
	out := make([]document.Record, n)
	for i := range out {
		var roles []access.RoleID
		for _, r := range access.Roles {
			if rng.Intn(2) == 0 {
				roles = append(roles, r)
			}
		}
		out[i] = document.Record{
			ID:           fmt.Sprintf("doc-%d", i),
			Title:        fmt.Sprintf("Document %d", i),
			Category:     access.Categories[rng.Intn(len(access.Categories))],
			AllowedRoles: roles,
		}
	}
	return out
}

var _ = Describe("VisibleDocuments", func() {
	It("returns exactly the records granting the role, in input order", func() {
		for seed := int64(1); seed <= 20; seed++ {
			docs := randomRecords(seed, 40)
			for _, role := range access.Roles {
				var want []document.Record
				for _, d := range docs {
					if access.ContainsRole(d.AllowedRoles, role) {
						want = append(want, d)
					}
				}

				got := document.VisibleDocuments(docs, role, document.CategoryAll)
				if len(want) == 0 {
					Expect(got).To(BeEmpty())
				} else {
					Expect(got).To(Equal(want))
				}
				Expect(document.VisibleDocuments(got, role, document.CategoryAll)).To(Equal(got))
			}
		}
	})

	It("narrows to a subset whose every element matches the category", func() {
		docs := randomRecords(42, 60)
		for _, role := range access.Roles {
			base := document.VisibleDocuments(docs, role, document.CategoryAll)
			for _, c := range access.Categories {
				narrowed := document.VisibleDocuments(docs, role, document.CategoryFilter(c))
				for _, d := range narrowed {
					Expect(d.Category).To(Equal(c))
					Expect(base).To(ContainElement(d))
				}
			}
			Expect(document.VisibleDocuments(base, role, document.CategoryAll)).To(Equal(base))
		}
	})

	It("treats an empty result as a non-nil empty list", func() {
		got := document.VisibleDocuments(nil, access.RoleHR, document.CategoryFilter(access.CategoryHR))
		Expect(got).NotTo(BeNil())
		Expect(got).To(BeEmpty())
	})
})

var _ = Describe("ParseCategoryFilter", func() {
	DescribeTable("accepts known categories and all",
		func(in string, want document.CategoryFilter) {
			got, err := document.ParseCategoryFilter(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("empty means all", "", document.CategoryAll),
		Entry("all", "all", document.CategoryAll),
		Entry("mixed case", " Finance ", document.CategoryFilter("finance")),
	)

	It("rejects unknown categories", func() {
		_, err := document.ParseCategoryFilter("legal")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NormalizeAllowedRoles", func() {
	It("always includes the executive role", func() {
		for seed := int64(1); seed <= 20; seed++ {
			for _, d := range randomRecords(seed, 10) {
				roles := document.NormalizeAllowedRoles(d.Category, d.AllowedRoles)
				Expect(roles).To(ContainElement(access.RoleCLevel))
			}
		}
	})

	It("adds the owning role of the category and keeps caller order", func() {
		roles := document.NormalizeAllowedRoles(access.CategoryFinance, []access.RoleID{access.RoleHR, "intern", access.RoleHR})
		Expect(roles).To(Equal([]access.RoleID{access.RoleHR, access.RoleCLevel, access.RoleFinance}))
	})

	It("adds no owner for general documents", func() {
		roles := document.NormalizeAllowedRoles(access.CategoryGeneral, nil)
		Expect(roles).To(Equal([]access.RoleID{access.RoleCLevel}))
	})

	It("splits comma separated form values", func() {
		Expect(document.ParseAllowedRoles([]string{"finance, hr", "", "employee"})).
			To(Equal([]access.RoleID{access.RoleFinance, access.RoleHR, access.RoleEmployee}))
	})
})
