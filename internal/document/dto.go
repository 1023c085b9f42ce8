package document

import (
	"path/filepath"
	"strings"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/frahmantamala/finsolve-gateway/internal/core/common/validation"
)

// MaxUploadBytes bounds the multipart body accepted by the upload handler.
const MaxUploadBytes = 10 << 20

var allowedExtensions = []string{".txt", ".md", ".csv"}

// SupportedExtensions lists the file extensions the upload form accepts.
func SupportedExtensions() []string {
	out := make([]string, len(allowedExtensions))
	copy(out, allowedExtensions)
	return out
}

// UploadDTO carries an upload form as received from the browser.
type UploadDTO struct {
	Title        string          `json:"title" validate:"notblank,max=256"`
	Category     string          `json:"category"`
	Description  string          `json:"description" validate:"max=2048"`
	AllowedRoles []access.RoleID `json:"allowed_roles"`
	FileName     string          `json:"file_name" validate:"notblank"`
	Content      []byte          `json:"-" validate:"required,min=1"`
}

func (d UploadDTO) Validate() error {
	if err := validation.Struct(d, "Title and file are required", internal.ErrCodeValidationFailed); err != nil {
		return err
	}
	if !supportedExtension(d.FileName) {
		return internal.NewValidationError("Only .txt, .md and .csv files are supported", internal.ErrCodeUnsupportedFile)
	}
	if d.Category != "" {
		if _, ok := access.ParseCategory(d.Category); !ok {
			return internal.NewValidationFieldError("category", "category must be a known document category", internal.ErrCodeValidationFailed)
		}
	}
	return nil
}

// ToUpload applies the category default and the allowed role rules.
func (d UploadDTO) ToUpload() Upload {
	category := access.CategoryGeneral
	if c, ok := access.ParseCategory(d.Category); ok {
		category = c
	}
	return Upload{
		Title:        strings.TrimSpace(d.Title),
		Category:     category,
		Description:  strings.TrimSpace(d.Description),
		AllowedRoles: NormalizeAllowedRoles(category, d.AllowedRoles),
		FileName:     filepath.Base(d.FileName),
		Content:      d.Content,
	}
}

func supportedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

type DocumentsResponse struct {
	Category  CategoryFilter `json:"category"`
	Documents []Record       `json:"documents"`
}

type UploadResponse struct {
	Message  string `json:"message"`
	Document Record `json:"document"`
}
