package document

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/frahmantamala/finsolve-gateway/internal/upstream"
)

type Remote struct {
	client *upstream.Client
}

func NewRemote(client *upstream.Client) *Remote {
	return &Remote{client: client}
}

func (r *Remote) ListDocuments(ctx context.Context, bearer string) ([]Record, error) {
	var records []Record
	if err := r.client.DoJSON(ctx, http.MethodGet, "/documents", bearer, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// UploadDocument posts the file as multipart form data to /upload.
func (r *Remote) UploadDocument(ctx context.Context, bearer string, upload Upload) (Record, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("title", upload.Title); err != nil {
		return Record{}, err
	}
	fw, err := mw.CreateFormFile("file", upload.FileName)
	if err != nil {
		return Record{}, fmt.Errorf("create file part: %w", err)
	}
	if _, err := fw.Write(upload.Content); err != nil {
		return Record{}, fmt.Errorf("write file part: %w", err)
	}
	if err := mw.WriteField("category", string(upload.Category)); err != nil {
		return Record{}, err
	}
	if upload.Description != "" {
		if err := mw.WriteField("description", upload.Description); err != nil {
			return Record{}, err
		}
	}
	roles := make([]string, len(upload.AllowedRoles))
	for i, role := range upload.AllowedRoles {
		roles[i] = string(role)
	}
	if err := mw.WriteField("allowed_roles", strings.Join(roles, ",")); err != nil {
		return Record{}, err
	}
	if err := mw.Close(); err != nil {
		return Record{}, fmt.Errorf("close multipart body: %w", err)
	}

	var created Record
	if err := r.client.Do(ctx, http.MethodPost, "/upload", bearer, mw.FormDataContentType(), &buf, &created); err != nil {
		return Record{}, err
	}
	return created, nil
}
