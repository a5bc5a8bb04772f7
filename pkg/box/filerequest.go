package box

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// File request statuses.
const (
	FileRequestActive   = "active"
	FileRequestInactive = "inactive"
)

// FileRequest is a shareable upload link bound to a folder.
type FileRequest struct {
	ID                    string     `json:"id"`
	Type                  string     `json:"type"`
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	Status                string     `json:"status"`
	IsEmailRequired       bool       `json:"is_email_required"`
	IsDescriptionRequired bool       `json:"is_description_required"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
	URL                   string     `json:"url"`
	Folder                FolderRef  `json:"folder"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// FolderRef is a mini folder object.
type FolderRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// FileRequestUpdateRequest is the body for PUT /file_requests/{id}.
// Nil fields are left unchanged.
type FileRequestUpdateRequest struct {
	Title                 *string    `json:"title,omitempty"`
	Description           *string    `json:"description,omitempty"`
	Status                *string    `json:"status,omitempty"`
	IsEmailRequired       *bool      `json:"is_email_required,omitempty"`
	IsDescriptionRequired *bool      `json:"is_description_required,omitempty"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
}

// FileRequestCopyRequest is the body for POST /file_requests/{id}/copy.
type FileRequestCopyRequest struct {
	FileRequestUpdateRequest
	Folder FolderRef `json:"folder"`
}

func (c *httpClient) GetFileRequest(ctx context.Context, id string) (*FileRequest, error) {
	var fr FileRequest
	if err := c.get(ctx, "/file_requests/"+escape(id), nil, &fr); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("box: get file request %s", id))
	}
	return &fr, nil
}

func (c *httpClient) CopyFileRequest(ctx context.Context, id string, req FileRequestCopyRequest) (*FileRequest, error) {
	if req.Folder.Type == "" {
		req.Folder.Type = "folder"
	}
	var fr FileRequest
	path := fmt.Sprintf("/file_requests/%s/copy", escape(id))
	if err := c.send(ctx, http.MethodPost, path, "application/json", req, &fr); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("box: copy file request %s", id))
	}
	return &fr, nil
}

func (c *httpClient) UpdateFileRequest(ctx context.Context, id string, req FileRequestUpdateRequest) (*FileRequest, error) {
	var fr FileRequest
	if err := c.send(ctx, http.MethodPut, "/file_requests/"+escape(id), "application/json", req, &fr); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("box: update file request %s", id))
	}
	return &fr, nil
}

func (c *httpClient) DeleteFileRequest(ctx context.Context, id string) error {
	if err := c.delete(ctx, "/file_requests/"+escape(id)); err != nil {
		return eris.Wrap(err, fmt.Sprintf("box: delete file request %s", id))
	}
	return nil
}
