// Package filerequest manages Box file requests and keeps a local index of
// the ones boxflow created, since Box cannot list them.
package filerequest

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/boxflow/internal/model"
	"github.com/sells-group/boxflow/internal/resilience"
	"github.com/sells-group/boxflow/internal/store"
	"github.com/sells-group/boxflow/pkg/box"
)

// Service wraps the Box file-request endpoints and the local index.
type Service struct {
	client box.Client
	store  store.Store
	retry  resilience.RetryConfig
	now    func() time.Time
}

// NewService returns a Service. Reads, updates and deletes are retried on
// transient failures; copies are not, since a timed-out copy may have landed.
func NewService(c box.Client, st store.Store, retry resilience.RetryConfig) *Service {
	return &Service{client: c, store: st, retry: retry, now: time.Now}
}

// Get fetches a file request from Box. An indexed request is refreshed; one
// that Box no longer has is dropped from the index.
func (s *Service) Get(ctx context.Context, id string) (*box.FileRequest, error) {
	fr, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*box.FileRequest, error) {
		return s.client.GetFileRequest(ctx, id)
	})
	if box.IsNotFound(err) {
		s.forget(ctx, id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "filerequest: get %s", id)
	}

	existing, err := s.store.GetFileRequest(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		zap.L().Warn("file request index lookup failed", zap.String("id", id), zap.Error(err))
	default:
		s.index(ctx, fr, existing.TemplateID)
	}
	return fr, nil
}

// Copy creates a new file request from templateID in folderID with the
// given overrides and indexes it.
func (s *Service) Copy(ctx context.Context, templateID, folderID string, o Overrides) (*box.FileRequest, error) {
	if templateID == "" || folderID == "" {
		return nil, eris.New("filerequest: copy needs a template id and a folder id")
	}
	if err := o.Validate(s.now()); err != nil {
		return nil, err
	}

	fr, err := s.client.CopyFileRequest(ctx, templateID, box.FileRequestCopyRequest{
		FileRequestUpdateRequest: o.toUpdate(),
		Folder:                   box.FolderRef{ID: folderID, Type: "folder"},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "filerequest: copy %s", templateID)
	}
	zap.L().Info("file request created",
		zap.String("id", fr.ID),
		zap.String("template_id", templateID),
		zap.String("folder_id", folderID),
		zap.String("url", fr.URL),
	)
	s.index(ctx, fr, templateID)
	return fr, nil
}

// Update applies overrides to an existing file request.
func (s *Service) Update(ctx context.Context, id string, o Overrides) (*box.FileRequest, error) {
	if o.Empty() {
		return nil, eris.New("filerequest: nothing to update")
	}
	if err := o.Validate(s.now()); err != nil {
		return nil, err
	}
	fr, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*box.FileRequest, error) {
		return s.client.UpdateFileRequest(ctx, id, o.toUpdate())
	})
	if err != nil {
		return nil, eris.Wrapf(err, "filerequest: update %s", id)
	}
	s.refresh(ctx, fr)
	return fr, nil
}

// Activate sets the request's status to active.
func (s *Service) Activate(ctx context.Context, id string) (*box.FileRequest, error) {
	status := box.FileRequestActive
	return s.Update(ctx, id, Overrides{Status: &status})
}

// Deactivate sets the request's status to inactive, so the link stops
// accepting uploads.
func (s *Service) Deactivate(ctx context.Context, id string) (*box.FileRequest, error) {
	status := box.FileRequestInactive
	return s.Update(ctx, id, Overrides{Status: &status})
}

// Delete removes the file request from Box and from the index. A request
// Box no longer has is only removed from the index.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.client.DeleteFileRequest(ctx, id)
	})
	if err != nil && !box.IsNotFound(err) {
		return eris.Wrapf(err, "filerequest: delete %s", id)
	}
	s.forget(ctx, id)
	return nil
}

// List returns indexed file requests.
func (s *Service) List(ctx context.Context, filter store.FileRequestFilter) ([]model.FileRequestRecord, error) {
	recs, err := s.store.ListFileRequests(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "filerequest: list")
	}
	return recs, nil
}

func (s *Service) refresh(ctx context.Context, fr *box.FileRequest) {
	existing, err := s.store.GetFileRequest(ctx, fr.ID)
	if err != nil {
		return
	}
	s.index(ctx, fr, existing.TemplateID)
}

func (s *Service) index(ctx context.Context, fr *box.FileRequest, templateID string) {
	rec := model.FileRequestRecord{
		ID:          fr.ID,
		TemplateID:  templateID,
		FolderID:    fr.Folder.ID,
		Title:       fr.Title,
		Description: fr.Description,
		Status:      fr.Status,
		URL:         fr.URL,
		ExpiresAt:   fr.ExpiresAt,
		CreatedAt:   fr.CreatedAt,
	}
	if err := s.store.SaveFileRequest(ctx, rec); err != nil {
		zap.L().Warn("failed to index file request", zap.String("id", fr.ID), zap.Error(err))
	}
}

func (s *Service) forget(ctx context.Context, id string) {
	if err := s.store.DeleteFileRequest(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		zap.L().Warn("failed to drop file request from index", zap.String("id", id), zap.Error(err))
	}
}
