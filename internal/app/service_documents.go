package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"onboarding/api/internal/blob"
	"onboarding/api/internal/store"
	"onboarding/api/internal/util"
)

type UploadInput struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (s *Service) ListDocuments(ctx context.Context, userID string) ([]store.ProfileDocument, error) {
	items, err := s.store.ListProfileDocuments(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []store.ProfileDocument{}
	}
	return items, nil
}

// UploadDocument stores the file in the blob store and records it. The
// blob is removed again when the row cannot be written.
func (s *Service) UploadDocument(ctx context.Context, userID string, in UploadInput) (store.ProfileDocument, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return store.ProfileDocument{}, validationError("file name is required", nil)
	}
	if in.Size <= 0 {
		return store.ProfileDocument{}, validationError("file is empty", nil)
	}
	contentType := strings.TrimSpace(in.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := util.NewID("doc")
	key := blob.ObjectKey(userID, id, name)
	url, err := s.blobs.Put(ctx, key, in.Body, in.Size, contentType)
	if err != nil {
		return store.ProfileDocument{}, fmt.Errorf("store document: %w", err)
	}

	item := store.ProfileDocument{
		ID:          id,
		UserID:      userID,
		Name:        name,
		URL:         url,
		ObjectKey:   key,
		ContentType: contentType,
		Size:        in.Size,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.InsertProfileDocument(ctx, item); err != nil {
		if cleanupErr := s.blobs.Delete(ctx, url); cleanupErr != nil {
			slog.WarnContext(ctx, "remove orphaned document blob", "url", url, "error", cleanupErr)
		}
		return store.ProfileDocument{}, err
	}
	return item, nil
}

// DeleteDocument removes the record and its blob. A blob that is already
// gone does not fail the delete.
func (s *Service) DeleteDocument(ctx context.Context, userID, documentID string) error {
	item, err := s.store.GetProfileDocument(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, item.URL); err != nil && !errors.Is(err, blob.ErrNotFound) {
		return fmt.Errorf("delete document blob: %w", err)
	}
	return s.store.DeleteProfileDocument(ctx, userID, documentID)
}
