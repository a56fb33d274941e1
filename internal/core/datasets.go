package core

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/csvdatasets/internal/auth"
	"github.com/JonMunkholm/csvdatasets/internal/files"
	"github.com/JonMunkholm/csvdatasets/internal/logging"
	"github.com/JonMunkholm/csvdatasets/internal/storage"
	"github.com/google/uuid"
)

// Row fetch limits for ListRows.
const (
	DefaultRowLimit = 100
	MaxRowLimit     = 1000
)

// SaveUpload stores an uploaded file under the caller's prefix and returns
// the path to pass to Ingest.
func (s *Service) SaveUpload(ctx context.Context, owner auth.Identity, fileName string, r io.Reader) (string, error) {
	path := files.UploadPath(owner.UserID, fileName, s.now())
	n, err := s.files.Save(ctx, path, r)
	if err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	logging.FromContext(ctx).Info("file uploaded", "file_path", path, "bytes", n)
	return path, nil
}

// ListDatasets returns the caller's datasets, newest first.
func (s *Service) ListDatasets(ctx context.Context, owner auth.Identity) ([]storage.Dataset, error) {
	return s.store.ListDatasets(ctx, owner.UserID)
}

// GetDataset returns one of the caller's datasets.
func (s *Service) GetDataset(ctx context.Context, owner auth.Identity, id uuid.UUID) (storage.Dataset, error) {
	return s.store.GetDataset(ctx, owner.UserID, id)
}

// ListRows returns rows of a dataset in row_number order. limit is clamped
// to [1, MaxRowLimit]; non-positive means DefaultRowLimit.
func (s *Service) ListRows(ctx context.Context, owner auth.Identity, id uuid.UUID, limit int) ([]storage.StoredRow, error) {
	limit = storage.ClampLimit(limit, DefaultRowLimit, MaxRowLimit)
	return s.store.ListRows(ctx, owner.UserID, id, limit)
}

// DeleteDataset removes a dataset and its rows. The source file is kept.
func (s *Service) DeleteDataset(ctx context.Context, owner auth.Identity, id uuid.UUID) error {
	if err := s.store.DeleteDataset(ctx, owner.UserID, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("dataset deleted", "dataset_id", id, "user_id", owner.UserID)
	return nil
}
