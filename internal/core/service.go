package core

import (
	"context"
	"io"
	"time"

	"github.com/JonMunkholm/csvdatasets/internal/csv"
	"github.com/JonMunkholm/csvdatasets/internal/metrics"
	"github.com/JonMunkholm/csvdatasets/internal/storage"
	"github.com/google/uuid"
)

// DefaultBatchSize is the number of rows per InsertRows call.
const DefaultBatchSize = 100

// FileStore holds uploaded files. Download returns files.ErrNotFound for a
// missing path.
type FileStore interface {
	Download(ctx context.Context, path string) ([]byte, error)
	Save(ctx context.Context, path string, r io.Reader) (int64, error)
}

// DatasetStore persists datasets and their rows. storage.Repository
// satisfies it.
type DatasetStore interface {
	CreateDataset(ctx context.Context, d storage.NewDataset) (storage.Dataset, error)
	InsertRows(ctx context.Context, datasetID uuid.UUID, rows []csv.Row) error
	ListDatasets(ctx context.Context, userID string) ([]storage.Dataset, error)
	GetDataset(ctx context.Context, userID string, id uuid.UUID) (storage.Dataset, error)
	ListRows(ctx context.Context, userID string, id uuid.UUID, limit int) ([]storage.StoredRow, error)
	DeleteDataset(ctx context.Context, userID string, id uuid.UUID) error
}

// Options tunes a Service. Zero values select defaults.
type Options struct {
	BatchSize     int
	MaxConcurrent int
	MaxWait       time.Duration
	Metrics       metrics.Backend
	Now           func() time.Time
}

// Service runs ingestions and serves dataset reads. It holds no
// per-request state; concurrent calls only share the limiter.
type Service struct {
	files     FileStore
	store     DatasetStore
	limiter   *IngestLimiter
	metrics   metrics.Backend
	batchSize int
	now       func() time.Time
}

// NewService wires a Service over its collaborators.
func NewService(files FileStore, store DatasetStore, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		files:     files,
		store:     store,
		limiter:   NewIngestLimiter(opts.MaxConcurrent, opts.MaxWait),
		metrics:   opts.Metrics,
		batchSize: opts.BatchSize,
		now:       opts.Now,
	}
}

// LimiterStatus reports ingestion slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForIngestions blocks until running ingestions finish or ctx is done.
func (s *Service) WaitForIngestions(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
