// Package storage defines the dataset repository used by the ingestion
// service and a registry of backends selected by kind.
//
// Backends register themselves from init(); import them for side effects:
//
//	import _ "github.com/JonMunkholm/csvdatasets/internal/storage/postgres"
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/csvdatasets/internal/csv"
	"github.com/google/uuid"
)

// ErrDatasetNotFound is returned when a dataset does not exist or is not
// owned by the caller.
var ErrDatasetNotFound = errors.New("dataset not found")

// Config selects and configures a backend.
type Config struct {
	Kind string // "postgres", "sqlite", "memory"
	DSN  string

	// Pool settings; backends without a pool ignore them.
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Dataset is one ingested file: its column header and row count.
// Datasets are immutable once created.
type Dataset struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"file_path"`
	Columns   []string  `json:"columns"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDataset holds the fields supplied when creating a dataset.
type NewDataset struct {
	UserID   string
	Name     string
	Filename string
	FilePath string
	Columns  []string
	RowCount int
}

// StoredRow is a persisted row of a dataset.
type StoredRow struct {
	ID        uuid.UUID         `json:"id"`
	DatasetID uuid.UUID         `json:"dataset_id"`
	Number    int               `json:"row_number"`
	Data      map[string]string `json:"row_data"`
}

// Repository persists datasets and their rows.
type Repository interface {
	// Close releases backend resources. Call once.
	Close()

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// EnsureSchema creates tables if they do not exist.
	EnsureSchema(ctx context.Context) error

	CreateDataset(ctx context.Context, d NewDataset) (Dataset, error)

	// InsertRows writes one batch atomically. Batches are independent:
	// a failed batch does not undo earlier ones.
	InsertRows(ctx context.Context, datasetID uuid.UUID, rows []csv.Row) error

	// ListDatasets returns the user's datasets, newest first.
	ListDatasets(ctx context.Context, userID string) ([]Dataset, error)

	GetDataset(ctx context.Context, userID string, id uuid.UUID) (Dataset, error)

	// ListRows returns up to limit rows ordered by row number.
	ListRows(ctx context.Context, userID string, id uuid.UUID, limit int) ([]StoredRow, error)

	// DeleteDataset removes the dataset and all its rows.
	DeleteDataset(ctx context.Context, userID string, id uuid.UUID) error
}

// Factory constructs a Repository for a backend kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. It panics on an empty
// kind, a nil factory or a duplicate registration.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs the Repository registered under cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage kind=%s (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds lists registered backend kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ClampLimit bounds a row-fetch limit to [1, upper], using def when n <= 0.
func ClampLimit(n, def, upper int) int {
	if n <= 0 {
		return def
	}
	if n > upper {
		return upper
	}
	return n
}
