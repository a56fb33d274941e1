// Package memory is an in-process storage backend. Data is lost on exit;
// it backs tests and local dry runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/JonMunkholm/csvdatasets/internal/csv"
	"github.com/JonMunkholm/csvdatasets/internal/storage"
	"github.com/google/uuid"
)

func init() {
	storage.Register("memory", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return New(), nil
	})
}

type entry struct {
	seq     int
	dataset storage.Dataset
	rows    []storage.StoredRow
}

// Repo is a mutex-guarded map of datasets.
type Repo struct {
	mu       sync.RWMutex
	seq      int
	datasets map[uuid.UUID]*entry

	now func() time.Time
}

var _ storage.Repository = (*Repo)(nil)

func New() *Repo {
	return &Repo{datasets: make(map[uuid.UUID]*entry), now: time.Now}
}

func (r *Repo) Close()                                 {}
func (r *Repo) Ping(ctx context.Context) error         { return nil }
func (r *Repo) EnsureSchema(ctx context.Context) error { return nil }

func (r *Repo) CreateDataset(ctx context.Context, d storage.NewDataset) (storage.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	r.seq++
	ds := storage.Dataset{
		ID:        uuid.New(),
		UserID:    d.UserID,
		Name:      d.Name,
		Filename:  d.Filename,
		FilePath:  d.FilePath,
		Columns:   slices.Clone(d.Columns),
		RowCount:  d.RowCount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.datasets[ds.ID] = &entry{seq: r.seq, dataset: ds}
	return cloneDataset(ds), nil
}

func (r *Repo) InsertRows(ctx context.Context, datasetID uuid.UUID, rows []csv.Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.datasets[datasetID]
	if !ok {
		return fmt.Errorf("insert rows: %w", storage.ErrDatasetNotFound)
	}
	for _, row := range rows {
		data := make(map[string]string, len(row.Fields))
		for k, v := range row.Fields {
			data[k] = v
		}
		e.rows = append(e.rows, storage.StoredRow{
			ID:        uuid.New(),
			DatasetID: datasetID,
			Number:    row.Number,
			Data:      data,
		})
	}
	return nil
}

func (r *Repo) ListDatasets(ctx context.Context, userID string) ([]storage.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []*entry
	for _, e := range r.datasets {
		if e.dataset.UserID == userID {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b *entry) int {
		if c := b.dataset.CreatedAt.Compare(a.dataset.CreatedAt); c != 0 {
			return c
		}
		return b.seq - a.seq
	})

	out := make([]storage.Dataset, 0, len(entries))
	for _, e := range entries {
		out = append(out, cloneDataset(e.dataset))
	}
	return out, nil
}

func (r *Repo) GetDataset(ctx context.Context, userID string, id uuid.UUID) (storage.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, err := r.owned(userID, id)
	if err != nil {
		return storage.Dataset{}, err
	}
	return cloneDataset(e.dataset), nil
}

func (r *Repo) ListRows(ctx context.Context, userID string, id uuid.UUID, limit int) ([]storage.StoredRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, err := r.owned(userID, id)
	if err != nil {
		return nil, err
	}
	rows := slices.Clone(e.rows)
	slices.SortStableFunc(rows, func(a, b storage.StoredRow) int { return a.Number - b.Number })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *Repo) DeleteDataset(ctx context.Context, userID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.owned(userID, id); err != nil {
		return err
	}
	delete(r.datasets, id)
	return nil
}

// RowCount reports how many rows have been stored for a dataset.
func (r *Repo) RowCount(id uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.datasets[id]; ok {
		return len(e.rows)
	}
	return 0
}

func (r *Repo) owned(userID string, id uuid.UUID) (*entry, error) {
	e, ok := r.datasets[id]
	if !ok || e.dataset.UserID != userID {
		return nil, storage.ErrDatasetNotFound
	}
	return e, nil
}

func cloneDataset(d storage.Dataset) storage.Dataset {
	d.Columns = slices.Clone(d.Columns)
	return d
}
