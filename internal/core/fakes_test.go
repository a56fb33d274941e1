package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/JonMunkholm/csvdatasets/internal/csv"
	"github.com/JonMunkholm/csvdatasets/internal/files"
	"github.com/JonMunkholm/csvdatasets/internal/metrics"
	"github.com/JonMunkholm/csvdatasets/internal/storage"
	"github.com/JonMunkholm/csvdatasets/internal/storage/memory"
	"github.com/google/uuid"
)

// fakeFiles serves file contents from a map.
type fakeFiles struct {
	mu    sync.Mutex
	data  map[string][]byte
	err   error // returned by Download when set
	saved []string
}

func newFakeFiles() *fakeFiles { return &fakeFiles{data: map[string][]byte{}} }

func (f *fakeFiles) put(path, content string) { f.data[path] = []byte(content) }

func (f *fakeFiles) Download(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.data[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", files.ErrNotFound, path)
	}
	return b, nil
}

func (f *fakeFiles) Save(ctx context.Context, path string, r io.Reader) (int64, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[path] = b
	f.saved = append(f.saved, path)
	return int64(len(b)), nil
}

// recordingStore wraps the in-memory repository, records InsertRows
// batches and can fail chosen calls.
type recordingStore struct {
	*memory.Repo

	mu          sync.Mutex
	created     []storage.NewDataset
	batches     [][]csv.Row
	createErr   error
	failBatchAt int // 1-based InsertRows call to fail; 0 never
}

func newRecordingStore() *recordingStore { return &recordingStore{Repo: memory.New()} }

var errInjected = errors.New("injected storage failure")

func (s *recordingStore) CreateDataset(ctx context.Context, d storage.NewDataset) (storage.Dataset, error) {
	s.mu.Lock()
	s.created = append(s.created, d)
	err := s.createErr
	s.mu.Unlock()
	if err != nil {
		return storage.Dataset{}, err
	}
	return s.Repo.CreateDataset(ctx, d)
}

func (s *recordingStore) InsertRows(ctx context.Context, id uuid.UUID, rows []csv.Row) error {
	s.mu.Lock()
	s.batches = append(s.batches, rows)
	call := len(s.batches)
	s.mu.Unlock()
	if call == s.failBatchAt {
		return errInjected
	}
	return s.Repo.InsertRows(ctx, id, rows)
}

// fakeMetrics records counter totals and histogram sample counts.
type fakeMetrics struct {
	mu       sync.Mutex
	counters map[string]float64
	samples  map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{counters: map[string]float64{}, samples: map[string]int{}}
}

func key(name string, labels metrics.Labels) string {
	if s := labels["status"]; s != "" {
		return name + "{" + s + "}"
	}
	return name
}

func (m *fakeMetrics) IncCounter(name string, delta float64, labels metrics.Labels) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key(name, labels)] += delta
}

func (m *fakeMetrics) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples[key(name, labels)]++
}
