package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/csvdatasets/internal/auth"
	"github.com/JonMunkholm/csvdatasets/internal/csv"
	"github.com/JonMunkholm/csvdatasets/internal/files"
	"github.com/JonMunkholm/csvdatasets/internal/logging"
	"github.com/JonMunkholm/csvdatasets/internal/metrics"
	"github.com/JonMunkholm/csvdatasets/internal/storage"
	"github.com/google/uuid"
)

// Phase is a step of an ingestion.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseDownloading     Phase = "downloading"
	PhaseParsing         Phase = "parsing"
	PhaseCreatingDataset Phase = "creating_dataset"
	PhaseInsertingRows   Phase = "inserting_rows"
	PhaseDone            Phase = "done"
	PhaseFailed          Phase = "failed"
)

// IngestResult describes the dataset an ingestion created.
type IngestResult struct {
	DatasetID uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Columns   []string  `json:"columns"`
	RowCount  int       `json:"rowCount"`
	Dropped   int       `json:"-"`
	Batches   int       `json:"-"`
}

// ingestion is the state one Ingest call threads through its stages.
type ingestion struct {
	owner auth.Identity
	name  string
	path  string

	data    []byte
	table   *csv.Table
	dataset storage.Dataset
	batches int
}

type stage struct {
	phase Phase
	run   func(ctx context.Context, in *ingestion) error
}

func (s *Service) stages() []stage {
	return []stage{
		{PhaseDownloading, s.download},
		{PhaseParsing, s.parse},
		{PhaseCreatingDataset, s.createDataset},
		{PhaseInsertingRows, s.insertRows},
	}
}

// Ingest downloads the file at filePath, parses it and stores it as a new
// dataset owned by owner. Stages run in order; the first failure ends the
// ingestion with an *IngestError. Nothing is retried, and rows stored
// before a failed batch are left in place.
//
// Ingest sets no deadline of its own; callers that must not be cut short
// by request cancellation pass a context from context.WithoutCancel.
func (s *Service) Ingest(ctx context.Context, owner auth.Identity, datasetName, filePath string) (*IngestResult, error) {
	start := s.now()
	log := logging.WithFields(ctx, "dataset_name", datasetName, "file_path", filePath)

	in := &ingestion{
		owner: owner,
		name:  strings.TrimSpace(datasetName),
		path:  strings.TrimSpace(filePath),
	}

	fail := func(phase Phase, err error) (*IngestResult, error) {
		ie := &IngestError{Phase: phase, Kind: classify(phase, err), Err: err}
		log.Warn("ingest failed", "phase", phase, "kind", ie.Kind, "error", err)
		s.record(string(ie.Kind), start)
		return nil, ie
	}

	if in.name == "" {
		return fail(PhaseIdle, ErrDatasetNameRequired)
	}
	if in.path == "" {
		return fail(PhaseIdle, ErrFilePathRequired)
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return fail(PhaseIdle, err)
	}
	defer s.limiter.Release()

	for _, st := range s.stages() {
		log.Debug("ingest phase", "phase", st.phase)
		if err := st.run(ctx, in); err != nil {
			return fail(st.phase, err)
		}
	}

	s.record("ok", start)
	log.Info("ingest completed",
		"dataset_id", in.dataset.ID,
		"rows", len(in.table.Rows),
		"dropped", in.table.Dropped,
		"batches", in.batches,
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)

	return &IngestResult{
		DatasetID: in.dataset.ID,
		Name:      in.dataset.Name,
		Columns:   in.dataset.Columns,
		RowCount:  in.dataset.RowCount,
		Dropped:   in.table.Dropped,
		Batches:   in.batches,
	}, nil
}

func (s *Service) download(ctx context.Context, in *ingestion) error {
	data, err := s.files.Download(ctx, in.path)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	in.data = data
	return nil
}

func (s *Service) parse(ctx context.Context, in *ingestion) error {
	text, err := csv.Decode(in.data)
	if err != nil {
		return err
	}
	in.data = nil

	table, err := csv.Parse(text)
	if err != nil {
		return err
	}
	in.table = table
	return nil
}

func (s *Service) createDataset(ctx context.Context, in *ingestion) error {
	ds, err := s.store.CreateDataset(ctx, storage.NewDataset{
		UserID:   in.owner.UserID,
		Name:     in.name,
		Filename: files.BaseName(in.path),
		FilePath: in.path,
		Columns:  in.table.Header,
		RowCount: len(in.table.Rows),
	})
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	in.dataset = ds
	return nil
}

func (s *Service) insertRows(ctx context.Context, in *ingestion) error {
	n, err := PersistRows(ctx, s.store, in.dataset.ID, in.table.Rows, s.batchSize)
	in.batches = n
	if n > 0 {
		s.metrics.IncCounter(metrics.IngestBatchesTotal, float64(n), nil)
		s.metrics.IncCounter(metrics.IngestRowsTotal, float64(min(n*s.batchSize, len(in.table.Rows))), nil)
	}
	return err
}

func (s *Service) record(status string, start time.Time) {
	labels := metrics.Labels{"status": status}
	s.metrics.IncCounter(metrics.IngestTotal, 1, labels)
	s.metrics.ObserveHistogram(metrics.IngestDurationSeconds, s.now().Sub(start).Seconds(), labels)
}
