// Package metrics defines the small metrics surface the ingestion core
// reports through. Backends live in subpackages; the core only sees
// [Backend].
package metrics

// Labels are metric dimensions, e.g. {"status": "ok"}.
type Labels map[string]string

// Metric names emitted by the ingestion service.
const (
	IngestTotal           = "ingest_total"            // labels: status
	IngestRowsTotal       = "ingest_rows_total"       // accepted rows persisted
	IngestBatchesTotal    = "ingest_batches_total"    // row batches persisted
	IngestDurationSeconds = "ingest_duration_seconds" // labels: status
)

// Backend receives counter increments and histogram observations.
// Implementations must be safe for concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
