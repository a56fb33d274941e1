// Package core turns an uploaded CSV file into a stored dataset.
//
// [Service.Ingest] runs one ingestion as a fixed chain of stages:
//
//	downloading → parsing → creating_dataset → inserting_rows → done
//
// The first stage that fails ends the ingestion with an [*IngestError]
// carrying the phase, a [Kind] and the cause. Rows are inserted by
// [PersistRows] in batches of [DefaultBatchSize], strictly in row order;
// a failed batch stops the run and earlier batches stay stored.
//
// An [IngestLimiter] bounds how many ingestions run at once. Technical
// errors are mapped to user-facing text and a support code by [MapError].
package core
