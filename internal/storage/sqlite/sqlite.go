// Package sqlite implements storage.Repository on an embedded SQLite
// database (modernc.org/sqlite, no cgo).
//
// Columns and row data are stored as JSON text; ids as canonical UUID
// strings; timestamps as fixed-width UTC strings so they sort lexically.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/csvdatasets/internal/csv"
	"github.com/JonMunkholm/csvdatasets/internal/storage"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS datasets (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	filename   TEXT NOT NULL,
	file_path  TEXT NOT NULL,
	columns    TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS datasets_user_created ON datasets (user_id, created_at);
CREATE TABLE IF NOT EXISTS data_rows (
	id         TEXT PRIMARY KEY,
	dataset_id TEXT NOT NULL REFERENCES datasets (id) ON DELETE CASCADE,
	row_data   TEXT NOT NULL,
	row_number INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS data_rows_dataset_number ON data_rows (dataset_id, row_number);
`

// Repo implements storage.Repository for SQLite.
type Repo struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.Repository = (*Repo)(nil)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return Open(ctx, cfg.DSN)
	})
}

// Open opens the database at dsn (a file path or ":memory:") and pings it.
// SQLite serialises writers, so the pool holds a single connection.
func Open(ctx context.Context, dsn string) (*Repo, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db, now: time.Now}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (r *Repo) CreateDataset(ctx context.Context, d storage.NewDataset) (storage.Dataset, error) {
	cols, err := json.Marshal(d.Columns)
	if err != nil {
		return storage.Dataset{}, fmt.Errorf("encode columns: %w", err)
	}

	now := r.now().UTC()
	ds := storage.Dataset{
		ID:        uuid.New(),
		UserID:    d.UserID,
		Name:      d.Name,
		Filename:  d.Filename,
		FilePath:  d.FilePath,
		Columns:   append([]string(nil), d.Columns...),
		RowCount:  d.RowCount,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO datasets (id, user_id, name, filename, file_path, columns, row_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ds.ID.String(), ds.UserID, ds.Name, ds.Filename, ds.FilePath, string(cols), ds.RowCount,
		now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return storage.Dataset{}, fmt.Errorf("insert dataset: %w", err)
	}
	return ds, nil
}

// InsertRows writes the batch in one transaction with a prepared statement.
func (r *Repo) InsertRows(ctx context.Context, datasetID uuid.UUID, rows []csv.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO data_rows (id, dataset_id, row_data, row_number) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert rows: %w", err)
	}
	defer stmt.Close()

	dsID := datasetID.String()
	for _, row := range rows {
		data, err := json.Marshal(row.Fields)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", row.Number, err)
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), dsID, string(data), row.Number); err != nil {
			return fmt.Errorf("insert row %d: %w", row.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const selectDataset = `
	SELECT id, user_id, name, filename, file_path, columns, row_count, created_at, updated_at
	FROM datasets`

func (r *Repo) ListDatasets(ctx context.Context, userID string) ([]storage.Dataset, error) {
	rows, err := r.db.QueryContext(ctx,
		selectDataset+` WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	out := []storage.Dataset{}
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

func (r *Repo) GetDataset(ctx context.Context, userID string, id uuid.UUID) (storage.Dataset, error) {
	row := r.db.QueryRowContext(ctx, selectDataset+` WHERE id = ? AND user_id = ?`, id.String(), userID)
	ds, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Dataset{}, storage.ErrDatasetNotFound
	}
	return ds, err
}

func (r *Repo) ListRows(ctx context.Context, userID string, id uuid.UUID, limit int) ([]storage.StoredRow, error) {
	if _, err := r.GetDataset(ctx, userID, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1 // no limit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, row_data, row_number FROM data_rows
		WHERE dataset_id = ? ORDER BY row_number LIMIT ?`, id.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer rows.Close()

	out := []storage.StoredRow{}
	for rows.Next() {
		var (
			rowID, data string
			number      int
		)
		if err := rows.Scan(&rowID, &data, &number); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sr := storage.StoredRow{DatasetID: id, Number: number}
		if sr.ID, err = uuid.Parse(rowID); err != nil {
			return nil, fmt.Errorf("row id %q: %w", rowID, err)
		}
		if err := json.Unmarshal([]byte(data), &sr.Data); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", number, err)
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// DeleteDataset removes rows explicitly; foreign key enforcement is off by
// default in SQLite, so the cascade cannot be relied on.
func (r *Repo) DeleteDataset(ctx context.Context, userID string, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE id = ? AND user_id = ?`, id.String(), userID)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return storage.ErrDatasetNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM data_rows WHERE dataset_id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete rows: %w", err)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(s scanner) (storage.Dataset, error) {
	var (
		ds                   storage.Dataset
		id, cols             string
		createdAt, updatedAt string
	)
	if err := s.Scan(&id, &ds.UserID, &ds.Name, &ds.Filename, &ds.FilePath, &cols, &ds.RowCount, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ds, err
		}
		return ds, fmt.Errorf("scan dataset: %w", err)
	}

	var err error
	if ds.ID, err = uuid.Parse(id); err != nil {
		return ds, fmt.Errorf("dataset id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(cols), &ds.Columns); err != nil {
		return ds, fmt.Errorf("decode columns: %w", err)
	}
	if ds.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return ds, fmt.Errorf("created_at %q: %w", createdAt, err)
	}
	if ds.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return ds, fmt.Errorf("updated_at %q: %w", updatedAt, err)
	}
	return ds, nil
}
