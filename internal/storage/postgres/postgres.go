// Package postgres implements storage.Repository on PostgreSQL using a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/csvdatasets/internal/csv"
	"github.com/JonMunkholm/csvdatasets/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS datasets (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	filename   TEXT NOT NULL,
	file_path  TEXT NOT NULL,
	columns    JSONB NOT NULL,
	row_count  INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS datasets_user_created ON datasets (user_id, created_at DESC);
CREATE TABLE IF NOT EXISTS data_rows (
	id         UUID PRIMARY KEY,
	dataset_id UUID NOT NULL REFERENCES datasets (id) ON DELETE CASCADE,
	row_data   JSONB NOT NULL,
	row_number INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS data_rows_dataset_number ON data_rows (dataset_id, row_number);
`

// Repo implements storage.Repository for Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

var _ storage.Repository = (*Repo)(nil)

func init() {
	storage.Register("postgres", New)
}

// New parses cfg.DSN, applies pool settings, connects and pings.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) Ping(ctx context.Context) error { return r.pool.Ping(ctx) }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func (r *Repo) CreateDataset(ctx context.Context, d storage.NewDataset) (storage.Dataset, error) {
	ds := storage.Dataset{
		ID:       uuid.New(),
		UserID:   d.UserID,
		Name:     d.Name,
		Filename: d.Filename,
		FilePath: d.FilePath,
		Columns:  append([]string(nil), d.Columns...),
		RowCount: d.RowCount,
	}
	if ds.Columns == nil {
		ds.Columns = []string{}
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO datasets (id, user_id, name, filename, file_path, columns, row_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		pgUUID(ds.ID), ds.UserID, ds.Name, ds.Filename, ds.FilePath, ds.Columns, ds.RowCount,
	).Scan(&ds.CreatedAt, &ds.UpdatedAt)
	if err != nil {
		return storage.Dataset{}, fmt.Errorf("insert dataset: %w", err)
	}
	return ds, nil
}

// InsertRows queues one INSERT per row in a pgx.Batch inside a
// transaction, so the batch lands completely or not at all.
func (r *Repo) InsertRows(ctx context.Context, datasetID uuid.UUID, rows []csv.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	dsID := pgUUID(datasetID)
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			`INSERT INTO data_rows (id, dataset_id, row_data, row_number) VALUES ($1, $2, $3, $4)`,
			pgUUID(uuid.New()), dsID, row.Fields, row.Number,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for _, row := range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert row %d: %w", row.Number, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const selectDataset = `
	SELECT id, user_id, name, filename, file_path, columns, row_count, created_at, updated_at
	FROM datasets`

func (r *Repo) ListDatasets(ctx context.Context, userID string) ([]storage.Dataset, error) {
	rows, err := r.pool.Query(ctx, selectDataset+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
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
	row := r.pool.QueryRow(ctx, selectDataset+` WHERE id = $1 AND user_id = $2`, pgUUID(id), userID)
	ds, err := scanDataset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Dataset{}, storage.ErrDatasetNotFound
	}
	return ds, err
}

func (r *Repo) ListRows(ctx context.Context, userID string, id uuid.UUID, limit int) ([]storage.StoredRow, error) {
	if _, err := r.GetDataset(ctx, userID, id); err != nil {
		return nil, err
	}

	var lim any // NULL means no limit
	if limit > 0 {
		lim = limit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, row_data, row_number FROM data_rows
		WHERE dataset_id = $1 ORDER BY row_number LIMIT $2`, pgUUID(id), lim)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer rows.Close()

	out := []storage.StoredRow{}
	for rows.Next() {
		var (
			rowID pgtype.UUID
			sr    = storage.StoredRow{DatasetID: id}
		)
		if err := rows.Scan(&rowID, &sr.Data, &sr.Number); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sr.ID = uuid.UUID(rowID.Bytes)
		out = append(out, sr)
	}
	return out, rows.Err()
}

// DeleteDataset relies on ON DELETE CASCADE to remove the rows.
func (r *Repo) DeleteDataset(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM datasets WHERE id = $1 AND user_id = $2`, pgUUID(id), userID)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrDatasetNotFound
	}
	return nil
}

func scanDataset(row pgx.Row) (storage.Dataset, error) {
	var (
		ds        storage.Dataset
		id        pgtype.UUID
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(&id, &ds.UserID, &ds.Name, &ds.Filename, &ds.FilePath, &ds.Columns, &ds.RowCount, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ds, err
		}
		return ds, fmt.Errorf("scan dataset: %w", err)
	}
	ds.ID = uuid.UUID(id.Bytes)
	ds.CreatedAt = createdAt.UTC()
	ds.UpdatedAt = updatedAt.UTC()
	return ds, nil
}
