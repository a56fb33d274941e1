// Package storagetest holds behaviour tests every storage backend must pass.
package storagetest

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/JonMunkholm/csvdatasets/internal/csv"
	"github.com/JonMunkholm/csvdatasets/internal/storage"
	"github.com/google/uuid"
)

// Run exercises repo through the storage.Repository contract. newRepo
// must return an empty repository with its schema in place.
func Run(t *testing.T, newRepo func(t *testing.T) storage.Repository) {
	t.Helper()

	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newRepo(t)) })
	t.Run("InsertAndListRows", func(t *testing.T) { testInsertAndListRows(t, newRepo(t)) })
	t.Run("ListDatasetsNewestFirst", func(t *testing.T) { testListDatasets(t, newRepo(t)) })
	t.Run("Ownership", func(t *testing.T) { testOwnership(t, newRepo(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newRepo(t)) })
}

func create(t *testing.T, repo storage.Repository, user, name string, cols []string, n int) storage.Dataset {
	t.Helper()
	ds, err := repo.CreateDataset(context.Background(), storage.NewDataset{
		UserID:   user,
		Name:     name,
		Filename: name + ".csv",
		FilePath: user + "/1-" + name + ".csv",
		Columns:  cols,
		RowCount: n,
	})
	if err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}
	return ds
}

func rows(from, to int) []csv.Row {
	var out []csv.Row
	for i := from; i <= to; i++ {
		out = append(out, csv.Row{
			Number: i,
			Fields: map[string]string{"id": string(rune('a' + i%26)), "note": "x,\"y\""},
		})
	}
	return out
}

func testCreateAndGet(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	ds := create(t, repo, "alice", "sales", []string{"id", "note", "id"}, 3)

	if ds.ID == uuid.Nil {
		t.Fatal("CreateDataset returned nil id")
	}
	if ds.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	got, err := repo.GetDataset(ctx, "alice", ds.ID)
	if err != nil {
		t.Fatalf("GetDataset: %v", err)
	}
	if got.Name != "sales" || got.Filename != "sales.csv" || got.FilePath != "alice/1-sales.csv" || got.RowCount != 3 {
		t.Errorf("GetDataset = %+v", got)
	}
	if !slices.Equal(got.Columns, []string{"id", "note", "id"}) {
		t.Errorf("Columns = %v, want duplicates preserved", got.Columns)
	}

	if _, err := repo.GetDataset(ctx, "alice", uuid.New()); !errors.Is(err, storage.ErrDatasetNotFound) {
		t.Errorf("unknown id err = %v, want ErrDatasetNotFound", err)
	}
}

func testInsertAndListRows(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	ds := create(t, repo, "alice", "big", []string{"id", "note"}, 150)

	// two batches, inserted in order
	if err := repo.InsertRows(ctx, ds.ID, rows(1, 100)); err != nil {
		t.Fatalf("InsertRows batch 1: %v", err)
	}
	if err := repo.InsertRows(ctx, ds.ID, rows(101, 150)); err != nil {
		t.Fatalf("InsertRows batch 2: %v", err)
	}

	got, err := repo.ListRows(ctx, "alice", ds.ID, 1000)
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	if len(got) != 150 {
		t.Fatalf("ListRows returned %d rows, want 150", len(got))
	}
	for i, r := range got {
		if r.Number != i+1 {
			t.Fatalf("row %d has number %d", i, r.Number)
		}
		if r.DatasetID != ds.ID {
			t.Fatalf("row %d dataset = %v", i, r.DatasetID)
		}
	}
	if got[0].Data["note"] != "x,\"y\"" {
		t.Errorf("row data = %v", got[0].Data)
	}

	limited, err := repo.ListRows(ctx, "alice", ds.ID, 10)
	if err != nil {
		t.Fatalf("ListRows limited: %v", err)
	}
	if len(limited) != 10 || limited[9].Number != 10 {
		t.Errorf("limited rows = %d, last number %d", len(limited), limited[len(limited)-1].Number)
	}
}

func testListDatasets(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	first := create(t, repo, "alice", "first", []string{"a"}, 0)
	time.Sleep(5 * time.Millisecond)
	second := create(t, repo, "alice", "second", []string{"a"}, 0)
	create(t, repo, "bob", "other", []string{"a"}, 0)

	got, err := repo.ListDatasets(ctx, "alice")
	if err != nil {
		t.Fatalf("ListDatasets: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListDatasets returned %d, want 2", len(got))
	}
	if got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("order = [%s %s], want newest first", got[0].Name, got[1].Name)
	}

	none, err := repo.ListDatasets(ctx, "nobody")
	if err != nil {
		t.Fatalf("ListDatasets: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListDatasets(nobody) = %d datasets", len(none))
	}
}

func testOwnership(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	ds := create(t, repo, "alice", "private", []string{"a"}, 1)

	if _, err := repo.GetDataset(ctx, "bob", ds.ID); !errors.Is(err, storage.ErrDatasetNotFound) {
		t.Errorf("GetDataset by other user err = %v", err)
	}
	if _, err := repo.ListRows(ctx, "bob", ds.ID, 10); !errors.Is(err, storage.ErrDatasetNotFound) {
		t.Errorf("ListRows by other user err = %v", err)
	}
	if err := repo.DeleteDataset(ctx, "bob", ds.ID); !errors.Is(err, storage.ErrDatasetNotFound) {
		t.Errorf("DeleteDataset by other user err = %v", err)
	}
	if _, err := repo.GetDataset(ctx, "alice", ds.ID); err != nil {
		t.Errorf("dataset should survive foreign delete: %v", err)
	}
}

func testDelete(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	ds := create(t, repo, "alice", "gone", []string{"id", "note"}, 5)
	if err := repo.InsertRows(ctx, ds.ID, rows(1, 5)); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}

	if err := repo.DeleteDataset(ctx, "alice", ds.ID); err != nil {
		t.Fatalf("DeleteDataset: %v", err)
	}
	if _, err := repo.GetDataset(ctx, "alice", ds.ID); !errors.Is(err, storage.ErrDatasetNotFound) {
		t.Errorf("after delete err = %v", err)
	}
	if _, err := repo.ListRows(ctx, "alice", ds.ID, 10); !errors.Is(err, storage.ErrDatasetNotFound) {
		t.Errorf("ListRows after delete err = %v", err)
	}
	if err := repo.DeleteDataset(ctx, "alice", ds.ID); !errors.Is(err, storage.ErrDatasetNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}
