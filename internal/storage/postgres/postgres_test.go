package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/JonMunkholm/csvdatasets/internal/storage"
	"github.com/JonMunkholm/csvdatasets/internal/storage/storagetest"
)

// Integration tests run only when TEST_DATABASE_URL points at a scratch
// database; every test truncates both tables.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return dsn
}

func TestRepository(t *testing.T) {
	dsn := testDSN(t)

	storagetest.Run(t, func(t *testing.T) storage.Repository {
		ctx := context.Background()
		repo, err := storage.New(ctx, storage.Config{Kind: "postgres", DSN: dsn, MaxConns: 4})
		if err != nil {
			t.Fatalf("storage.New: %v", err)
		}
		t.Cleanup(repo.Close)

		if err := repo.EnsureSchema(ctx); err != nil {
			t.Fatalf("EnsureSchema: %v", err)
		}
		if _, err := repo.(*Repo).pool.Exec(ctx, `TRUNCATE data_rows, datasets`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return repo
	})
}

func TestNew_BadDSN(t *testing.T) {
	if _, err := New(context.Background(), storage.Config{Kind: "postgres", DSN: "::not a url::"}); err == nil {
		t.Error("expected error for malformed DSN")
	}
}
