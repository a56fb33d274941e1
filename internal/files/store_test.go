package files

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T, maxSize int64) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, maxSize)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func TestSaveDownload(t *testing.T) {
	s, dir := openTestStore(t, 0)
	ctx := context.Background()

	content := "a,b\n1,2\n"
	n, err := s.Save(ctx, "user-1/123-data.csv", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != int64(len(content)) {
		t.Errorf("Save wrote %d bytes, want %d", n, len(content))
	}
	if _, err := os.Stat(filepath.Join(dir, "user-1", "123-data.csv")); err != nil {
		t.Errorf("file not on disk: %v", err)
	}

	got, err := s.Download(ctx, "user-1/123-data.csv")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(got) != content {
		t.Errorf("Download = %q, want %q", got, content)
	}

	// leading slash is tolerated
	if _, err := s.Download(ctx, "/user-1/123-data.csv"); err != nil {
		t.Errorf("Download with leading slash: %v", err)
	}
}

func TestDownload_NotFound(t *testing.T) {
	s, _ := openTestStore(t, 0)
	ctx := context.Background()

	if _, err := s.Download(ctx, "nobody/missing.csv"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file err = %v, want ErrNotFound", err)
	}

	if _, err := s.Save(ctx, "d/x.csv", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Download(ctx, "d"); !errors.Is(err, ErrNotFound) {
		t.Errorf("directory err = %v, want ErrNotFound", err)
	}
}

func TestInvalidPaths(t *testing.T) {
	s, _ := openTestStore(t, 0)
	ctx := context.Background()

	for _, p := range []string{"", "../escape.csv", "a/../../escape.csv", "/"} {
		if _, err := s.Download(ctx, p); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Download(%q) err = %v, want ErrInvalidPath", p, err)
		}
		if _, err := s.Save(ctx, p, strings.NewReader("x")); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Save(%q) err = %v, want ErrInvalidPath", p, err)
		}
	}
}

func TestMaxSize(t *testing.T) {
	s, dir := openTestStore(t, 4)
	ctx := context.Background()

	if _, err := s.Save(ctx, "u/ok.csv", strings.NewReader("abcd")); err != nil {
		t.Fatalf("Save at limit: %v", err)
	}
	if _, err := s.Save(ctx, "u/big.csv", strings.NewReader("abcde")); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Save over limit err = %v, want ErrTooLarge", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "u", "big.csv")); !os.IsNotExist(err) {
		t.Errorf("oversized file should be removed, stat err = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "u", "planted.csv"), bytes.Repeat([]byte("x"), 10), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Download(ctx, "u/planted.csv"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Download over limit err = %v, want ErrTooLarge", err)
	}
}

func TestRemove(t *testing.T) {
	s, _ := openTestStore(t, 0)
	ctx := context.Background()

	if _, err := s.Save(ctx, "u/f.csv", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("u/f.csv"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove("u/f.csv"); err != nil {
		t.Errorf("second Remove: %v", err)
	}
	if _, err := s.Download(ctx, "u/f.csv"); !errors.Is(err, ErrNotFound) {
		t.Errorf("after Remove err = %v, want ErrNotFound", err)
	}
}

func TestUploadPath(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	tests := []struct {
		name string
		want string
	}{
		{"sales.csv", "u1/1700000000123-sales.csv"},
		{"dir/sales.csv", "u1/1700000000123-sales.csv"},
		{`C:\tmp\sales.csv`, "u1/1700000000123-sales.csv"},
		{"", "u1/1700000000123-upload.csv"},
	}
	for _, tt := range tests {
		if got := UploadPath("u1", tt.name, now); got != tt.want {
			t.Errorf("UploadPath(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user/123-sales.csv", "123-sales.csv"},
		{"sales.csv", "sales.csv"},
		{"user/", "unknown.csv"},
		{"", "unknown.csv"},
	}
	for _, tt := range tests {
		if got := BaseName(tt.in); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
