// Package files stores uploaded CSV files on the local filesystem.
//
// Paths are slash-separated and relative to the store root, e.g.
// "<user_id>/1700000000000-sales.csv". Every access goes through an
// os.Root, so a path cannot reach outside the root directory.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidPath = errors.New("invalid file path")
	ErrTooLarge    = errors.New("file exceeds maximum size")
)

// Store is a directory-backed file store.
type Store struct {
	root    *os.Root
	maxSize int64
}

// Open opens (creating if needed) the directory at dir. maxSize bounds
// both uploads and downloads; zero or less means unlimited.
func Open(dir string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create files root: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open files root: %w", err)
	}
	return &Store{root: root, maxSize: maxSize}, nil
}

// Close releases the root directory handle.
func (s *Store) Close() error {
	return s.root.Close()
}

// Download returns the full contents of the file at p.
func (s *Store) Download(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := clean(p)
	if err != nil {
		return nil, err
	}

	f, err := s.root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if s.maxSize > 0 && info.Size() > s.maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrTooLarge, p, info.Size(), s.maxSize)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// Save writes r to p, creating parent directories. A partially written
// file is removed on failure.
func (s *Store) Save(ctx context.Context, p string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	name, err := clean(p)
	if err != nil {
		return 0, err
	}
	if err := s.mkdirAll(filepath.Dir(name)); err != nil {
		return 0, err
	}

	f, err := s.root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", p, err)
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(f, src)
	if err == nil && s.maxSize > 0 && n > s.maxSize {
		err = fmt.Errorf("%w: max %d bytes", ErrTooLarge, s.maxSize)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", p, cerr)
	}
	if err != nil {
		_ = s.root.Remove(name)
		return 0, err
	}
	return n, nil
}

// Remove deletes the file at p. A missing file is not an error.
func (s *Store) Remove(p string) error {
	name, err := clean(p)
	if err != nil {
		return err
	}
	if err := s.root.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return nil
}

// mkdirAll creates each component of dir under the root.
func (s *Store) mkdirAll(dir string) error {
	if dir == "." {
		return nil
	}
	cur := ""
	for part := range strings.SplitSeq(dir, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		if err := s.root.Mkdir(cur, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("mkdir %s: %w", cur, err)
		}
	}
	return nil
}

func clean(p string) (string, error) {
	p = strings.TrimPrefix(p, "/")
	if p == "" || !filepath.IsLocal(filepath.FromSlash(p)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return filepath.Clean(filepath.FromSlash(p)), nil
}

// UploadPath builds the storage path for a new upload:
// "<userID>/<unix_ms>-<base name>".
func UploadPath(userID, fileName string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload.csv"
	}
	return userID + "/" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + base
}

// BaseName returns the last segment of a slash-separated path, or
// "unknown.csv" when there is none.
func BaseName(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return "unknown.csv"
	}
	return p
}
