// Package catalog stores uploaded container files and records them in SQLite.
package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned for an unknown upload id.
	ErrNotFound = errors.New("upload not found")
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("upload exceeds size limit")
	// ErrBadName is returned for a file name with nothing usable left after cleaning.
	ErrBadName = errors.New("invalid file name")
)

// Upload is one stored file.
type Upload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}

// Catalog keeps uploads under a directory and their records in a database.
type Catalog struct {
	db       *sql.DB
	dir      string
	maxBytes int64
}

const schema = `
CREATE TABLE IF NOT EXISTS uploads (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    path        TEXT NOT NULL,
    size_bytes  INTEGER NOT NULL,
    sha256      TEXT NOT NULL,
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_uploads_created ON uploads(created_at);
`

// Open opens (or creates) the database at dbPath. Files are stored under dir and
// may be at most maxBytes long; maxBytes <= 0 means no limit.
func Open(dbPath, dir string, maxBytes int64) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer keeps SQLite free of SQLITE_BUSY
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Catalog{db: db, dir: dir, maxBytes: maxBytes}, nil
}

// Close closes the database.
func (c *Catalog) Close() error { return c.db.Close() }

// Dir returns the upload directory.
func (c *Catalog) Dir() string { return c.dir }

// CleanName reduces a client-supplied file name to a safe base name.
func CleanName(name string) (string, error) {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if strings.Trim(name, "._") == "" {
		return "", fmt.Errorf("%q: %w", name, ErrBadName)
	}
	return name, nil
}

// Save streams r into the upload directory and records it.
func (c *Catalog) Save(ctx context.Context, name string, r io.Reader) (*Upload, error) {
	clean, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("upload id: %w", err)
	}

	dir := filepath.Join(c.dir, id.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare dir: %w", err)
	}
	path := filepath.Join(dir, clean)
	size, sum, err := c.write(path, r)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	u := &Upload{
		ID:        id.String(),
		Name:      clean,
		Path:      path,
		Size:      size,
		SHA256:    sum,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := c.insert(ctx, u); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return u, nil
}

func (c *Catalog) write(path string, r io.Reader) (int64, string, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if c.maxBytes > 0 {
		r = io.LimitReader(r, c.maxBytes+1) // +1 to detect overflow
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), r)
	if err != nil {
		return 0, "", fmt.Errorf("write %s: %w", path, err)
	}
	if c.maxBytes > 0 && n > c.maxBytes {
		return 0, "", fmt.Errorf("%d bytes: %w", c.maxBytes, ErrTooLarge)
	}
	if err := f.Close(); err != nil {
		return 0, "", fmt.Errorf("close %s: %w", path, err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

func (c *Catalog) insert(ctx context.Context, u *Upload) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO uploads (id, name, path, size_bytes, sha256, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Path, u.Size, u.SHA256, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

// List returns every upload, oldest first.
func (c *Catalog) List(ctx context.Context) ([]Upload, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, path, size_bytes, sha256, created_at FROM uploads ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var out []Upload
	for rows.Next() {
		u, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// Get returns the upload with the given id.
func (c *Catalog) Get(ctx context.Context, id string) (*Upload, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, name, path, size_bytes, sha256, created_at FROM uploads WHERE id = ?`, id)
	u, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return u, err
}

// Delete removes an upload and its file.
func (c *Catalog) Delete(ctx context.Context, id string) (*Upload, error) {
	u, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete upload: %w", err)
	}
	if err := os.RemoveAll(filepath.Dir(u.Path)); err != nil {
		return nil, fmt.Errorf("remove %s: %w", u.Path, err)
	}
	return u, nil
}

// Clear removes every upload and returns what was removed.
func (c *Catalog) Clear(ctx context.Context) ([]Upload, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range all {
		if _, err := c.Delete(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	return all, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*Upload, error) {
	var (
		u       Upload
		created string
	)
	if err := s.Scan(&u.ID, &u.Name, &u.Path, &u.Size, &u.SHA256, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return nil, fmt.Errorf("upload %s created_at: %w", u.ID, err)
	}
	u.CreatedAt = t
	return &u, nil
}
