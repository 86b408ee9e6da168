// Package filestore keeps uploaded plan files on local disk under per-user
// directories and indexes them in a small SQLite database.
package filestore

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron"
	_ "modernc.org/sqlite"
)

// TempDirName is the per-user directory holding files awaiting confirmation.
const TempDirName = "imports-temp"

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidPath = errors.New("invalid storage path")
)

// Entry is an indexed file.
type Entry struct {
	Path      string
	UserID    int
	Size      int64
	Hash      string
	Temp      bool
	CreatedAt time.Time
}

// Store is a directory tree plus its index.
type Store struct {
	root string
	db   *sql.DB
	now  func() time.Time
}

// Open opens (or creates) a store rooted at dir with its index at dir/index.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("opening file index: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS files (
		path       TEXT PRIMARY KEY,
		user_id    INTEGER NOT NULL,
		size       INTEGER NOT NULL,
		hash       TEXT NOT NULL,
		temp       INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating file index table: %w", err)
	}

	return &Store{root: dir, db: db, now: time.Now}, nil
}

// Close closes the index database.
func (s *Store) Close() error {
	return s.db.Close()
}

// IsTemp reports whether a relative path lies in a temp import directory.
func IsTemp(rel string) bool {
	parts := strings.Split(rel, "/")
	return len(parts) >= 3 && parts[1] == TempDirName
}

// UserPrefix is the directory prefix every path of a user starts with.
func UserPrefix(userID int) string {
	return fmt.Sprintf("%d/", userID)
}

// abs resolves a slash-separated relative path inside the root.
func (s *Store) abs(rel string) (string, error) {
	if rel == "" || strings.HasPrefix(rel, "/") || strings.Contains(rel, "\\") {
		return "", ErrInvalidPath
	}
	if path.Clean(rel) != rel || rel == "." || strings.HasPrefix(rel, "../") || rel == ".." {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

// Put writes data at rel, replacing any existing file, and indexes it.
func (s *Store) Put(userID int, rel string, data []byte) error {
	full, err := s.abs(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating dir for %s: %w", rel, err)
	}

	tmp := full + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", rel, err)
	}

	sum := sha256.Sum256(data)
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO files (path, user_id, size, hash, temp, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rel, userID, len(data), hex.EncodeToString(sum[:]), IsTemp(rel), s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", rel, err)
	}
	return nil
}

// Get reads the file at rel.
func (s *Store) Get(rel string) ([]byte, error) {
	full, err := s.abs(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	return data, nil
}

// Move renames a file and carries its index entry along.
func (s *Store) Move(from, to string) error {
	src, err := s.abs(from)
	if err != nil {
		return err
	}
	dst, err := s.abs(to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating dir for %s: %w", to, err)
	}
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("moving %s: %w", from, err)
	}

	if _, err := s.db.Exec(`DELETE FROM files WHERE path = ?`, to); err != nil {
		return fmt.Errorf("reindexing %s: %w", to, err)
	}
	if _, err := s.db.Exec(
		`UPDATE files SET path = ?, temp = ?, created_at = ? WHERE path = ?`,
		to, IsTemp(to), s.now().UnixMilli(), from,
	); err != nil {
		return fmt.Errorf("reindexing %s: %w", to, err)
	}
	return nil
}

// Remove deletes a file and its index entry. Missing files are not an error.
func (s *Store) Remove(rel string) error {
	full, err := s.abs(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", rel, err)
	}
	if _, err := s.db.Exec(`DELETE FROM files WHERE path = ?`, rel); err != nil {
		return fmt.Errorf("unindexing %s: %w", rel, err)
	}
	return nil
}

// Stat returns the index entry for rel.
func (s *Store) Stat(rel string) (*Entry, error) {
	var (
		e       Entry
		created int64
	)
	err := s.db.QueryRow(
		`SELECT path, user_id, size, hash, temp, created_at FROM files WHERE path = ?`, rel,
	).Scan(&e.Path, &e.UserID, &e.Size, &e.Hash, &e.Temp, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying index for %s: %w", rel, err)
	}
	e.CreatedAt = time.UnixMilli(created)
	return &e, nil
}

// PurgeExpired removes temp files indexed more than ttl ago and returns how
// many were removed.
func (s *Store) PurgeExpired(ttl time.Duration) (int, error) {
	cutoff := s.now().Add(-ttl).UnixMilli()
	rows, err := s.db.Query(`SELECT path FROM files WHERE temp = 1 AND created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("querying expired files: %w", err)
	}
	var expired []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning expired file: %w", err)
		}
		expired = append(expired, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for i, p := range expired {
		if err := s.Remove(p); err != nil {
			return i, err
		}
	}
	return len(expired), nil
}

// StartJanitor purges expired temp files every interval until the returned
// cron is stopped.
func (s *Store) StartJanitor(interval, ttl time.Duration, log *slog.Logger) (*cron.Cron, error) {
	c := cron.New()
	err := c.AddFunc("@every "+interval.String(), func() {
		n, err := s.PurgeExpired(ttl)
		if err != nil {
			log.Error("purging expired imports", "error", err)
			return
		}
		if n > 0 {
			log.Info("purged expired imports", "files", n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling janitor: %w", err)
	}
	c.Start()
	return c, nil
}
