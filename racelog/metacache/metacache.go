// Package metacache persists LogMeta next to the logs it came from, so that
// a directory of logs can be listed and compared without re-parsing them.
//
// Entries are keyed by the log's absolute path and fingerprinted by its
// size and modification time; a changed file misses.
package metacache

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/racelog/racelog/racelog"
)

//go:embed schema.sql
var schemaSQL string

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

// Entry is one cached log.
type Entry struct {
	ID         string
	Path       string
	SizeBytes  int64
	ModTimeNs  int64
	CachedAtNs int64
	Meta       racelog.LogMeta
	Stale      bool // file changed or vanished since caching
}

// Store is a SQLite-backed metadata cache.
type Store struct {
	db *sql.DB
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialise cache schema: %w", err)
	}
	logrus.Debugf("opened metadata cache %s", path)
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type fingerprint struct {
	abs     string
	size    int64
	modTime int64
}

func fingerprintOf(path string) (fingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fingerprint{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fingerprint{}, err
	}
	return fingerprint{abs: abs, size: info.Size(), modTime: info.ModTime().UnixNano()}, nil
}

// Get returns the cached metadata of the log at path. ok is false when
// nothing is cached or the file changed since.
func (s *Store) Get(path string) (meta *racelog.LogMeta, ok bool, err error) {
	fp, err := fingerprintOf(path)
	if err != nil {
		return nil, false, fmt.Errorf("stat %s: %w", path, err)
	}

	var size, modTime int64
	var metaJSON string
	err = s.db.QueryRow(`SELECT size_bytes, mod_time_ns, meta_json FROM log_meta WHERE path = ?`, fp.abs).
		Scan(&size, &modTime, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached meta: %w", err)
	}
	if size != fp.size || modTime != fp.modTime {
		logrus.Debugf("cached meta for %s is stale", fp.abs)
		return nil, false, nil
	}

	var m racelog.LogMeta
	if err := json.Unmarshal([]byte(metaJSON), &m); err != nil {
		return nil, false, fmt.Errorf("decode cached meta: %w", err)
	}
	return &m, true, nil
}

// Put caches meta for the log at path, replacing any earlier entry while
// keeping its ID.
func (s *Store) Put(path string, meta *racelog.LogMeta) error {
	fp, err := fingerprintOf(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}

	query := `
		INSERT INTO log_meta (
			entry_id, path, size_bytes, mod_time_ns, cached_at_ns,
			model_name, world_name, job_type, episode_count, meta_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			size_bytes = excluded.size_bytes,
			mod_time_ns = excluded.mod_time_ns,
			cached_at_ns = excluded.cached_at_ns,
			model_name = excluded.model_name,
			world_name = excluded.world_name,
			job_type = excluded.job_type,
			episode_count = excluded.episode_count,
			meta_json = excluded.meta_json
	`
	_, err = s.db.Exec(query,
		uuid.New().String(),
		fp.abs,
		fp.size,
		fp.modTime,
		time.Now().UnixNano(),
		nullString(meta.ModelName),
		nullString(meta.WorldName),
		nullString(meta.JobType),
		meta.Stats.EpisodeCount,
		string(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("put cached meta: %w", err)
	}
	return nil
}

// List returns every entry ordered by path, flagging those whose file has
// changed or disappeared. No log is parsed.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT entry_id, path, size_bytes, mod_time_ns, cached_at_ns, meta_json
		FROM log_meta
		ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("list cached meta: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var metaJSON string
		if err := rows.Scan(&e.ID, &e.Path, &e.SizeBytes, &e.ModTimeNs, &e.CachedAtNs, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan cached meta: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &e.Meta); err != nil {
			return nil, fmt.Errorf("decode cached meta for %s: %w", e.Path, err)
		}
		fp, err := fingerprintOf(e.Path)
		e.Stale = err != nil || fp.size != e.SizeBytes || fp.modTime != e.ModTimeNs
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cached meta: %w", err)
	}
	return entries, nil
}

// Delete removes the entry for path, if any.
func (s *Store) Delete(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM log_meta WHERE path = ?`, abs); err != nil {
		return fmt.Errorf("delete cached meta: %w", err)
	}
	return nil
}

// Prune removes stale entries and returns how many went.
func (s *Store) Prune() (int, error) {
	entries, err := s.List()
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, e := range entries {
		if !e.Stale {
			continue
		}
		if err := s.Delete(e.Path); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
