// Package store keeps the takes recorded during this run in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/prompter/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// MemoryPath opens a private in-memory database that disappears with the process.
const MemoryPath = ":memory:"

// ErrNotFound is returned when a take or clip does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps SQLite access for takes and their clips.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database and applies migrations.
func Open(path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// OpenMemory opens an in-memory ledger.
func OpenMemory() (*Store, error) {
	return Open(MemoryPath)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS takes (
			seq INTEGER PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			mode TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			elapsed_s INTEGER NOT NULL,
			near_limit INTEGER NOT NULL,
			limit_reached INTEGER NOT NULL,
			font_size INTEGER NOT NULL,
			speed REAL NOT NULL,
			excerpt TEXT NOT NULL,
			clip_id TEXT NOT NULL,
			clip_mime TEXT NOT NULL,
			clip_ext TEXT NOT NULL,
			clip_size INTEGER NOT NULL,
			clip_err TEXT NOT NULL,
			export_path TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS clips (
			take_id TEXT PRIMARY KEY,
			data BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_takes_ended_at ON takes(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertTake stores a take and, when present, its clip bytes.
func (s *Store) InsertTake(ctx context.Context, take model.Take, clip []byte) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO takes (id, mode, started_at, ended_at, elapsed_s, near_limit, limit_reached, font_size, speed, excerpt, clip_id, clip_mime, clip_ext, clip_size, clip_err, export_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		take.ID,
		string(take.Mode),
		take.StartedAt.Format(time.RFC3339Nano),
		take.EndedAt.Format(time.RFC3339Nano),
		take.Elapsed,
		take.NearLimit,
		take.LimitReached,
		take.FontSize,
		take.Speed,
		take.Excerpt,
		take.ClipID,
		take.ClipMIME,
		take.ClipExt,
		take.ClipSize,
		take.ClipErr,
		take.ExportPath,
	)
	if err != nil {
		return err
	}
	if len(clip) > 0 {
		if _, err = tx.ExecContext(ctx, `INSERT INTO clips (take_id, data) VALUES (?, ?)`, take.ID, clip); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetExportPath records where a take's clip was written.
func (s *Store) SetExportPath(ctx context.Context, takeID, path string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE takes SET export_path = ? WHERE id = ?`, path, takeID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("take %s: %w", takeID, ErrNotFound)
	}
	return nil
}

// ListTakes returns all takes, oldest first.
func (s *Store) ListTakes(ctx context.Context) ([]model.Take, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, started_at, ended_at, elapsed_s, near_limit, limit_reached, font_size, speed, excerpt, clip_id, clip_mime, clip_ext, clip_size, clip_err, export_path
		 FROM takes
		 ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var takes []model.Take
	for rows.Next() {
		take, err := scanTake(rows)
		if err != nil {
			return nil, err
		}
		takes = append(takes, take)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return takes, nil
}

// LatestTake returns the most recent take that produced a clip.
func (s *Store) LatestTake(ctx context.Context) (model.Take, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, mode, started_at, ended_at, elapsed_s, near_limit, limit_reached, font_size, speed, excerpt, clip_id, clip_mime, clip_ext, clip_size, clip_err, export_path
		 FROM takes
		 WHERE clip_size > 0
		 ORDER BY seq DESC
		 LIMIT 1`)
	take, err := scanTake(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Take{}, fmt.Errorf("no recorded clip: %w", ErrNotFound)
	}
	return take, err
}

// ClipData returns the encoded clip for a take.
func (s *Store) ClipData(ctx context.Context, takeID string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM clips WHERE take_id = ?`, takeID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("clip for take %s: %w", takeID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTake(row scanner) (model.Take, error) {
	var take model.Take
	var mode, startedAt, endedAt string
	if err := row.Scan(
		&take.ID,
		&mode,
		&startedAt,
		&endedAt,
		&take.Elapsed,
		&take.NearLimit,
		&take.LimitReached,
		&take.FontSize,
		&take.Speed,
		&take.Excerpt,
		&take.ClipID,
		&take.ClipMIME,
		&take.ClipExt,
		&take.ClipSize,
		&take.ClipErr,
		&take.ExportPath,
	); err != nil {
		return model.Take{}, err
	}
	take.Mode = model.Mode(mode)
	var err error
	if take.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return model.Take{}, err
	}
	if take.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
		return model.Take{}, err
	}
	return take, nil
}
