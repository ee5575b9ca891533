package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/plate-labs/internal/domain"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const (
	archiveMaxRetries     = 3
	archiveRetryBaseDelay = 50 * time.Millisecond
	defaultListLimit      = 50
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // Serializes archive writes to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS archived_plates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		closed_by TEXT,
		cells_json TEXT NOT NULL,
		filled_wells INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		closed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_archived_plates_closed ON archived_plates(closed_at);
	CREATE INDEX IF NOT EXISTS idx_archived_plates_name ON archived_plates(name);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// ArchivePlate appends a closed plate.
// Implements retry logic with exponential backoff to handle SQLITE_BUSY errors.
func (s *SQLiteStore) ArchivePlate(ctx context.Context, p *domain.ArchivedPlate) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("archive plate: missing id")
	}
	cells, err := json.Marshal(p.Cells)
	if err != nil {
		return fmt.Errorf("marshal cells: %w", err)
	}

	for i := 0; i < archiveMaxRetries; i++ {
		err = s.archiveOnce(ctx, p, string(cells))
		if err == nil {
			return nil
		}

		if isConflict(err) && i < archiveMaxRetries-1 {
			delay := archiveRetryBaseDelay * time.Duration(1<<i) // exponential backoff: 50ms, 100ms, 200ms
			slog.Debug("ArchivePlate failed with SQLITE_BUSY, retrying",
				"research", p.Name,
				"attempt", i+1,
				"delay", delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		break
	}
	return fmt.Errorf("archive plate %s after retries: %w", p.Name, err)
}

func (s *SQLiteStore) archiveOnce(ctx context.Context, p *domain.ArchivedPlate, cellsJSON string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
	INSERT INTO archived_plates (id, name, closed_by, cells_json, filled_wells, created_at, closed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	var closedBy interface{}
	if p.ClosedBy != "" {
		closedBy = p.ClosedBy
	}

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, closedBy, cellsJSON, p.FilledWells,
		p.CreatedAt.Unix(), p.ClosedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert archived plate: %w", err)
	}
	return nil
}

// ListArchivedPlates returns archived plates, most recently closed first.
func (s *SQLiteStore) ListArchivedPlates(ctx context.Context, limit int) ([]*domain.ArchivedPlate, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
		SELECT id, name, closed_by, cells_json, filled_wells, created_at, closed_at
		FROM archived_plates ORDER BY closed_at DESC, rowid DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query archived plates: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close archived plate rows", "error", closeErr)
		}
	}()

	var plates []*domain.ArchivedPlate
	for rows.Next() {
		p, err := scanArchivedPlate(rows)
		if err != nil {
			return nil, err
		}
		plates = append(plates, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived plates: %w", err)
	}
	return plates, nil
}

// GetArchivedPlate retrieves one archived plate by ID.
func (s *SQLiteStore) GetArchivedPlate(ctx context.Context, id string) (*domain.ArchivedPlate, error) {
	query := `
		SELECT id, name, closed_by, cells_json, filled_wells, created_at, closed_at
		FROM archived_plates WHERE id = ?`

	p, err := scanArchivedPlate(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArchivedPlate(row rowScanner) (*domain.ArchivedPlate, error) {
	var p domain.ArchivedPlate
	var closedBy sql.NullString
	var cellsJSON string
	var createdAt, closedAt int64

	err := row.Scan(&p.ID, &p.Name, &closedBy, &cellsJSON, &p.FilledWells, &createdAt, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan archived plate: %w", err)
	}
	if err := json.Unmarshal([]byte(cellsJSON), &p.Cells); err != nil {
		return nil, fmt.Errorf("decode cells for %s: %w", p.ID, err)
	}

	p.ClosedBy = closedBy.String
	p.CreatedAt = time.Unix(createdAt, 0)
	p.ClosedAt = time.Unix(closedAt, 0)
	return &p, nil
}
