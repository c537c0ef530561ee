package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"deskie/internal/event"
	"deskie/internal/storage"
)

// MemoryPath keeps the journal in RAM for the lifetime of the process.
const MemoryPath = ":memory:"

type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

func NewSQLiteStore(dbPath string) storage.Storage {
	if dbPath == "" {
		dbPath = MemoryPath
	}
	return &SQLiteStore{dbPath: dbPath}
}

const createEventsTableSQL = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	type TEXT NOT NULL,
	mode TEXT,
	session TEXT,
	value REAL,
	notes TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events (timestamp);
CREATE INDEX IF NOT EXISTS idx_events_type ON events (type);
`

func (s *SQLiteStore) inMemory() bool {
	return s.dbPath == MemoryPath
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := s.dbPath + "?_journal=WAL&_timeout=5000&_fk=true"
	if s.inMemory() {
		dsn = "file::memory:?_timeout=5000"
	} else {
		dir := filepath.Dir(s.dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	log.Printf("Initializing SQLite journal at: %s", s.dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	s.db = db

	// One connection: a single writer, and an in-memory database lives
	// exactly as long as its connection.
	s.db.SetMaxOpenConns(1)
	s.db.SetMaxIdleConns(1)
	if s.inMemory() {
		s.db.SetConnMaxLifetime(0)
	} else {
		s.db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := s.db.PingContext(ctx); err != nil {
		s.db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, createEventsTableSQL); err != nil {
		s.db.Close()
		return fmt.Errorf("failed to create events table: %w", err)
	}
	log.Println("Journal initialized successfully.")
	return nil
}

func (s *SQLiteStore) SaveEvent(ctx context.Context, e event.Event) (int64, error) {
	query := `INSERT INTO events (timestamp, type, mode, session, value, notes)
	          VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, e.Timestamp, e.Type, e.Mode, e.Session, e.Value, e.Notes)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) GetEvents(ctx context.Context, start, end time.Time, eventTypes ...event.EventType) ([]event.Event, error) {
	query := `SELECT id, timestamp, type, mode, session, value, notes
	          FROM events
	          WHERE timestamp >= ? AND timestamp <= ?`
	args := []interface{}{start, end}

	if len(eventTypes) > 0 {
		placeholders := strings.Repeat("?,", len(eventTypes)-1) + "?"
		query += fmt.Sprintf(" AND type IN (%s)", placeholders)
		for _, et := range eventTypes {
			args = append(args, et)
		}
	}

	query += " ORDER BY timestamp ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var e event.Event
		var md, session, notes sql.NullString
		var value sql.NullFloat64

		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Type, &md, &session, &value, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		e.Mode = md.String
		e.Session = session.String
		e.Value = value.Float64
		e.Notes = notes.String
		events = append(events, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}

func (s *SQLiteStore) AwayStats(ctx context.Context, since time.Time) ([]event.AwayStat, error) {
	query := `SELECT mode, COUNT(*), AVG(value), MAX(value)
	          FROM events
	          WHERE type = ? AND timestamp >= ?
	          GROUP BY mode
	          ORDER BY mode ASC`
	rows, err := s.db.QueryContext(ctx, query, event.EventTypeAwayAlert, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query away stats: %w", err)
	}
	defer rows.Close()

	var stats []event.AwayStat
	for rows.Next() {
		var st event.AwayStat
		var md sql.NullString
		if err := rows.Scan(&md, &st.Count, &st.AverageSeconds, &st.MaxSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan away stat row: %w", err)
		}
		st.Mode = md.String
		stats = append(stats, st)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating away stat rows: %w", err)
	}
	return stats, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		log.Println("Closing journal database.")
		return s.db.Close()
	}
	return nil
}
