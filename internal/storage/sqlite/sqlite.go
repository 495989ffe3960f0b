// Package sqlite implements the local feeding log store: registered cats
// and the append-only feeding log, kept in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/automaticats/feederd/internal/log"
	"github.com/automaticats/feederd/internal/storage"
	"github.com/automaticats/feederd/internal/types"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cats (
	id INTEGER PRIMARY KEY,
	name TEXT UNIQUE
);
CREATE TABLE IF NOT EXISTS feeding_logs (
	id INTEGER PRIMARY KEY,
	cat_id INTEGER,
	timestamp DATETIME,
	kind TEXT,
	amount REAL,
	source TEXT,
	FOREIGN KEY (cat_id) REFERENCES cats(id)
);
CREATE INDEX IF NOT EXISTS idx_feeding_logs_timestamp ON feeding_logs(timestamp);
`

// Store is a SQLite-backed feeding log. It doubles as the query side for
// the REST API and as the cat identity resolver for identification.
type Store struct {
	db           *sql.DB
	unknownCatID int64
	logger       *zap.SugaredLogger
}

// New opens (creating if needed) the feeding log database and ensures the
// schema and the Unknown cat sentinel exist.
func New(path string, logger *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &Store{db: db, logger: logger}

	// Eating events that cannot be attributed to a specific cat are logged
	// against the Unknown sentinel.
	if err := s.ensureUnknownCat(); err != nil {
		return nil, err
	}

	return s, nil
}

// ensureUnknownCat reserves the sentinel at ID 0, outside the 1-based ID
// range owned by registered cats, so classifier class indices always map
// onto real cats (class i is cat i+1) and never onto the sentinel.
func (s *Store) ensureUnknownCat() error {
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO cats (id, name) VALUES (0, ?)`, types.UnknownCatName); err != nil {
		return fmt.Errorf("failed to create sentinel cat: %w", err)
	}
	row := s.db.QueryRow(`SELECT id FROM cats WHERE name = ?`, types.UnknownCatName)
	if err := row.Scan(&s.unknownCatID); err != nil {
		return fmt.Errorf("failed to look up sentinel cat: %w", err)
	}
	return nil
}

// StartStorageEngine creates a goroutine loop to receive feeding events
// and append them to the local log.
func (s *Store) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.FeedingEvent {
	log.Info("starting SQLite storage engine...")
	eventChan := make(chan types.FeedingEvent, 10)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case ev := <-eventChan:
				if err := s.StoreEvent(ev); err != nil {
					s.logger.Errorf("could not store feeding event: %v", err)
				}
			case <-ctx.Done():
				log.Info("cancellation request received, stopping SQLite event processor")
				return
			}
		}
	}()

	return eventChan
}

// StoreEvent appends one feeding event. Events without a cat attribution
// are logged against the Unknown sentinel.
func (s *Store) StoreEvent(ev types.FeedingEvent) error {
	catID := ev.CatID
	if catID == 0 {
		catID = s.unknownCatID
	}

	_, err := s.db.Exec(
		`INSERT INTO feeding_logs (cat_id, timestamp, kind, amount, source) VALUES (?, ?, ?, ?, ?)`,
		catID, ev.Timestamp, string(ev.Kind), ev.AmountGrams, ev.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feeding log: %w", err)
	}
	return nil
}

// AddCat registers a new cat and returns its identifier.
func (s *Store) AddCat(name string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO cats (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to add cat %q: %w", name, err)
	}
	return res.LastInsertId()
}

// Cats returns all registered cats ordered by name.
func (s *Store) Cats() ([]types.Cat, error) {
	rows, err := s.db.Query(`SELECT id, name FROM cats ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cats: %w", err)
	}
	defer rows.Close()

	var cats []types.Cat
	for rows.Next() {
		var c types.Cat
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// CatName resolves a cat identifier to its name.
func (s *Store) CatName(id int64) (string, error) {
	var name string
	err := s.db.QueryRow(`SELECT name FROM cats WHERE id = ?`, id).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("failed to look up cat %d: %w", id, err)
	}
	return name, nil
}

// RecentEvents returns feeding log entries newer than since, most recent
// first.
func (s *Store) RecentEvents(since time.Time, limit int) ([]storage.EventRecord, error) {
	rows, err := s.db.Query(`
		SELECT c.name, fl.timestamp, fl.kind, fl.amount, fl.source
		FROM feeding_logs fl
		JOIN cats c ON fl.cat_id = c.id
		WHERE fl.timestamp > ?
		ORDER BY fl.timestamp DESC
		LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feeding logs: %w", err)
	}
	defer rows.Close()

	var records []storage.EventRecord
	for rows.Next() {
		var r storage.EventRecord
		var kind string
		if err := rows.Scan(&r.CatName, &r.Timestamp, &kind, &r.AmountGrams, &r.Source); err != nil {
			return nil, err
		}
		r.Kind = types.EventKind(kind)
		records = append(records, r)
	}
	return records, rows.Err()
}

// FeedingStats aggregates eating events per cat since the given time,
// ordered by cat name.
func (s *Store) FeedingStats(since time.Time) ([]storage.CatStats, error) {
	rows, err := s.db.Query(`
		SELECT c.name, COUNT(*), COALESCE(SUM(fl.amount), 0)
		FROM feeding_logs fl
		JOIN cats c ON fl.cat_id = c.id
		WHERE fl.timestamp > ? AND fl.kind = ?
		GROUP BY c.name
		ORDER BY c.name`, since, string(types.EventEating))
	if err != nil {
		return nil, fmt.Errorf("failed to query feeding stats: %w", err)
	}
	defer rows.Close()

	var stats []storage.CatStats
	for rows.Next() {
		var st storage.CatStats
		if err := rows.Scan(&st.CatName, &st.EatingEvents, &st.TotalGrams); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
