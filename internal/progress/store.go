// Package progress records which steps of which cards have been seen.
package progress

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SchemaVersion is stored in the meta table.
const SchemaVersion = 1

// Store is a sqlite-backed progress record.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Card summarizes the progress of one card.
type Card struct {
	Deck     string
	Title    string
	LastStep int
	MaxStep  int
	Seen     int // distinct steps seen
	Updated  time.Time
}

// Open opens or creates the store at path. ":memory:" gives a private
// in-memory store.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating progress directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open progress database: %w", err)
	}
	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS steps_seen (
			deck TEXT NOT NULL,
			card TEXT NOT NULL,
			step INTEGER NOT NULL,
			seen_at TEXT NOT NULL,
			PRIMARY KEY (deck, card, step)
		)`,
		`CREATE TABLE IF NOT EXISTS last_step (
			deck TEXT NOT NULL,
			card TEXT NOT NULL,
			step INTEGER NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (deck, card)
		)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create progress schema: %w", err)
		}
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`, fmt.Sprint(SchemaVersion))
	if err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record notes that card of deck has shown step.
func (s *Store) Record(ctx context.Context, deck, card string, step int) error {
	if step < 1 {
		return nil
	}
	ts := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin progress update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO steps_seen (deck, card, step, seen_at) VALUES (?, ?, ?, ?)`,
		deck, card, step, ts); err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO last_step (deck, card, step, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (deck, card) DO UPDATE SET step = excluded.step, updated_at = excluded.updated_at`,
		deck, card, step, ts); err != nil {
		return fmt.Errorf("record last step: %w", err)
	}
	return tx.Commit()
}

// Last returns the last step recorded for a card, or 0.
func (s *Store) Last(ctx context.Context, deck, card string) (int, error) {
	var step int
	err := s.db.QueryRowContext(ctx,
		`SELECT step FROM last_step WHERE deck = ? AND card = ?`, deck, card).Scan(&step)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query last step: %w", err)
	}
	return step, nil
}

// Seen returns how many distinct steps of a card have been shown.
func (s *Store) Seen(ctx context.Context, deck, card string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM steps_seen WHERE deck = ? AND card = ?`, deck, card).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count seen steps: %w", err)
	}
	return n, nil
}

// Deck summarizes every card of a deck, ordered by title.
func (s *Store) Deck(ctx context.Context, deck string) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.card, l.step, l.updated_at,
			(SELECT MAX(step) FROM steps_seen v WHERE v.deck = l.deck AND v.card = l.card),
			(SELECT COUNT(*) FROM steps_seen v WHERE v.deck = l.deck AND v.card = l.card)
		FROM last_step l
		WHERE l.deck = ?
		ORDER BY l.card`, deck)
	if err != nil {
		return nil, fmt.Errorf("query deck progress: %w", err)
	}
	defer rows.Close()

	var out []Card
	for rows.Next() {
		c := Card{Deck: deck}
		var updated string
		var maxStep sql.NullInt64
		if err := rows.Scan(&c.Title, &c.LastStep, &updated, &maxStep, &c.Seen); err != nil {
			return nil, fmt.Errorf("scan deck progress: %w", err)
		}
		if maxStep.Valid {
			c.MaxStep = int(maxStep.Int64)
		}
		if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			c.Updated = t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Reset forgets the progress of a deck.
func (s *Store) Reset(ctx context.Context, deck string) error {
	for _, table := range []string{"steps_seen", "last_step"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE deck = ?`, deck); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}
