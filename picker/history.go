package picker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

const historySchema = `
CREATE TABLE IF NOT EXISTS picks (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	text      TEXT NOT NULL,
	picked_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_picks_text ON picks(text);
`

// History persists chosen items so callers can order future listings by
// recency and frequency.
type History struct {
	DB     *sqlx.DB
	Logger *slog.Logger
}

// OpenHistory opens (creating if needed) the sqlite pick history at path.
func OpenHistory(path string, logger *slog.Logger) (*History, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &History{DB: db, Logger: logger}, nil
}

// Close releases the underlying database.
func (h *History) Close() error { return h.DB.Close() }

// Record stores one chosen item.
func (h *History) Record(text string) error {
	_, err := h.DB.Exec(
		`INSERT INTO picks (text, picked_at) VALUES (?, ?)`,
		text, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record pick: %w", err)
	}
	h.Logger.Debug("recorded pick", "text", text)
	return nil
}

// Recent returns distinct picked items, most recent first.
func (h *History) Recent(limit int) ([]string, error) {
	var out []string
	err := h.DB.Select(&out,
		`SELECT text FROM picks GROUP BY text ORDER BY MAX(picked_at) DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent picks: %w", err)
	}
	return out, nil
}

// Frequent returns distinct picked items ordered by pick count then recency.
func (h *History) Frequent(limit int) ([]string, error) {
	var out []string
	err := h.DB.Select(&out,
		`SELECT text FROM picks GROUP BY text
		 ORDER BY COUNT(*) DESC, MAX(picked_at) DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query frequent picks: %w", err)
	}
	return out, nil
}
