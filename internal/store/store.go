package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/postcycle/internal/types"
)

// Journal appends cycle outcomes to SQLite for operators to inspect.
// Nothing in the posting cycle reads it back.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (and creates if needed) the journal at dbPath
func OpenJournal(dbPath string) (*Journal, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return j, nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	return j.db.Close()
}

// migrate creates the database schema
func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cycles (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		region TEXT,
		trend_count INTEGER,
		used_media BOOLEAN,
		media_downgraded BOOLEAN
	);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle_id TEXT NOT NULL REFERENCES cycles(id),
		channel TEXT NOT NULL,
		topic TEXT,
		success BOOLEAN NOT NULL,
		external_id TEXT,
		error_kind TEXT,
		detail TEXT,
		with_media BOOLEAN,
		fallback_text BOOLEAN
	);

	CREATE INDEX IF NOT EXISTS idx_cycles_started_at ON cycles(started_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_channel ON outcomes(channel, success);
	`

	_, err := j.db.Exec(schema)
	return err
}

// Record writes a cycle and its outcomes in one transaction
func (j *Journal) Record(ctx context.Context, r types.CycleReport) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cycles (id, started_at, finished_at, region, trend_count, used_media, media_downgraded)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.CycleID, r.StartedAt, r.FinishedAt, r.Region, r.TrendCount, r.UsedMedia, r.MediaDowngraded)
	if err != nil {
		return err
	}

	for _, o := range r.Outcomes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO outcomes (cycle_id, channel, topic, success, external_id, error_kind, detail, with_media, fallback_text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.CycleID, o.Channel, string(o.Topic), o.Success, o.ExternalID, string(o.Error), o.Detail, o.WithMedia, o.Fallback)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ChannelStats summarizes recent outcomes for one channel
type ChannelStats struct {
	Channel   string
	Attempts  int
	Successes int
}

// Stats returns per-channel attempt and success counts since the given time
func (j *Journal) Stats(ctx context.Context, since time.Time) ([]ChannelStats, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT o.channel, COUNT(*), SUM(CASE WHEN o.success THEN 1 ELSE 0 END)
		FROM outcomes o
		JOIN cycles c ON c.id = o.cycle_id
		WHERE c.started_at >= ?
		GROUP BY o.channel
		ORDER BY o.channel
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []ChannelStats
	for rows.Next() {
		var s ChannelStats
		if err := rows.Scan(&s.Channel, &s.Attempts, &s.Successes); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
