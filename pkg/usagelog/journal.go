// Package usagelog keeps an on-disk journal of completed agent calls for
// operational accounting. Writes are best-effort: a journal failure must
// never fail the call that produced the record.
package usagelog

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Entry is one completed call.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Model     string    `json:"model"`
	Persona   string    `json:"persona"`
	Success   bool      `json:"success"`
	Tokens    int       `json:"tokens"`
	CostUSD   float64   `json:"cost_usd"`
	LatencyMS int64     `json:"latency_ms"`
}

// Totals aggregates journal rows over a window.
type Totals struct {
	Calls     int     `json:"calls"`
	Successes int     `json:"successes"`
	Tokens    int     `json:"tokens"`
	CostUSD   float64 `json:"cost_usd"`
}

// Journal is a sqlite-backed call log with scheduled retention pruning.
type Journal struct {
	db        *sql.DB
	logger    zerolog.Logger
	mu        sync.Mutex
	cron      *cron.Cron
	retention time.Duration
}

// Config holds journal configuration.
type Config struct {
	Path          string
	RetentionDays int
	Logger        zerolog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	id TEXT PRIMARY KEY,
	ts INTEGER NOT NULL,
	model TEXT NOT NULL,
	persona TEXT NOT NULL,
	success INTEGER NOT NULL,
	tokens INTEGER NOT NULL,
	cost_usd REAL NOT NULL,
	latency_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_calls_ts ON calls(ts);
`

// Open creates or opens the journal database and starts the nightly
// retention prune.
func Open(cfg Config) (*Journal, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("journal path is required")
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	retentionDays := cfg.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 30
	}

	j := &Journal{
		db:        db,
		logger:    cfg.Logger,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}

	// Prune shortly after the UTC day flips, off the call path.
	j.cron = cron.New(cron.WithLocation(time.UTC))
	if _, err := j.cron.AddFunc("5 0 * * *", j.pruneExpired); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to schedule journal prune: %w", err)
	}
	j.cron.Start()

	return j, nil
}

// Record appends one call entry.
func (j *Journal) Record(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := j.db.Exec(
		`INSERT INTO calls (id, ts, model, persona, success, tokens, cost_usd, latency_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, ts.UnixMilli(), e.Model, e.Persona, boolToInt(e.Success), e.Tokens, e.CostUSD, e.LatencyMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record call: %w", err)
	}
	return nil
}

// Recent returns the latest n entries, newest first.
func (j *Journal) Recent(n int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, ts, model, persona, success, tokens, cost_usd, latency_ms
		 FROM calls ORDER BY ts DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		var success int
		if err := rows.Scan(&e.ID, &ts, &e.Model, &e.Persona, &success, &e.Tokens, &e.CostUSD, &e.LatencyMS); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts).UTC()
		e.Success = success != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TotalsSince aggregates calls recorded at or after the given time.
func (j *Journal) TotalsSince(since time.Time) (Totals, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var t Totals
	err := j.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(success), 0), COALESCE(SUM(tokens), 0), COALESCE(SUM(cost_usd), 0)
		 FROM calls WHERE ts >= ?`, since.UnixMilli(),
	).Scan(&t.Calls, &t.Successes, &t.Tokens, &t.CostUSD)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to aggregate journal: %w", err)
	}
	return t, nil
}

// PruneBefore deletes entries recorded before the cutoff and returns how
// many were removed.
func (j *Journal) PruneBefore(cutoff time.Time) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	res, err := j.db.Exec(`DELETE FROM calls WHERE ts < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	removed, _ := res.RowsAffected()
	return removed, nil
}

// Close stops the retention schedule and closes the database.
func (j *Journal) Close() error {
	if j.cron != nil {
		j.cron.Stop()
	}
	return j.db.Close()
}

func (j *Journal) pruneExpired() {
	removed, err := j.PruneBefore(time.Now().Add(-j.retention))
	if err != nil {
		j.logger.Error().Err(err).Msg("Journal prune failed")
		return
	}
	if removed > 0 {
		j.logger.Debug().Int64("removed", removed).Msg("Pruned expired journal entries")
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
