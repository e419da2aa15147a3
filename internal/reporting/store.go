package reporting

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/rotor/internal/backtest"
	"github.com/aristath/rotor/internal/database"
)

const runSchema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	benchmark  TEXT NOT NULL,
	summary    TEXT NOT NULL,
	timeline   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backtest_runs_created ON backtest_runs(created_at);
`

// RunStore persists completed backtest runs so they can be compared later.
// Summaries are stored as JSON for ad-hoc querying, timelines as msgpack
// since they are only ever read back whole.
type RunStore struct {
	db *database.DB
}

// NewRunStore applies the schema and returns the store.
func NewRunStore(db *database.DB) (*RunStore, error) {
	if err := db.ApplySchema(runSchema); err != nil {
		return nil, fmt.Errorf("failed to apply run store schema: %w", err)
	}
	return &RunStore{db: db}, nil
}

// Save persists one run and returns its generated id.
func (s *RunStore) Save(benchmark string, summary backtest.Summary, result *backtest.Result) (string, error) {
	id := uuid.New().String()

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("failed to encode run summary: %w", err)
	}
	timeline, err := msgpack.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode run timeline: %w", err)
	}

	err = database.WithTransaction(s.db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO backtest_runs (id, created_at, benchmark, summary, timeline)
			VALUES (?, ?, ?, ?, ?)`,
			id, time.Now().UTC().Format(time.RFC3339), benchmark, string(summaryJSON), timeline)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Load returns one persisted run by id.
func (s *RunStore) Load(id string) (backtest.Summary, *backtest.Result, error) {
	var summaryJSON string
	var timeline []byte
	err := s.db.Conn().QueryRow(
		`SELECT summary, timeline FROM backtest_runs WHERE id = ?`, id).
		Scan(&summaryJSON, &timeline)
	if err != nil {
		return backtest.Summary{}, nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	var summary backtest.Summary
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		return backtest.Summary{}, nil, fmt.Errorf("corrupt summary for run %s: %w", id, err)
	}
	var result backtest.Result
	if err := msgpack.Unmarshal(timeline, &result); err != nil {
		return backtest.Summary{}, nil, fmt.Errorf("corrupt timeline for run %s: %w", id, err)
	}
	return summary, &result, nil
}

// RunInfo is one row of the run listing.
type RunInfo struct {
	ID        string
	CreatedAt time.Time
	Benchmark string
	Summary   backtest.Summary
}

// List returns the most recent runs, newest first.
func (s *RunStore) List(limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Conn().Query(`
		SELECT id, created_at, benchmark, summary
		FROM backtest_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var info RunInfo
		var createdAt, summaryJSON string
		if err := rows.Scan(&info.ID, &createdAt, &info.Benchmark, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		info.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("corrupt created_at for run %s: %w", info.ID, err)
		}
		if err := json.Unmarshal([]byte(summaryJSON), &info.Summary); err != nil {
			return nil, fmt.Errorf("corrupt summary for run %s: %w", info.ID, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
