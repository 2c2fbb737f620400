// Package persistence provides SQLite-based run snapshot storage: one row
// per run, per-turn statistics, and the change events each turn produced.
// The format is a simple snapshot, nothing more.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/echochamber/internal/config"
	"github.com/talgya/echochamber/internal/dynamics"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		seed INTEGER NOT NULL,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		run_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		total_edges INTEGER NOT NULL,
		pro INTEGER NOT NULL,
		con INTEGER NOT NULL,
		avg_degree REAL NOT NULL,
		density REAL NOT NULL,
		segregation REAL NOT NULL,
		convergence_metric REAL NOT NULL,
		PRIMARY KEY (run_id, turn)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		kind TEXT NOT NULL,
		person INTEGER NOT NULL,
		grp INTEGER,
		reason TEXT
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		run_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_turns_run ON turns(run_id);
	CREATE INDEX IF NOT EXISTS idx_events_run_turn ON events(run_id, turn);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CreateRun registers a run and returns its generated ID.
func (db *DB) CreateRun(cfg config.Config) (string, error) {
	id := uuid.NewString()
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	_, err = db.conn.Exec(
		"INSERT INTO runs (id, model, seed, config_json, created_at) VALUES (?, ?, ?, ?, ?)",
		id, string(cfg.Model), cfg.Seed, string(cfgJSON), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	slog.Info("run registered", "run_id", id, "model", cfg.Model, "seed", cfg.Seed)
	return id, nil
}

// SaveTurn writes one turn's statistics row and its change events in a
// single transaction.
func (db *DB) SaveTurn(runID string, res dynamics.TurnResult) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO turns
		(run_id, turn, total_edges, pro, con, avg_degree, density, segregation, convergence_metric)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Turn, res.Stats.TotalEdges, res.Stats.Pro, res.Stats.Con,
		res.Stats.AvgDegree, res.Stats.Density, res.Stats.SegregationIndex,
		res.Stats.ConvergenceMetric,
	)
	if err != nil {
		return fmt.Errorf("insert turn %d: %w", res.Turn, err)
	}

	for _, ec := range res.EdgeChanges {
		kind := "edge_deleted"
		if ec.Created {
			kind = "edge_created"
		}
		if _, err := tx.Exec(
			"INSERT INTO events (run_id, turn, kind, person, grp, reason) VALUES (?, ?, ?, ?, ?, ?)",
			runID, res.Turn, kind, ec.Person, ec.Group, ec.Reason,
		); err != nil {
			return fmt.Errorf("insert edge event: %w", err)
		}
	}
	for _, oc := range res.OpinionChanges {
		if _, err := tx.Exec(
			"INSERT INTO events (run_id, turn, kind, person, grp, reason) VALUES (?, ?, ?, ?, NULL, ?)",
			runID, res.Turn, "opinion_flip", oc.Person, oc.To.String(),
		); err != nil {
			return fmt.Errorf("insert opinion event: %w", err)
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair for a run.
func (db *DB) SaveMeta(runID, key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (run_id, key, value) VALUES (?, ?, ?)",
		runID, key, value,
	)
	return err
}

// GetMeta retrieves a run metadata value.
func (db *DB) GetMeta(runID, key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE run_id = ? AND key = ?", runID, key)
	return value, err
}

// TurnRow is one persisted per-turn statistics row.
type TurnRow struct {
	RunID             string  `db:"run_id" json:"run_id"`
	Turn              int     `db:"turn" json:"turn"`
	TotalEdges        int     `db:"total_edges" json:"total_edges"`
	Pro               int     `db:"pro" json:"pro"`
	Con               int     `db:"con" json:"con"`
	AvgDegree         float64 `db:"avg_degree" json:"avg_degree"`
	Density           float64 `db:"density" json:"density"`
	Segregation       float64 `db:"segregation" json:"segregation"`
	ConvergenceMetric float64 `db:"convergence_metric" json:"convergence_metric"`
}

// RecentTurns returns the most recent N turn rows for a run, newest first.
func (db *DB) RecentTurns(runID string, limit int) ([]TurnRow, error) {
	var rows []TurnRow
	err := db.conn.Select(&rows,
		"SELECT * FROM turns WHERE run_id = ? ORDER BY turn DESC LIMIT ?",
		runID, limit,
	)
	return rows, err
}

// EventRow is one persisted change event.
type EventRow struct {
	ID     int64   `db:"id" json:"id"`
	RunID  string  `db:"run_id" json:"run_id"`
	Turn   int     `db:"turn" json:"turn"`
	Kind   string  `db:"kind" json:"kind"`
	Person int     `db:"person" json:"person"`
	Group  *int    `db:"grp" json:"group,omitempty"`
	Reason *string `db:"reason" json:"reason,omitempty"`
}

// RecentEvents returns the most recent N change events for a run.
func (db *DB) RecentEvents(runID string, limit int) ([]EventRow, error) {
	var rows []EventRow
	err := db.conn.Select(&rows,
		"SELECT * FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	return rows, err
}
