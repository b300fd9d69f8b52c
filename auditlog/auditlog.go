// Package auditlog persists a history of completed audits in SQLite so
// repeated audits of the same site can be compared over time. Persistence
// is opt-in; the engine itself stays stateless.
package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/dbopen"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/idgen"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit"
)

// Schema is the run-history table. Exposed so callers can pass it to
// dbopen.WithSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_runs (
	run_id          TEXT PRIMARY KEY,
	started_at      INTEGER NOT NULL,
	url             TEXT NOT NULL,
	mode            TEXT NOT NULL,
	mode_used       TEXT NOT NULL,
	fallback_reason TEXT,
	flag_count      INTEGER NOT NULL,
	elapsed_ms      INTEGER NOT NULL,
	result          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_runs_url ON audit_runs(url, started_at);
`

// Run is one persisted audit.
type Run struct {
	RunID          string
	StartedAt      time.Time
	URL            string
	Mode           string
	ModeUsed       string
	FallbackReason string
	FlagCount      int
	ElapsedMs      int64
	Result         json.RawMessage
}

// Store reads and writes the run history.
type Store struct {
	db    *sql.DB
	newID idgen.Generator
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator sets a custom run-ID generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(s *Store) { s.newID = gen }
}

// NewStore wraps db. Call Init once to create the schema.
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		newID: idgen.Prefixed("run_", idgen.Default),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init creates the run-history table.
func (s *Store) Init() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("auditlog: init schema: %w", err)
	}
	return nil
}

// Save persists one completed audit and returns its run ID.
func (s *Store) Save(ctx context.Context, mode webaudit.Mode, res *webaudit.Result) (string, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("auditlog: marshal result: %w", err)
	}

	id := s.newID()
	_, err = dbopen.Exec(ctx, s.db, `INSERT INTO audit_runs
		(run_id, started_at, url, mode, mode_used, fallback_reason, flag_count, elapsed_ms, result)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		id, res.Timestamp.Unix(), res.URL, string(mode), res.ModeUsed,
		res.FallbackReason, len(res.Flags),
		int64(res.ElapsedSeconds*1000), string(data))
	if err != nil {
		return "", fmt.Errorf("auditlog: insert run: %w", err)
	}
	return id, nil
}

// Recent returns the most recent runs, newest first. A non-empty url
// filters to that target. limit defaults to 20.
func (s *Store) Recent(ctx context.Context, url string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	q := `SELECT run_id, started_at, url, mode, mode_used, fallback_reason,
		flag_count, elapsed_ms, result FROM audit_runs`
	var args []any
	if url != "" {
		q += " WHERE url = ?"
		args = append(args, url)
	}
	q += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("auditlog: query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var ts int64
		var reason sql.NullString
		var result string
		if err := rows.Scan(&r.RunID, &ts, &r.URL, &r.Mode, &r.ModeUsed,
			&reason, &r.FlagCount, &r.ElapsedMs, &result); err != nil {
			return nil, fmt.Errorf("auditlog: scan run: %w", err)
		}
		r.StartedAt = time.Unix(ts, 0)
		if reason.Valid {
			r.FallbackReason = reason.String
		}
		r.Result = json.RawMessage(result)
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// Cleanup deletes runs older than retentionDays and reports how many were
// removed.
func (s *Store) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	threshold := time.Now().AddDate(0, 0, -retentionDays).Unix()
	result, err := dbopen.Exec(ctx, s.db, `DELETE FROM audit_runs WHERE started_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("auditlog: cleanup: %w", err)
	}
	return result.RowsAffected()
}
