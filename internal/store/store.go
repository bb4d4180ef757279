// Package store persists turn history to SQLite so sessions are auditable
// after the process exits. The in-memory session log stays authoritative
// during a session; this is the durable copy.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"datanerd/internal/logging"
	"datanerd/internal/result"
	"datanerd/internal/session"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS turns (
		turn_id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		question TEXT NOT NULL,
		code TEXT,
		allowed BOOLEAN NOT NULL,
		reasons TEXT,
		result TEXT NOT NULL,
		at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, seq);
`

// Store is a SQLite-backed turn archive. Safe for concurrent use; SQLite
// serializes writers.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open creates or opens the archive at path (":memory:" for tests).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open turn archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create turn schema: %w", err)
	}
	return &Store{db: db, log: logging.Get(logging.CategoryStore)}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// AppendTurn archives one turn. Turn IDs are unique, so replaying the same
// turn is a no-op rather than a duplicate.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, seq int, t session.Turn) error {
	resJSON, err := json.Marshal(t.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	var reasons []byte
	if len(t.Reasons) > 0 {
		if reasons, err = json.Marshal(t.Reasons); err != nil {
			return fmt.Errorf("encode reasons: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO turns
			(turn_id, session_id, seq, question, code, allowed, reasons, result, at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, sessionID, seq, t.Question, t.Code, t.Allowed,
		nullable(string(reasons)), string(resJSON),
		t.At.UTC().Format(time.RFC3339Nano), t.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("archive turn: %w", err)
	}

	s.log.Debug("turn archived",
		zap.String("session_id", sessionID),
		zap.String("turn_id", t.ID),
		zap.Bool("allowed", t.Allowed))
	return nil
}

// ListTurns returns a session's archived turns in sequence order.
func (s *Store) ListTurns(ctx context.Context, sessionID string) ([]session.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT turn_id, question, code, allowed, reasons, result, at, duration_ms
		FROM turns WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var out []session.Turn
	for rows.Next() {
		var (
			t          session.Turn
			code       sql.NullString
			reasons    sql.NullString
			resJSON    string
			at         string
			durationMS int64
		)
		if err := rows.Scan(&t.ID, &t.Question, &code, &t.Allowed, &reasons, &resJSON, &at, &durationMS); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Code = code.String
		if reasons.Valid {
			if err := json.Unmarshal([]byte(reasons.String), &t.Reasons); err != nil {
				return nil, fmt.Errorf("decode reasons: %w", err)
			}
		}
		var res result.Result
		if err := json.Unmarshal([]byte(resJSON), &res); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		t.Result = &res
		if t.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("decode timestamp: %w", err)
		}
		t.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
