package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/urban-data-lab/tractjoin/internal/model"
	"github.com/urban-data-lab/tractjoin/internal/table"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the default
// backend: a single file next to the manifest, no server.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	manifest   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS merged_tables (
	run_id  TEXT PRIMARY KEY REFERENCES runs(id),
	name    TEXT NOT NULL,
	columns TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS merged_rows (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	position INTEGER NOT NULL,
	key      TEXT NOT NULL,
	fields   TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_merged_rows_key ON merged_rows(run_id, key);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, manifestName string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, manifest, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, manifestName, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Manifest:  manifestName,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error {
	var summaryJSON any
	if summary != nil {
		data, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal summary")
		}
		summaryJSON = string(data)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		string(status), summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, manifest, status, summary, created_at, updated_at FROM runs WHERE id = ?`, runID)
	return scanRunRow(row)
}

func (s *SQLiteStore) LatestRun(ctx context.Context) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, manifest, status, summary, created_at, updated_at
		 FROM runs ORDER BY created_at DESC, id DESC LIMIT 1`)
	return scanRunRow(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, manifest, status, summary, created_at, updated_at
		 FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate runs")
	}
	return runs, nil
}

func (s *SQLiteStore) SaveTable(ctx context.Context, runID string, t *table.Table) error {
	columnsJSON, err := json.Marshal(t.Columns)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal columns")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save table")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO merged_tables (run_id, name, columns) VALUES (?, ?, ?)`,
		runID, t.Name, string(columnsJSON),
	); err != nil {
		return eris.Wrap(err, "sqlite: insert table meta")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM merged_rows WHERE run_id = ?`, runID); err != nil {
		return eris.Wrap(err, "sqlite: clear previous rows")
	}

	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		fieldsJSON, err := json.Marshal(row.Fields)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal row %d", i)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO merged_rows (run_id, position, key, fields) VALUES (?, ?, ?, ?)`,
			runID, i, row.Key, string(fieldsJSON),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert row %d", i)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save table")
}

func (s *SQLiteStore) GetTable(ctx context.Context, runID string) (*table.Table, error) {
	var name, columnsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, columns FROM merged_tables WHERE run_id = ?`, runID,
	).Scan(&name, &columnsJSON)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: no table for run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get table meta")
	}

	var columns []string
	if err := json.Unmarshal([]byte(columnsJSON), &columns); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal columns")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, fields FROM merged_rows WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query rows")
	}
	defer rows.Close() //nolint:errcheck

	t := table.New(name, columns)
	for rows.Next() {
		var key, fieldsJSON string
		if err := rows.Scan(&key, &fieldsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		fields := make(map[string]table.Value)
		if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal fields")
		}
		if err := t.Append(table.Row{Key: key, Fields: fields}); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate rows")
	}
	return t, nil
}

// scanRunRow adapts QueryRow's scanner to the shared scan helper.
func scanRunRow(row *sql.Row) (*model.Run, error) {
	return scanRun(row.Scan)
}

func scanRun(scan func(dest ...any) error) (*model.Run, error) {
	var r model.Run
	var summaryJSON sql.NullString
	err := scan(&r.ID, &r.Manifest, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if summaryJSON.Valid && summaryJSON.String != "" {
		var summary model.RunSummary
		if err := json.Unmarshal([]byte(summaryJSON.String), &summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
		r.Summary = &summary
	}
	return &r, nil
}
