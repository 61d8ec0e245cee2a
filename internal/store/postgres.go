package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/urban-data-lab/tractjoin/internal/db"
	"github.com/urban-data-lab/tractjoin/internal/model"
	"github.com/urban-data-lab/tractjoin/internal/table"
)

// PostgresStore implements Store using pgxpool. Used when the merged tables
// feed a shared database the rendering collaborator reads directly.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}

	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; tests inject pgxmock here.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         UUID PRIMARY KEY,
	manifest   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS merged_tables (
	run_id  UUID PRIMARY KEY REFERENCES runs(id),
	name    TEXT NOT NULL,
	columns JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS merged_rows (
	run_id   UUID NOT NULL REFERENCES runs(id),
	position INTEGER NOT NULL,
	key      TEXT NOT NULL,
	fields   JSONB NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_merged_rows_key ON merged_rows(run_id, key);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, manifestName string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, manifest, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, manifestName, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Manifest:  manifestName,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error {
	var summaryJSON any
	if summary != nil {
		data, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal summary")
		}
		summaryJSON = data
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, updated_at = $3 WHERE id = $4`,
		string(status), summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, manifest, status, summary, created_at, updated_at FROM runs WHERE id = $1`, runID)
	return scanPGRun(row.Scan)
}

func (s *PostgresStore) LatestRun(ctx context.Context) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, manifest, status, summary, created_at, updated_at
		 FROM runs ORDER BY created_at DESC, id DESC LIMIT 1`)
	return scanPGRun(row.Scan)
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, manifest, status, summary, created_at, updated_at
		 FROM runs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPGRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate runs")
	}
	return runs, nil
}

func (s *PostgresStore) SaveTable(ctx context.Context, runID string, t *table.Table) error {
	columnsJSON, err := json.Marshal(t.Columns)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal columns")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO merged_tables (run_id, name, columns) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id) DO UPDATE SET name = EXCLUDED.name, columns = EXCLUDED.columns`,
		runID, t.Name, columnsJSON,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert table meta")
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM merged_rows WHERE run_id = $1`, runID); err != nil {
		return eris.Wrap(err, "postgres: clear previous rows")
	}

	copyRows := make([][]any, t.Len())
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		fieldsJSON, err := json.Marshal(row.Fields)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal row %d", i)
		}
		copyRows[i] = []any{runID, i, row.Key, fieldsJSON}
	}

	if _, err := db.CopyFrom(ctx, s.pool, "merged_rows",
		[]string{"run_id", "position", "key", "fields"}, copyRows); err != nil {
		return err
	}
	return nil
}

func (s *PostgresStore) GetTable(ctx context.Context, runID string) (*table.Table, error) {
	var name string
	var columnsJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT name, columns FROM merged_tables WHERE run_id = $1`, runID,
	).Scan(&name, &columnsJSON)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: no table for run %s", runID)
		}
		return nil, eris.Wrap(err, "postgres: get table meta")
	}

	var columns []string
	if err := json.Unmarshal(columnsJSON, &columns); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal columns")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT key, fields FROM merged_rows WHERE run_id = $1 ORDER BY position`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query rows")
	}
	defer rows.Close()

	t := table.New(name, columns)
	for rows.Next() {
		var key string
		var fieldsJSON []byte
		if err := rows.Scan(&key, &fieldsJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		fields := make(map[string]table.Value)
		if err := json.Unmarshal(fieldsJSON, &fields); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal fields")
		}
		if err := t.Append(table.Row{Key: key, Fields: fields}); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate rows")
	}
	return t, nil
}

func scanPGRun(scan func(dest ...any) error) (*model.Run, error) {
	var r model.Run
	var summaryJSON []byte
	err := scan(&r.ID, &r.Manifest, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	if len(summaryJSON) > 0 {
		var summary model.RunSummary
		if err := json.Unmarshal(summaryJSON, &summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
		r.Summary = &summary
	}
	return &r, nil
}
