package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists exports in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_exports (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			model_name TEXT NOT NULL DEFAULT '',
			turns INTEGER NOT NULL DEFAULT 0,
			content TEXT NOT NULL,
			pii_redacted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_exports_session_created ON chat_exports (session_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

const exportColumns = `id, session_id, filename, model_name, turns, content, pii_redacted, created_at`

func (s *PostgresStore) Save(ctx context.Context, record ExportRecord) (ExportRecord, error) {
	fillDefaults(&record)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_exports (`+exportColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID,
		record.SessionID,
		record.Filename,
		record.ModelName,
		record.Turns,
		record.Content,
		record.PIIRedacted,
		record.CreatedAt,
	)
	if err != nil {
		return ExportRecord{}, fmt.Errorf("save export: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (ExportRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+exportColumns+` FROM chat_exports WHERE id=$1`, id)
	rec, err := scanExport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ExportRecord{}, ErrNotFound
	}
	if err != nil {
		return ExportRecord{}, fmt.Errorf("get export: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]ExportRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+exportColumns+` FROM chat_exports WHERE session_id=$1 ORDER BY created_at DESC LIMIT $2`,
		sessionID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close()

	items := make([]ExportRecord, 0, limit)
	for rows.Next() {
		rec, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export rows: %w", err)
	}
	return items, nil
}

func scanExport(row pgx.Row) (ExportRecord, error) {
	var r ExportRecord
	err := row.Scan(&r.ID, &r.SessionID, &r.Filename, &r.ModelName, &r.Turns, &r.Content, &r.PIIRedacted, &r.CreatedAt)
	return r, err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
