// Package postgres stores solution records in PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/satchel/internal/journal"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements journal.Backend
var _ journal.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS solution_records (
	id TEXT PRIMARY KEY,
	task_id BIGINT NOT NULL,
	task_name TEXT NOT NULL,
	prompt_path TEXT,
	answer_path TEXT,
	prompt_length INTEGER NOT NULL,
	fragments INTEGER NOT NULL,
	failed_fragments INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	error TEXT
);
`

// New creates a new Postgres-backed journal.Backend.
func New(ctx context.Context, dsn string) (journal.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, record *journal.SolutionRecord) error {
	query := `
	INSERT INTO solution_records (
		id, task_id, task_name, prompt_path, answer_path, prompt_length, fragments, failed_fragments, duration_ms, created_at, error
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := b.pool.Exec(ctx, query,
		record.ID,
		record.TaskID,
		record.TaskName,
		record.PromptPath,
		record.AnswerPath,
		record.PromptLength,
		record.Fragments,
		record.FailedFragments,
		record.Duration.Milliseconds(),
		record.CreatedAt,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter journal.Filter) ([]*journal.SolutionRecord, error) {
	query := `SELECT id, task_id, task_name, prompt_path, answer_path, prompt_length, fragments, failed_fragments, duration_ms, created_at, error FROM solution_records WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.TaskName != "" {
		query += fmt.Sprintf(` AND task_name = $%d`, paramCount)
		args = append(args, filter.TaskName)
		paramCount++
	}
	if filter.Failed != nil {
		if *filter.Failed {
			query += ` AND error != ''`
		} else {
			query += ` AND error = ''`
		}
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
		paramCount++
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*journal.SolutionRecord
	for rows.Next() {
		var r journal.SolutionRecord
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.TaskID, &r.TaskName, &r.PromptPath, &r.AnswerPath,
			&r.PromptLength, &r.Fragments, &r.FailedFragments, &durationMs, &r.CreatedAt, &r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return records, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
