// Package sqlite stores solution records in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/FranksOps/satchel/internal/journal"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements journal.Backend
var _ journal.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS solution_records (
	id TEXT PRIMARY KEY,
	task_id INTEGER NOT NULL,
	task_name TEXT NOT NULL,
	prompt_path TEXT,
	answer_path TEXT,
	prompt_length INTEGER NOT NULL,
	fragments INTEGER NOT NULL,
	failed_fragments INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	error TEXT
);
`

// New creates a new SQLite-backed journal.Backend.
func New(dsn string) (journal.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, record *journal.SolutionRecord) error {
	query := `
	INSERT INTO solution_records (
		id, task_id, task_name, prompt_path, answer_path, prompt_length, fragments, failed_fragments, duration_ms, created_at, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
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

func (b *sqliteBackend) Query(ctx context.Context, filter journal.Filter) ([]*journal.SolutionRecord, error) {
	query := `SELECT id, task_id, task_name, prompt_path, answer_path, prompt_length, fragments, failed_fragments, duration_ms, created_at, error FROM solution_records WHERE 1=1`
	args := []any{}

	if filter.TaskName != "" {
		query += ` AND task_name = ?`
		args = append(args, filter.TaskName)
	}
	if filter.Failed != nil {
		if *filter.Failed {
			query += ` AND error != ''`
		} else {
			query += ` AND error = ''`
		}
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
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

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
