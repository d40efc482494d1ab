package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"task-list/pkg/task"
)

const pgTable = "task_list"

var pgColumns = []string{"position", "id", "title", "is_completed", "tags", "due_date"}

// PgStore is a PostgreSQL-backed Gateway. The table holds exactly one
// collection; Save rewrites it in a single transaction.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the task_list table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS task_list (
			position     INTEGER NOT NULL,
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			is_completed BOOLEAN NOT NULL DEFAULT FALSE,
			tags         TEXT NOT NULL DEFAULT '',
			due_date     TIMESTAMPTZ
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_task_list_position ON task_list(position)`)
	return err
}

// Load implements Gateway. Query failures return an empty collection.
func (s *PgStore) Load(ctx context.Context) ([]task.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, is_completed, tags, due_date
		FROM task_list ORDER BY position ASC`)
	if err != nil {
		return []task.Task{}, &Error{Kind: KindIO, Op: "load", Path: pgTable, Err: err}
	}
	defer rows.Close()

	tasks, err := scanTaskRows(rows)
	if err != nil {
		return []task.Task{}, &Error{Kind: KindIO, Op: "load", Path: pgTable, Err: err}
	}
	return tasks, nil
}

// Save implements Gateway.
func (s *PgStore) Save(ctx context.Context, tasks []task.Task) error {
	fail := func(err error) error {
		return &Error{Kind: KindIO, Op: "save", Path: pgTable, Err: err}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fail(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM task_list`); err != nil {
		return fail(fmt.Errorf("clear tasks: %w", err))
	}

	rows := make([][]any, len(tasks))
	for i, t := range tasks {
		rows[i] = []any{i, t.ID, t.Title, t.IsCompleted, t.Tags, t.DueDate}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{pgTable}, pgColumns, pgx.CopyFromRows(rows)); err != nil {
		return fail(fmt.Errorf("copy tasks: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fail(fmt.Errorf("commit tasks: %w", err))
	}
	return nil
}

func scanTaskRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]task.Task, error) {
	tasks := []task.Task{}
	for rows.Next() {
		var t task.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.IsCompleted, &t.Tags, &t.DueDate); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}
