// Copyright (c) 2026 Trackly. All rights reserved.

package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trackly/trackly/internal/platform/apperr"
	"github.com/trackly/trackly/internal/platform/dberr"
)

// PostgresTaskRepository implements the TaskRepository interface using pgx.
type PostgresTaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new PostgreSQL implementation of the TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *PostgresTaskRepository {
	return &PostgresTaskRepository{pool: pool}
}

const taskColumns = `id, title, description, status, priority, due_date, created_by, assigned_to, created_at, updated_at`

/*
Create persists a new task record.

Parameters:
  - context: context.Context
  - task: *Task (Entity to persist)

Returns:
  - error: Persistence failures
*/
func (repository *PostgresTaskRepository) Create(context context.Context, task *Task) error {
	const query = `
		INSERT INTO tasks (
			id, title, description, status, priority, due_date,
			created_by, assigned_to, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.CreatedBy,
		task.AssignedTo,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "Task")
	}

	return nil
}

/*
FindByID retrieves a task by primary key.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Task: Hydrated task entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresTaskRepository) FindByID(context context.Context, id string) (*Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task := &Task{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.CreatedBy,
		&task.AssignedTo,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Task")
		}
		return nil, fmt.Errorf("postgres_task_repo_query_failed: %w", err)
	}

	return task, nil
}

/*
UpdateAssignee changes who a task is assigned to and returns the result.

Parameters:
  - context: context.Context
  - id: string
  - assigneeID: string

Returns:
  - *Task: the task after the update
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresTaskRepository) UpdateAssignee(context context.Context, id, assigneeID string) (*Task, error) {
	const query = `
		UPDATE tasks SET assigned_to = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + taskColumns

	task := &Task{}
	err := repository.pool.QueryRow(context, query, id, assigneeID, time.Now()).Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.CreatedBy,
		&task.AssignedTo,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Task")
		}
		return nil, fmt.Errorf("postgres_task_repo_update_failed: %w", err)
	}

	return task, nil
}

/*
Delete removes a task permanently.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: apperr.NotFound when no row matched
*/
func (repository *PostgresTaskRepository) Delete(context context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`

	tag, err := repository.pool.Exec(context, query, id)
	if err != nil {
		return fmt.Errorf("postgres_task_repo_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Task")
	}

	return nil
}

// ListAssigned returns tasks assigned to the user, newest first.
func (repository *PostgresTaskRepository) ListAssigned(context context.Context, userID string, filter Filter) ([]*Task, error) {
	return repository.list(context, `assigned_to = $1`, userID, filter)
}

// ListCreated returns tasks created by the user, newest first.
func (repository *PostgresTaskRepository) ListCreated(context context.Context, userID string, filter Filter) ([]*Task, error) {
	return repository.list(context, `created_by = $1`, userID, filter)
}

// ListAll returns every task, newest first.
func (repository *PostgresTaskRepository) ListAll(context context.Context, filter Filter) ([]*Task, error) {
	return repository.list(context, ``, "", filter)
}

// list builds the shared filtered listing query. ownerClause is either empty
// or a single-placeholder predicate bound to ownerArg.
func (repository *PostgresTaskRepository) list(context context.Context, ownerClause, ownerArg string, filter Filter) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`

	var predicates []string
	var args []any

	if ownerClause != "" {
		predicates = append(predicates, ownerClause)
		args = append(args, ownerArg)
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		predicates = append(predicates, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		predicates = append(predicates, fmt.Sprintf("priority = $%d", len(args)))
	}
	if filter.DueFrom != nil {
		args = append(args, *filter.DueFrom)
		predicates = append(predicates, fmt.Sprintf("due_date >= $%d", len(args)))
	}
	if filter.DueTo != nil {
		args = append(args, *filter.DueTo)
		predicates = append(predicates, fmt.Sprintf("due_date <= $%d", len(args)))
	}

	for i, predicate := range predicates {
		if i == 0 {
			query += ` WHERE ` + predicate
		} else {
			query += ` AND ` + predicate
		}
	}
	query += ` ORDER BY created_at DESC`

	rows, err := repository.pool.Query(context, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres_task_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var taskList []*Task
	for rows.Next() {
		task := &Task{}
		if err := rows.Scan(
			&task.ID,
			&task.Title,
			&task.Description,
			&task.Status,
			&task.Priority,
			&task.DueDate,
			&task.CreatedBy,
			&task.AssignedTo,
			&task.CreatedAt,
			&task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_task_repo_scan_failed: %w", err)
		}
		taskList = append(taskList, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_task_repo_rows_failed: %w", err)
	}

	return taskList, nil
}
