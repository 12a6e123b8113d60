// Package tasks provides a PostgreSQL-backed repository for tasks and their
// machine-generated subtasks.
package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vettta06/devteam-ai/internal/common"
	"github.com/vettta06/devteam-ai/internal/dbx"
	"github.com/vettta06/devteam-ai/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const taskColumns = `id, title, description, status, user_id, COALESCE(parent_task_id::text, ''), created_at`

func (r *PostgresRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	query := `
		INSERT INTO tasks (id, title, description, status, user_id, parent_task_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		task.ID, task.Title, task.Description, task.Status, task.UserID, task.ParentTaskID).
		Scan(&task.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return task, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task := &models.Task{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&task.ID, &task.Title, &task.Description,
		&task.Status, &task.UserID, &task.ParentTaskID, &task.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return task, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, skip, limit int) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY created_at OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, userID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Task
	for rows.Next() {
		task := &models.Task{}
		if err := rows.Scan(&task.ID, &task.Title, &task.Description, &task.Status,
			&task.UserID, &task.ParentTaskID, &task.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, task.ID, task.Title, task.Description, task.Status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM tasks WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Subtasks(ctx context.Context, taskID string) ([]*models.Subtask, error) {
	query := `SELECT id, title, description, status, task_id FROM subtasks WHERE task_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Subtask
	for rows.Next() {
		sub := &models.Subtask{}
		if err := rows.Scan(&sub.ID, &sub.Title, &sub.Description, &sub.Status, &sub.TaskID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) CreateSubtask(ctx context.Context, subtask *models.Subtask) error {
	query := `
		INSERT INTO subtasks (id, title, description, status, task_id)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query,
		subtask.ID, subtask.Title, subtask.Description, subtask.Status, subtask.TaskID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateSubtaskStatus(ctx context.Context, subtaskID, userID, status string) error {
	query := `
		UPDATE subtasks
		SET status = $3
		FROM tasks
		WHERE subtasks.id = $1 AND subtasks.task_id = tasks.id AND tasks.user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, subtaskID, userID, status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
