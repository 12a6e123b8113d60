package tasks

import (
	"context"

	"github.com/vettta06/devteam-ai/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	ListByUser(ctx context.Context, userID string, skip, limit int) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error

	Subtasks(ctx context.Context, taskID string) ([]*models.Subtask, error)
	CreateSubtask(ctx context.Context, subtask *models.Subtask) error
	// UpdateSubtaskStatus changes the status of a subtask, but only when the
	// subtask's parent task belongs to userID. Returns common.ErrorNotFound
	// otherwise.
	UpdateSubtaskStatus(ctx context.Context, subtaskID, userID, status string) error
}
