package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/vettta06/devteam-ai/internal/common"
	"github.com/vettta06/devteam-ai/internal/dbx"
	"github.com/vettta06/devteam-ai/internal/server/models"
	"github.com/vettta06/devteam-ai/internal/server/planner"
	"github.com/vettta06/devteam-ai/internal/server/repositories/repomanager"
)

// TaskService implements task CRUD scoped to the owning user, plus the
// AI-assisted breakdown of a task into subtasks.
type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	splitter    planner.Splitter
}

func NewTaskService(db *sql.DB, m repomanager.RepositoryManager, splitter planner.Splitter) *TaskService {
	return &TaskService{
		db:          db,
		repomanager: m,
		splitter:    splitter,
	}
}

// CreateTaskParams describes a new task. Status defaults to pending.
type CreateTaskParams struct {
	Title        string
	Description  string
	Status       string
	ParentTaskID string
}

func (s *TaskService) Create(ctx context.Context, userID string, params CreateTaskParams) (*models.Task, error) {
	status := params.Status
	if status == "" {
		status = models.StatusPending
	}

	task := &models.Task{
		ID:           uuid.NewString(),
		Title:        params.Title,
		Description:  params.Description,
		Status:       status,
		UserID:       userID,
		ParentTaskID: params.ParentTaskID,
	}

	task, err := s.repomanager.Tasks(s.db).Create(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("error creating task: %w", err)
	}
	return task, nil
}

// Get returns the task with the given id. A task owned by another user yields
// common.ErrorForbidden, an unknown id common.ErrorNotFound.
func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*models.Task, error) {
	task, err := s.repomanager.Tasks(s.db).GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, common.ErrorForbidden
	}
	return task, nil
}

func (s *TaskService) List(ctx context.Context, userID string, skip, limit int) ([]*models.Task, error) {
	return s.repomanager.Tasks(s.db).ListByUser(ctx, userID, skip, limit)
}

// UpdateTaskParams carries optional task changes; nil fields are left untouched.
type UpdateTaskParams struct {
	Title       *string
	Description *string
	Status      *string
}

func (s *TaskService) Update(ctx context.Context, userID, taskID string, params UpdateTaskParams) (*models.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		task.Title = *params.Title
	}
	if params.Description != nil {
		task.Description = *params.Description
	}
	if params.Status != nil {
		task.Status = *params.Status
	}

	if err := s.repomanager.Tasks(s.db).Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	if _, err := s.Get(ctx, userID, taskID); err != nil {
		return err
	}
	return s.repomanager.Tasks(s.db).Delete(ctx, taskID)
}

// Subtasks lists the generated subtasks of one of the user's tasks.
func (s *TaskService) Subtasks(ctx context.Context, userID, taskID string) ([]*models.Subtask, error) {
	if _, err := s.Get(ctx, userID, taskID); err != nil {
		return nil, err
	}
	return s.repomanager.Tasks(s.db).Subtasks(ctx, taskID)
}

// UpdateSubtaskStatus changes a subtask's status. The repository scopes the
// update to tasks owned by userID, so a foreign subtask reads as not found.
func (s *TaskService) UpdateSubtaskStatus(ctx context.Context, userID, subtaskID, status string) error {
	return s.repomanager.Tasks(s.db).UpdateSubtaskStatus(ctx, subtaskID, userID, status)
}

// Split asks the planner to break the task into subtasks and stores the
// resulting plan. The subtask inserts happen in one transaction: either the
// whole plan lands or none of it does.
func (s *TaskService) Split(ctx context.Context, userID, taskID string) (*planner.Plan, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	plan, err := s.splitter.Split(ctx, fmt.Sprintf("%s: %s", task.Title, task.Description))
	if err != nil {
		return nil, fmt.Errorf("error splitting task: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Tasks(tx)
		for _, sub := range plan.Subtasks {
			subtask := &models.Subtask{
				ID:          uuid.NewString(),
				Title:       sub.Title,
				Description: sub.Description,
				Status:      models.StatusPending,
				TaskID:      taskID,
			}
			if err := repo.CreateSubtask(ctx, subtask); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error storing subtasks: %w", err)
	}

	return plan, nil
}
