package handlers

import (
	"time"

	"github.com/vettta06/devteam-ai/internal/server/models"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=4"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type updateProfileRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=4"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

type createTaskRequest struct {
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	ParentTaskID string `json:"parent_task_id"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

type updateSubtaskRequest struct {
	Status string `json:"status" binding:"required"`
}

type taskResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	UserID       string    `json:"user_id"`
	ParentTaskID string    `json:"parent_task_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toTaskResponse(t *models.Task) taskResponse {
	return taskResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		UserID:       t.UserID,
		ParentTaskID: t.ParentTaskID,
		CreatedAt:    t.CreatedAt,
	}
}

type subtaskResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	TaskID      string `json:"task_id"`
}

func toSubtaskResponse(s *models.Subtask) subtaskResponse {
	return subtaskResponse{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Status:      s.Status,
		TaskID:      s.TaskID,
	}
}
