package models

import "time"

// StatusPending is the initial status for tasks and subtasks.
const StatusPending = "pending"

type Task struct {
	ID           string
	Title        string
	Description  string
	Status       string
	UserID       string
	ParentTaskID string
	CreatedAt    time.Time
}

// Subtask is a machine-generated breakdown item attached to a task.
type Subtask struct {
	ID          string
	Title       string
	Description string
	Status      string
	TaskID      string
}
