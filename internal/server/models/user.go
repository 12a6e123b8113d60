package models

import "time"

type User struct {
	ID                string
	Email             string
	PasswordHash      string
	IsActive          bool
	IsAdmin           bool
	ConfirmationToken string
	CreatedAt         time.Time
}
