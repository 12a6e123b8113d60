package users

import (
	"context"

	"github.com/vettta06/devteam-ai/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByConfirmationToken(ctx context.Context, token string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, skip, limit int) ([]*models.User, error)
	Delete(ctx context.Context, id string) error
}
