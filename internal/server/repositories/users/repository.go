package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/socialhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetRecoveryToken(ctx context.Context, id, token string, sentAt time.Time) error
}
