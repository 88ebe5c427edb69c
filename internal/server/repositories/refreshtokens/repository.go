// Package refreshtokens stores the refresh tokens issued with each session.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/socialhub/internal/server/models"
)

type Repository interface {
	// Create stores token for userID, valid until expiresAt.
	Create(ctx context.Context, userID, token string, expiresAt time.Time) error

	// Find returns common.ErrNotFound for unknown tokens.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete reports whether a token was removed.
	Delete(ctx context.Context, token string) (bool, error)
}
