// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/vettta06/devteam-ai/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh
// tokens. There is deliberately no update operation: rotation is always
// delete-then-insert, which enforces single-use at the data layer.
type Repository interface {
	// Create stores a new refresh token for userID with the given absolute
	// expiry. A token string that already exists yields common.ErrDuplicateToken;
	// uniqueness is enforced by a constraint, not a check-then-insert.
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error

	// Find looks up a refresh token by its opaque token string and returns its
	// metadata. An absent token yields common.ErrorNotFound; absence is a valid
	// outcome meaning "never issued or already revoked", not a failure.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string. Deleting a
	// non-existent token is a no-op.
	Delete(ctx context.Context, token string) error

	// Consume removes a refresh token and reports whether this call removed
	// it: if the row was already gone, common.ErrorNotFound. Rotation burns
	// tokens through Consume so two concurrent rotations of the same token
	// cannot both proceed past the delete.
	Consume(ctx context.Context, token string) error
}
