// Package identities stores account identities in PostgreSQL.
package identities

import (
	"context"

	"github.com/axiscapital/vault/internal/server/models"
)

// Repository persists identities. Implementations translate missing rows to
// common.ErrorNotFound and unique violations to *common.DuplicateIdentityError.
type Repository interface {
	Create(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	GetByID(ctx context.Context, id int64) (*models.Identity, error)
	GetByUsername(ctx context.Context, username string) (*models.Identity, error)
	UpdateProfile(ctx context.Context, id int64, email string, risk models.RiskProfile) (*models.Identity, error)
	// UpdateSecrets replaces both encrypted credentials in a single statement.
	UpdateSecrets(ctx context.Context, id int64, apiKeyEncrypted, apiSecretEncrypted string) (*models.Identity, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	SetActive(ctx context.Context, username string, active bool) (*models.Identity, error)
}
