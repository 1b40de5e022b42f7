package identities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/axiscapital/vault/internal/common"
	"github.com/axiscapital/vault/internal/dbx"
	"github.com/axiscapital/vault/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation = "23505"

	usernameConstraint = "identities_username_key"
	emailConstraint    = "identities_email_key"
)

const columns = `id, username, email, password_hash, api_key_encrypted, api_secret_encrypted,
		 risk_profile, is_active, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row scanner) (*models.Identity, error) {
	i := &models.Identity{}
	var risk string
	err := row.Scan(&i.ID, &i.Username, &i.Email, &i.PasswordHash, &i.APIKeyEncrypted, &i.APISecretEncrypted,
		&risk, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	i.RiskProfile = models.RiskProfile(risk)
	return i, nil
}

// translate maps driver errors onto the vault's error taxonomy.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case usernameConstraint:
			return &common.DuplicateIdentityError{Field: common.FieldUsername}
		case emailConstraint:
			return &common.DuplicateIdentityError{Field: common.FieldEmail}
		default:
			return &common.DuplicateIdentityError{}
		}
	}

	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	query :=
		`INSERT INTO identities (username, email, password_hash, api_key_encrypted, api_secret_encrypted, risk_profile)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, is_active, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		identity.Username, identity.Email, identity.PasswordHash,
		identity.APIKeyEncrypted, identity.APISecretEncrypted, string(identity.RiskProfile),
	).Scan(&identity.ID, &identity.IsActive, &identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}

	return identity, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Identity, error) {
	query := `SELECT ` + columns + ` FROM identities WHERE id = $1`

	i, err := scanIdentity(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return i, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Identity, error) {
	query := `SELECT ` + columns + ` FROM identities WHERE username = $1`

	i, err := scanIdentity(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, translate(err)
	}
	return i, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id int64, email string, risk models.RiskProfile) (*models.Identity, error) {
	query :=
		`UPDATE identities SET email = $2, risk_profile = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + columns

	i, err := scanIdentity(r.db.QueryRowContext(ctx, query, id, email, string(risk)))
	if err != nil {
		return nil, translate(err)
	}
	return i, nil
}

func (r *PostgresRepository) UpdateSecrets(ctx context.Context, id int64, apiKeyEncrypted, apiSecretEncrypted string) (*models.Identity, error) {
	query :=
		`UPDATE identities SET api_key_encrypted = $2, api_secret_encrypted = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + columns

	i, err := scanIdentity(r.db.QueryRowContext(ctx, query, id, apiKeyEncrypted, apiSecretEncrypted))
	if err != nil {
		return nil, translate(err)
	}
	return i, nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	query := `UPDATE identities SET password_hash = $2, updated_at = now() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, hash)
	if err != nil {
		return translate(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) SetActive(ctx context.Context, username string, active bool) (*models.Identity, error) {
	query :=
		`UPDATE identities SET is_active = $2, updated_at = now()
		 WHERE username = $1
		 RETURNING ` + columns

	i, err := scanIdentity(r.db.QueryRowContext(ctx, query, username, active))
	if err != nil {
		return nil, translate(err)
	}
	return i, nil
}
