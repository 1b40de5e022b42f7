// Package services contains the server-side business logic. AccountService
// owns registration, login, session lookup and the stored exchange
// credentials of each identity.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/axiscapital/vault/internal/common"
	"github.com/axiscapital/vault/internal/cryptox"
	"github.com/axiscapital/vault/internal/dbx"
	"github.com/axiscapital/vault/internal/logging"
	"github.com/axiscapital/vault/internal/server/auth"
	"github.com/axiscapital/vault/internal/server/models"
	"github.com/axiscapital/vault/internal/server/repositories/repomanager"
	"github.com/axiscapital/vault/internal/server/repositories/revocations"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 4
)

// RegisterInput carries the fields of a new account. An empty RiskProfile
// means the default.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	APIKey      string
	APISecret   string
	RiskProfile models.RiskProfile
}

// ProfileUpdate holds the optional fields of a profile update; nil leaves
// the stored value unchanged.
type ProfileUpdate struct {
	Email       *string
	RiskProfile *models.RiskProfile
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Identity  *models.Identity
}

// Profile is the externally visible view of an identity. The API key only
// leaves the service in masked form.
type Profile struct {
	ID           int64
	Username     string
	Email        string
	RiskProfile  models.RiskProfile
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MaskedAPIKey string
}

type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	tokens      *auth.TokenCodec
	cipher      *cryptox.SecretCipher
	revocations revocations.Repository
	logger      logging.Logger

	// verified against when the username is unknown so both paths hash once
	dummyHash string
}

// NewAccountService wires the service. revoked may be nil, in which case
// tokens are purely stateless and Logout reports ErrRevocationDisabled.
func NewAccountService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	hasher auth.PasswordHasher,
	tokens *auth.TokenCodec,
	cipher *cryptox.SecretCipher,
	revoked revocations.Repository,
	logger logging.Logger,
) (*AccountService, error) {
	dummy, err := hasher.Hash("vault-timing-equaliser")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &AccountService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		cipher:      cipher,
		revocations: revoked,
		logger:      logger.With("component", "accounts"),
		dummyHash:   dummy,
	}, nil
}

// RevocationEnabled reports whether Logout can invalidate tokens.
func (s *AccountService) RevocationEnabled() bool {
	return s.revocations != nil
}

// Register validates the input, hashes the password and encrypts both
// secrets before anything is written. A uniqueness violation surfaces as
// *common.DuplicateIdentityError.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.Identity, error) {
	if in.RiskProfile == "" {
		in.RiskProfile = models.DefaultRiskProfile
	}
	if err := validateRegister(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	keyEnc, secretEnc, err := s.encryptPair(in.APIKey, in.APISecret)
	if err != nil {
		return nil, err
	}

	identity := &models.Identity{
		Username:           in.Username,
		Email:              in.Email,
		PasswordHash:       hash,
		APIKeyEncrypted:    keyEnc,
		APISecretEncrypted: secretEnc,
		RiskProfile:        in.RiskProfile,
	}

	var created *models.Identity
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		created, err = s.repomanager.Identities(tx).Create(ctx, identity)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateIdentity) {
			s.logger.Info(ctx, "registration rejected", "reason", err.Error())
		}
		return nil, err
	}

	s.logger.Info(ctx, "identity registered", "identity_id", created.ID)
	return created, nil
}

// Authenticate checks a username and password. Unknown users, wrong
// passwords and deactivated accounts all yield ErrAuthenticationFailed.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.Identity, error) {
	identity, err := s.repomanager.Identities(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, common.ErrAuthenticationFailed
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	if !s.hasher.Verify(password, identity.PasswordHash) {
		return nil, common.ErrAuthenticationFailed
	}
	if !identity.IsActive {
		s.logger.Info(ctx, "login for deactivated identity", "identity_id", identity.ID)
		return nil, common.ErrAuthenticationFailed
	}

	s.upgradeHash(ctx, identity, password)

	return identity, nil
}

// Login authenticates and issues a session token for the identity.
func (s *AccountService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	identity, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(identity.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, Identity: identity}, nil
}

// CurrentIdentity resolves a session token. Bad, expired or revoked tokens
// and vanished identities yield ErrUnauthenticated; a deactivated identity
// yields ErrForbidden.
func (s *AccountService) CurrentIdentity(ctx context.Context, token string) (*models.Identity, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, common.ErrUnauthenticated
	}

	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, common.ErrUnauthenticated
		}
	}

	identity, err := s.repomanager.Identities(s.db).GetByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthenticated
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	if !identity.IsActive {
		return nil, common.ErrForbidden
	}

	return identity, nil
}

// Logout revokes token until it would have expired.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	if s.revocations == nil {
		return common.ErrRevocationDisabled
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return common.ErrUnauthenticated
	}

	return s.revocations.Revoke(ctx, claims.TokenID, time.Until(claims.ExpiresAt))
}

// UpdateProfile changes email and/or risk profile.
func (s *AccountService) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) (*models.Identity, error) {
	if upd.Email != nil {
		if err := validateEmail(*upd.Email); err != nil {
			return nil, err
		}
	}
	if upd.RiskProfile != nil && !upd.RiskProfile.Valid() {
		return nil, &common.ValidationError{Field: "risk_profile", Reason: "must be conservative, balanced or aggressive"}
	}

	var updated *models.Identity
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Identities(tx)

		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		email, risk := current.Email, current.RiskProfile
		if upd.Email != nil {
			email = *upd.Email
		}
		if upd.RiskProfile != nil {
			risk = *upd.RiskProfile
		}

		updated, err = repo.UpdateProfile(ctx, id, email, risk)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// RotateSecrets replaces both stored credentials. They are encrypted first
// and then written together, so one is never left stale.
func (s *AccountService) RotateSecrets(ctx context.Context, id int64, apiKey, apiSecret string) (*models.Identity, error) {
	if err := validateSecrets(apiKey, apiSecret); err != nil {
		return nil, err
	}

	keyEnc, secretEnc, err := s.encryptPair(apiKey, apiSecret)
	if err != nil {
		return nil, err
	}

	var updated *models.Identity
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		updated, err = s.repomanager.Identities(tx).UpdateSecrets(ctx, id, keyEnc, secretEnc)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "secrets rotated", "identity_id", id)
	return updated, nil
}

// MaskedSecret decrypts the stored API key and returns its masked form.
func (s *AccountService) MaskedSecret(identity *models.Identity) (string, error) {
	if identity == nil {
		return "", common.ErrorNotFound
	}

	plain, err := s.cipher.Decrypt(identity.APIKeyEncrypted)
	if err != nil {
		return "", err
	}

	return cryptox.Mask(plain, cryptox.DefaultVisibleSuffix), nil
}

// Profile builds the externally visible view of identity.
func (s *AccountService) Profile(identity *models.Identity) (*Profile, error) {
	masked, err := s.MaskedSecret(identity)
	if err != nil {
		return nil, err
	}

	return &Profile{
		ID:           identity.ID,
		Username:     identity.Username,
		Email:        identity.Email,
		RiskProfile:  identity.RiskProfile,
		IsActive:     identity.IsActive,
		CreatedAt:    identity.CreatedAt,
		UpdatedAt:    identity.UpdatedAt,
		MaskedAPIKey: masked,
	}, nil
}

// SetActive deactivates or reactivates an identity by username.
func (s *AccountService) SetActive(ctx context.Context, username string, active bool) (*models.Identity, error) {
	var updated *models.Identity
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		updated, err = s.repomanager.Identities(tx).SetActive(ctx, username, active)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "identity active flag changed", "identity_id", updated.ID, "active", active)
	return updated, nil
}

// --- helpers below ---

func (s *AccountService) encryptPair(apiKey, apiSecret string) (string, string, error) {
	keyEnc, err := s.cipher.Encrypt(apiKey)
	if err != nil {
		return "", "", fmt.Errorf("encrypt api key: %w", err)
	}
	secretEnc, err := s.cipher.Encrypt(apiSecret)
	if err != nil {
		return "", "", fmt.Errorf("encrypt api secret: %w", err)
	}
	return keyEnc, secretEnc, nil
}

// upgradeHash re-hashes a password stored with a legacy scheme. Failures
// are logged and do not affect the login.
func (s *AccountService) upgradeHash(ctx context.Context, identity *models.Identity, password string) {
	if !s.hasher.NeedsRehash(identity.PasswordHash) {
		return
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn(ctx, "password rehash failed", "identity_id", identity.ID, "error", err)
		return
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Identities(tx).UpdatePasswordHash(ctx, identity.ID, hash)
	})
	if err != nil {
		s.logger.Warn(ctx, "password rehash not stored", "identity_id", identity.ID, "error", err)
		return
	}

	identity.PasswordHash = hash
	s.logger.Info(ctx, "password hash upgraded", "identity_id", identity.ID)
}

func validateRegister(in RegisterInput) error {
	n := utf8.RuneCountInString(in.Username)
	if n < minUsernameLength || n > maxUsernameLength {
		return &common.ValidationError{
			Field:  "username",
			Reason: fmt.Sprintf("must be %d to %d characters", minUsernameLength, maxUsernameLength),
		}
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		return &common.ValidationError{
			Field:  "password",
			Reason: fmt.Sprintf("must be at least %d characters", minPasswordLength),
		}
	}
	if !in.RiskProfile.Valid() {
		return &common.ValidationError{Field: "risk_profile", Reason: "must be conservative, balanced or aggressive"}
	}
	return validateSecrets(in.APIKey, in.APISecret)
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &common.ValidationError{Field: "email", Reason: "not a valid address"}
	}
	return nil
}

func validateSecrets(apiKey, apiSecret string) error {
	if apiKey == "" {
		return &common.ValidationError{Field: "api_key", Reason: "must not be empty"}
	}
	if apiSecret == "" {
		return &common.ValidationError{Field: "api_secret", Reason: "must not be empty"}
	}
	return nil
}
