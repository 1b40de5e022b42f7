package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/axiscapital/vault/internal/common"
	"github.com/axiscapital/vault/internal/cryptox"
	"github.com/axiscapital/vault/internal/dbx"
	"github.com/axiscapital/vault/internal/logging"
	"github.com/axiscapital/vault/internal/server/auth"
	"github.com/axiscapital/vault/internal/server/models"
	"github.com/axiscapital/vault/internal/server/repositories/identities"
	"github.com/axiscapital/vault/internal/server/repositories/revocations"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// memIdentities mimics the unique constraints of the identities table.
type memIdentities struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]models.Identity

	hashUpdates int
	failWith    error
}

func newMemIdentities() *memIdentities {
	return &memIdentities{rows: map[int64]models.Identity{}}
}

var _ identities.Repository = (*memIdentities)(nil)

func (m *memIdentities) conflict(id int64, username, email string) error {
	for _, r := range m.rows {
		if r.ID == id {
			continue
		}
		if r.Username == username {
			return &common.DuplicateIdentityError{Field: common.FieldUsername}
		}
		if r.Email == email {
			return &common.DuplicateIdentityError{Field: common.FieldEmail}
		}
	}
	return nil
}

func (m *memIdentities) Create(_ context.Context, i *models.Identity) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	if err := m.conflict(0, i.Username, i.Email); err != nil {
		return nil, err
	}
	m.nextID++
	now := time.Now()
	i.ID, i.IsActive, i.CreatedAt, i.UpdatedAt = m.nextID, true, now, now
	m.rows[i.ID] = *i
	out := *i
	return &out, nil
}

func (m *memIdentities) GetByID(_ context.Context, id int64) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &r, nil
}

func (m *memIdentities) GetByUsername(_ context.Context, username string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, r := range m.rows {
		if r.Username == username {
			return &r, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memIdentities) update(id int64, fn func(r *models.Identity)) (*models.Identity, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	fn(&r)
	r.UpdatedAt = time.Now()
	m.rows[id] = r
	return &r, nil
}

func (m *memIdentities) UpdateProfile(_ context.Context, id int64, email string, risk models.RiskProfile) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.conflict(id, "", email); err != nil {
		return nil, err
	}
	return m.update(id, func(r *models.Identity) { r.Email, r.RiskProfile = email, risk })
}

func (m *memIdentities) UpdateSecrets(_ context.Context, id int64, k, s string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.update(id, func(r *models.Identity) { r.APIKeyEncrypted, r.APISecretEncrypted = k, s })
}

func (m *memIdentities) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashUpdates++
	_, err := m.update(id, func(r *models.Identity) { r.PasswordHash = hash })
	return err
}

func (m *memIdentities) SetActive(_ context.Context, username string, active bool) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rows {
		if r.Username == username {
			return m.update(id, func(r *models.Identity) { r.IsActive = active })
		}
	}
	return nil, common.ErrorNotFound
}

type fakeRepoManager struct {
	ids *memIdentities
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error   { return nil }
func (f *fakeRepoManager) MigrationStatus(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Identities(dbx.DBTX) identities.Repository      { return f.ids }

type memRevocations struct {
	revoked map[string]time.Duration
}

var _ revocations.Repository = (*memRevocations)(nil)

func (m *memRevocations) Revoke(_ context.Context, id string, ttl time.Duration) error {
	m.revoked[id] = ttl
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	_, ok := m.revoked[id]
	return ok, nil
}

func testHasher() *auth.Argon2Hasher {
	return auth.NewArgon2Hasher(auth.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
}

type fixture struct {
	svc  *AccountService
	ids  *memIdentities
	mock sqlmock.Sqlmock
}

func newFixture(t *testing.T, revoked revocations.Repository) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	codec, err := auth.NewTokenCodec([]byte("test-secret"), "HS256", time.Hour)
	require.NoError(t, err)

	key, err := cryptox.GenerateKeyHex()
	require.NoError(t, err)
	cipher, err := cryptox.NewSecretCipher(key)
	require.NoError(t, err)

	ids := newMemIdentities()
	svc, err := NewAccountService(db, &fakeRepoManager{ids: ids}, testHasher(), codec, cipher, revoked, nopLogger{})
	require.NoError(t, err)

	return &fixture{svc: svc, ids: ids, mock: mock}
}

// expectTx queues n committed transactions.
func (f *fixture) expectTx(n int) {
	for i := 0; i < n; i++ {
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
	}
}

func (f *fixture) expectRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}
