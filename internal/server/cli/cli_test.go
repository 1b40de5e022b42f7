package cli

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/axiscapital/vault/internal/common"
	"github.com/axiscapital/vault/internal/server/config"
	"github.com/axiscapital/vault/internal/server/models"
	"github.com/axiscapital/vault/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApp struct {
	runErr     error
	migrateErr error
	registerIn services.RegisterInput
	setActive  []string
	migrated   bool
	ran        bool
	closed     bool
}

func (f *fakeApp) Run(context.Context) error { f.ran = true; return f.runErr }

func (f *fakeApp) Migrate(context.Context) error { f.migrated = true; return f.migrateErr }

func (f *fakeApp) Close() error { f.closed = true; return nil }

func (f *fakeApp) Register(_ context.Context, in services.RegisterInput) (*models.Identity, error) {
	f.registerIn = in
	return &models.Identity{ID: 7, Username: in.Username}, nil
}

func (f *fakeApp) SetActive(_ context.Context, username string, active bool) (*models.Identity, error) {
	if username == "ghost" {
		return nil, common.ErrorNotFound
	}
	f.setActive = append(f.setActive, username)
	return &models.Identity{ID: 1, Username: username, IsActive: active}, nil
}

type fakeMigrator struct {
	up, status bool
	err        error
}

func (m *fakeMigrator) RunMigrations(context.Context, *sql.DB) error { m.up = true; return m.err }

func (m *fakeMigrator) MigrationStatus(context.Context, *sql.DB) error { m.status = true; return m.err }

// stub replaces the package seams; gotArgs records what reached the config layer.
func stub(t *testing.T, app *fakeApp, mig *fakeMigrator) *[]string {
	t.Helper()

	gotArgs := new([]string)

	oldLoad, oldApp, oldDB, oldMig, oldKey, oldPw, oldFd := loadConfig, newApp, openDB, newMigrator, generateKey, readPassword, stdinFd
	t.Cleanup(func() {
		loadConfig, newApp, openDB, newMigrator, generateKey, readPassword, stdinFd = oldLoad, oldApp, oldDB, oldMig, oldKey, oldPw, oldFd
	})

	loadConfig = func(args []string) (*config.Config, error) {
		*gotArgs = args
		cfg := &config.Config{}
		cfg.LoadDefaults()
		return cfg, nil
	}
	newApp = func(context.Context, *config.Config, io.Writer) (application, error) { return app, nil }
	openDB = func(context.Context, string) (*sql.DB, error) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		mock.ExpectClose()
		return db, nil
	}
	newMigrator = func() migrator { return mig }
	readPassword = func(int) ([]byte, error) { return []byte("s3cret!"), nil }
	stdinFd = func() int { return 0 }

	return gotArgs
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(strings.NewReader(stdin), &out, &errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestServe(t *testing.T) {
	app := &fakeApp{}
	gotArgs := stub(t, app, &fakeMigrator{})

	_, err := run(t, "", "serve", "-a", ":9000", "-d", "postgres://x")
	require.NoError(t, err)

	assert.Equal(t, []string{"-a", ":9000", "-d", "postgres://x"}, *gotArgs)
	assert.True(t, app.migrated)
	assert.True(t, app.ran)
	assert.True(t, app.closed)
}

func TestServe_MigrationFailureStops(t *testing.T) {
	app := &fakeApp{migrateErr: errors.New("no db")}
	stub(t, app, &fakeMigrator{})

	_, err := run(t, "", "serve")
	require.Error(t, err)
	assert.False(t, app.ran)
	assert.True(t, app.closed)
}

func TestServe_AppError(t *testing.T) {
	stub(t, &fakeApp{}, &fakeMigrator{})
	newApp = func(context.Context, *config.Config, io.Writer) (application, error) {
		return nil, common.ErrConfiguration
	}

	_, err := run(t, "", "serve")
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestMigrate(t *testing.T) {
	mig := &fakeMigrator{}
	stub(t, &fakeApp{}, mig)

	out, err := run(t, "", "migrate", "up", "-d", "postgres://x")
	require.NoError(t, err)
	assert.True(t, mig.up)
	assert.Contains(t, out, "migrations applied")

	_, err = run(t, "", "migrate", "status")
	require.NoError(t, err)
	assert.True(t, mig.status)
}

func TestMigrate_Error(t *testing.T) {
	stub(t, &fakeApp{}, &fakeMigrator{err: errors.New("bad sql")})

	_, err := run(t, "", "migrate", "up")
	assert.EqualError(t, err, "bad sql")
}

func TestKeygen(t *testing.T) {
	stub(t, &fakeApp{}, &fakeMigrator{})
	generateKey = func() (string, error) { return strings.Repeat("0f", 32), nil }

	out, err := run(t, "", "keygen")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("0f", 32)+"\n", out)
}

func TestUserCreate(t *testing.T) {
	app := &fakeApp{}
	stub(t, app, &fakeMigrator{})

	stdin := "alice\nalice@example.com\nKEY123\nSECRET456\naggressive\n"
	out, err := run(t, stdin, "user", "create", "-k", strings.Repeat("ab", 32))
	require.NoError(t, err)

	assert.Equal(t, services.RegisterInput{
		Username:    "alice",
		Email:       "alice@example.com",
		Password:    "s3cret!",
		APIKey:      "KEY123",
		APISecret:   "SECRET456",
		RiskProfile: models.RiskAggressive,
	}, app.registerIn)
	assert.Contains(t, out, "created user alice (id 7)")
	assert.NotContains(t, out, "s3cret!")
}

func TestUserCreate_DefaultRisk(t *testing.T) {
	app := &fakeApp{}
	stub(t, app, &fakeMigrator{})

	_, err := run(t, "bob\nbob@example.com\nK\nS\n\n", "user", "create")
	require.NoError(t, err)
	assert.Equal(t, models.RiskBalanced, app.registerIn.RiskProfile)
}

func TestUserCreate_BadRisk(t *testing.T) {
	stub(t, &fakeApp{}, &fakeMigrator{})

	_, err := run(t, "bob\nbob@example.com\nK\nS\nyolo\n", "user", "create")
	assert.Error(t, err)
}

func TestUserCreate_PasswordReadError(t *testing.T) {
	stub(t, &fakeApp{}, &fakeMigrator{})
	readPassword = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }

	_, err := run(t, "bob\nbob@example.com\n", "user", "create")
	assert.EqualError(t, err, "not a terminal")
}

func TestUserSetActive(t *testing.T) {
	app := &fakeApp{}
	stub(t, app, &fakeMigrator{})

	out, err := run(t, "", "user", "deactivate", "-d", "postgres://x", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "user alice deactivated")

	out, err = run(t, "", "user", "activate", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "user alice activated")

	assert.Equal(t, []string{"alice", "alice"}, app.setActive)
}

func TestUserSetActive_Errors(t *testing.T) {
	stub(t, &fakeApp{}, &fakeMigrator{})

	_, err := run(t, "", "user", "deactivate")
	assert.Error(t, err)

	_, err = run(t, "", "user", "deactivate", "a", "b")
	assert.Error(t, err)

	_, err = run(t, "", "user", "deactivate", "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
