package revocations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	data   map[string]time.Duration
	setErr error
	exErr  error
}

func newFake() *fakeClient {
	return &fakeClient{data: map[string]time.Duration{}}
}

func (f *fakeClient) Set(_ context.Context, key string, _ any, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.data[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if f.exErr != nil {
		return redis.NewIntResult(0, f.exErr)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRevokeAndCheck(t *testing.T) {
	f := newFake()
	repo := NewRedisRepository(f)
	ctx := context.Background()

	revoked, err := repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, repo.Revoke(ctx, "jti-1", time.Hour))
	assert.Equal(t, time.Hour, f.data["vault:revoked:jti-1"])

	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = repo.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevoke_ExpiredTokenIsNoop(t *testing.T) {
	f := newFake()
	require.NoError(t, NewRedisRepository(f).Revoke(context.Background(), "jti", -time.Second))
	assert.Empty(t, f.data)
}

func TestRevoke_EmptyID(t *testing.T) {
	assert.Error(t, NewRedisRepository(newFake()).Revoke(context.Background(), "", time.Hour))

	revoked, err := NewRedisRepository(newFake()).IsRevoked(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisErrors(t *testing.T) {
	f := newFake()
	f.setErr = errors.New("conn refused")
	f.exErr = errors.New("conn refused")
	repo := NewRedisRepository(f)

	assert.ErrorContains(t, repo.Revoke(context.Background(), "jti", time.Minute), "conn refused")

	_, err := repo.IsRevoked(context.Background(), "jti")
	assert.ErrorContains(t, err, "conn refused")
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient(context.Background(), "not-a-url://")
	assert.Error(t, err)
}
