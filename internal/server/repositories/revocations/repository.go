// Package revocations keeps a denylist of session token ids so that a
// stateless token can be invalidated before it expires.
package revocations

import (
	"context"
	"time"
)

// Repository records revoked token ids until the token would have expired
// on its own.
type Repository interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
