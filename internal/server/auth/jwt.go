// Package auth holds the credential primitives of the vault: password
// hashing and signed session tokens.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/axiscapital/vault/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the verified contents of a session token.
type Claims struct {
	Subject   string
	TokenID   string
	ExpiresAt time.Time
}

// TokenCodec issues and verifies HMAC-signed JWTs. Tokens are stateless:
// expiry is the only bound on their lifetime unless the caller keeps a
// revocation list keyed by TokenID.
type TokenCodec struct {
	secret     []byte
	method     jwt.SigningMethod
	defaultTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec validates the algorithm name (HS256, HS384 or HS512) and
// returns a codec. A non-positive defaultTTL falls back to 24 hours.
func NewTokenCodec(secret []byte, algorithm string, defaultTTL time.Duration) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: jwt secret is empty", common.ErrConfiguration)
	}

	method, ok := jwt.GetSigningMethod(strings.ToUpper(algorithm)).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported jwt algorithm %q", common.ErrConfiguration, algorithm)
	}

	if defaultTTL <= 0 {
		defaultTTL = common.DefaultAccessTokenTTL
	}

	return &TokenCodec{
		secret:     secret,
		method:     method,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}, nil
}

// Issue signs a token for subject with the default TTL.
func (c *TokenCodec) Issue(subject string) (string, time.Time, error) {
	return c.IssueWithTTL(subject, c.defaultTTL)
}

// IssueWithTTL signs a token for subject that expires ttl from now. A
// non-positive ttl produces a token that is already expired.
func (c *TokenCodec) IssueWithTTL(subject string, ttl time.Duration) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(c.method, jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Verify checks algorithm, signature and expiry in one pass. Every failure
// is reported as common.ErrUnauthenticated so callers cannot tell reasons apart.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrUnauthenticated
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return nil, common.ErrUnauthenticated
	}

	return &Claims{
		Subject:   claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
