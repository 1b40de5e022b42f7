// Package cryptox implements the reversible encryption used to store
// third-party API credentials, and their masked display form.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/axiscapital/vault/internal/common"
)

const (
	// KeySize is the raw AES-256 key length.
	KeySize = 32
	// KeyHexLength is the length of the hex-encoded master key.
	KeyHexLength = KeySize * 2

	tokenVersion byte = 0x01
	nonceSize         = 12
)

var tokenEncoding = base64.RawURLEncoding

// SecretCipher seals secrets with AES-256-GCM under a single process-wide key.
//
// Every Encrypt call draws a fresh random nonce, so encrypting the same
// plaintext twice yields different tokens. A token is self-contained:
//
//	base64url( version || nonce || ciphertext+tag )
//
// The version byte is authenticated as additional data.
type SecretCipher struct {
	aead cipher.AEAD
}

// NewSecretCipher decodes a 64-character hex master key and prepares the AEAD.
// Any malformed key yields common.ErrConfiguration; callers are expected to
// refuse to start in that case.
func NewSecretCipher(hexKey string) (*SecretCipher, error) {
	if len(hexKey) != KeyHexLength {
		return nil, fmt.Errorf("%w: encryption key must be %d hex characters, got %d",
			common.ErrConfiguration, KeyHexLength, len(hexKey))
	}

	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: encryption key is not valid hex", common.ErrConfiguration)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}

	return &SecretCipher{aead: aead}, nil
}

// Encrypt seals plaintext into a self-contained token.
func (c *SecretCipher) Encrypt(plaintext string) (string, error) {
	if c == nil || c.aead == nil {
		return "", common.ErrConfiguration
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce generation: %w", err)
	}

	header := []byte{tokenVersion}

	out := make([]byte, 0, 1+nonceSize+len(plaintext)+c.aead.Overhead())
	out = append(out, header...)
	out = append(out, nonce...)
	out = c.aead.Seal(out, nonce, []byte(plaintext), header)

	return tokenEncoding.EncodeToString(out), nil
}

// Decrypt opens a token produced by Encrypt. Tampered, truncated or
// foreign-key tokens all fail with common.ErrDecryption.
func (c *SecretCipher) Decrypt(token string) (string, error) {
	if c == nil || c.aead == nil {
		return "", common.ErrConfiguration
	}

	raw, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return "", common.ErrDecryption
	}

	if len(raw) < 1+nonceSize+c.aead.Overhead() || raw[0] != tokenVersion {
		return "", common.ErrDecryption
	}

	header, nonce, sealed := raw[:1], raw[1:1+nonceSize], raw[1+nonceSize:]

	plaintext, err := c.aead.Open(nil, nonce, sealed, header)
	if err != nil {
		return "", common.ErrDecryption
	}

	return string(plaintext), nil
}

// GenerateKeyHex returns a fresh random master key in the hex form accepted
// by NewSecretCipher.
func GenerateKeyHex() (string, error) {
	b := make([]byte, KeySize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
