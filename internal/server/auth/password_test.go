package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// cheap parameters keep the suite fast; the format is identical.
func testHasher() *Argon2Hasher {
	return NewArgon2Hasher(Argon2Params{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
}

func TestArgon2Hasher_HashVerify(t *testing.T) {
	h := testHasher()

	for _, pw := range []string{"pw1234", "", "pässwörd", strings.Repeat("x", 200)} {
		encoded, err := h.Hash(pw)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"))
		assert.True(t, h.Verify(pw, encoded), "password %q must verify", pw)
		assert.False(t, h.Verify(pw+"x", encoded))
	}
}

func TestArgon2Hasher_NoTruncation(t *testing.T) {
	h := testHasher()

	long := strings.Repeat("a", 100)
	encoded, err := h.Hash(long + "1")
	require.NoError(t, err)

	assert.False(t, h.Verify(long+"2", encoded))
}

func TestArgon2Hasher_SaltedPerCall(t *testing.T) {
	h := testHasher()

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestArgon2Hasher_BcryptFallback(t *testing.T) {
	h := testHasher()

	legacy, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, h.Verify("old-password", string(legacy)))
	assert.False(t, h.Verify("other", string(legacy)))
	assert.True(t, h.NeedsRehash(string(legacy)))
}

func TestArgon2Hasher_MalformedFailsClosed(t *testing.T) {
	h := testHasher()

	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2id$",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$!!!",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=999$c2FsdA$a2V5",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$2b$garbage",
	} {
		assert.NotPanics(t, func() {
			assert.False(t, h.Verify("pw", encoded), "hash %q must not verify", encoded)
		})
	}
}

func TestArgon2Hasher_NeedsRehash(t *testing.T) {
	weak := testHasher()
	strong := NewArgon2Hasher(Argon2Params{Memory: 2048, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32})

	encoded, err := weak.Hash("pw")
	require.NoError(t, err)

	assert.False(t, weak.NeedsRehash(encoded))
	assert.True(t, strong.NeedsRehash(encoded))
	assert.True(t, strong.NeedsRehash("garbage"))
}

func TestDefaultArgon2Params(t *testing.T) {
	p := DefaultArgon2Params()
	assert.Equal(t, uint32(64*1024), p.Memory)
	assert.Equal(t, uint32(3), p.Iterations)
	assert.Equal(t, uint8(2), p.Parallelism)
}
