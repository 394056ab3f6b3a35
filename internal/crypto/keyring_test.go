package crypto

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeyring(t *testing.T) *Keyring {
	t.Helper()
	k, err := NewKeyring(map[string]string{
		"2023-a": "first secret",
		"2024-b": "second secret",
	}, "2024-b")
	require.NoError(t, err)
	return k
}

func TestNewKeyring_Errors(t *testing.T) {
	_, err := NewKeyring(nil, "a")
	assert.ErrorIs(t, err, ErrNoKeys)

	_, err = NewKeyring(map[string]string{"a": "s"}, "b")
	assert.ErrorIs(t, err, ErrNoKeys)

	_, err = NewKeyring(map[string]string{"a": "s", "b": ""}, "a")
	assert.Error(t, err)
}

func TestKeyring_RoundTrip(t *testing.T) {
	k := newTestKeyring(t)
	ctx := context.Background()

	payloads := [][]byte{
		{},
		[]byte("x"),
		[]byte(`{"applicant":"Jane","children":[1,2,3]}`),
		bytes.Repeat([]byte{0x25, 0x50, 0x44, 0x46}, 4096),
	}

	for _, p := range payloads {
		keyID, ct, err := k.Encrypt(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "2024-b", keyID)
		assert.NotEqual(t, p, ct)

		got, err := k.Decrypt(ctx, keyID, ct)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestKeyring_NonceIsRandom(t *testing.T) {
	k := newTestKeyring(t)
	ctx := context.Background()

	_, ct1, err := k.Encrypt(ctx, []byte("same"))
	require.NoError(t, err)
	_, ct2, err := k.Encrypt(ctx, []byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, ct1, ct2)
}

func TestKeyring_DecryptErrors(t *testing.T) {
	k := newTestKeyring(t)
	ctx := context.Background()

	keyID, ct, err := k.Encrypt(ctx, []byte("report"))
	require.NoError(t, err)

	t.Run("unknown key", func(t *testing.T) {
		_, err := k.Decrypt(ctx, "missing", ct)
		assert.ErrorIs(t, err, ErrUnknownKey)
	})

	t.Run("wrong key id", func(t *testing.T) {
		_, err := k.Decrypt(ctx, "2023-a", ct)
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := k.Decrypt(ctx, keyID, ct[:5])
		assert.ErrorIs(t, err, ErrCiphertextTooShort)
	})

	t.Run("tampered", func(t *testing.T) {
		bad := append([]byte(nil), ct...)
		bad[len(bad)-1] ^= 0xff
		_, err := k.Decrypt(ctx, keyID, bad)
		assert.ErrorIs(t, err, ErrDecrypt)
	})
}

func TestKeyring_Rotate(t *testing.T) {
	k := newTestKeyring(t)
	ctx := context.Background()

	oldID, oldCT, err := k.Encrypt(ctx, []byte("before rotation"))
	require.NoError(t, err)

	require.NoError(t, k.Rotate("2025-c", "third secret"))
	assert.Equal(t, "2025-c", k.ActiveKeyID())
	assert.Equal(t, []string{"2023-a", "2024-b", "2025-c"}, k.KeyIDs())

	newID, newCT, err := k.Encrypt(ctx, []byte("after rotation"))
	require.NoError(t, err)
	assert.Equal(t, "2025-c", newID)

	got, err := k.Decrypt(ctx, oldID, oldCT)
	require.NoError(t, err)
	assert.Equal(t, "before rotation", string(got))

	got, err = k.Decrypt(ctx, newID, newCT)
	require.NoError(t, err)
	assert.Equal(t, "after rotation", string(got))

	assert.Error(t, k.Rotate("", "x"))
}

func TestKeyring_SameSecretDifferentIDs(t *testing.T) {
	k, err := NewKeyring(map[string]string{"a": "shared", "b": "shared"}, "a")
	require.NoError(t, err)
	ctx := context.Background()

	_, ct, err := k.Encrypt(ctx, []byte("bound to a"))
	require.NoError(t, err)

	_, err = k.Decrypt(ctx, "b", ct)
	assert.ErrorIs(t, err, ErrDecrypt)
}
