// Package crypto encrypts prepared reports at rest.
//
// Every ciphertext is tagged with the id of the key that produced it, so the
// active key can be rotated without re-encrypting stored data: old ciphertexts
// stay readable for as long as their key remains in the ring.
package crypto

import (
	"context"
	"errors"
)

var (
	// ErrUnknownKey is returned when a key id is not present in the ring.
	ErrUnknownKey = errors.New("unknown encryption key")
	// ErrCiphertextTooShort is returned when the input cannot hold a nonce and a tag.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	// ErrDecrypt is returned when authentication of the ciphertext fails.
	ErrDecrypt = errors.New("decryption failed")
	// ErrNoKeys is returned when a ring is built without keys or without a valid active key.
	ErrNoKeys = errors.New("key ring has no usable active key")
)

// Encryptor is the symmetric encryption capability used by the report cache.
type Encryptor interface {
	// Encrypt seals plaintext under the active key and returns that key's id
	// together with the ciphertext.
	Encrypt(ctx context.Context, plaintext []byte) (keyID string, ciphertext []byte, err error)

	// Decrypt opens a ciphertext produced by Encrypt under keyID.
	Decrypt(ctx context.Context, keyID string, ciphertext []byte) ([]byte, error)
}
