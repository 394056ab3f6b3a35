package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sort"
	"sync"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32 // AES-256

// hkdfSalt separates report keys from any other use of the same secrets.
var hkdfSalt = []byte("reportapi/prepared-report/v1")

// Keyring is an AES-256-GCM Encryptor over a set of named keys.
// It is safe for concurrent use.
type Keyring struct {
	mu     sync.RWMutex
	active string
	aeads  map[string]cipher.AEAD
}

var _ Encryptor = (*Keyring)(nil)

// NewKeyring derives one AES-256 key per secret with HKDF-SHA256 and returns a
// ring that encrypts with activeKeyID.
func NewKeyring(secrets map[string]string, activeKeyID string) (*Keyring, error) {
	if _, ok := secrets[activeKeyID]; !ok || len(secrets) == 0 {
		return nil, ErrNoKeys
	}

	k := &Keyring{active: activeKeyID, aeads: make(map[string]cipher.AEAD, len(secrets))}
	for id, secret := range secrets {
		if id == "" || secret == "" {
			return nil, fmt.Errorf("key %q: empty id or secret", id)
		}
		aead, err := newAEAD([]byte(secret), id)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", id, err)
		}
		k.aeads[id] = aead
	}
	return k, nil
}

func newAEAD(secret []byte, keyID string) (cipher.AEAD, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, hkdfSalt, []byte(keyID)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// ActiveKeyID returns the id new ciphertexts are produced under.
func (k *Keyring) ActiveKeyID() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.active
}

// KeyIDs returns the ids in the ring, sorted.
func (k *Keyring) KeyIDs() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	ids := make([]string, 0, len(k.aeads))
	for id := range k.aeads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Rotate adds secret under keyID (if new) and makes it the active key.
// Existing keys are kept so previously stored ciphertexts remain readable.
func (k *Keyring) Rotate(keyID, secret string) error {
	if keyID == "" || secret == "" {
		return fmt.Errorf("rotate: empty id or secret")
	}
	aead, err := newAEAD([]byte(secret), keyID)
	if err != nil {
		return fmt.Errorf("rotate %q: %w", keyID, err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if _, exists := k.aeads[keyID]; !exists {
		k.aeads[keyID] = aead
	}
	k.active = keyID
	return nil
}

// Encrypt implements Encryptor. Output layout is nonce || ciphertext || tag,
// with the key id bound as additional data.
func (k *Keyring) Encrypt(_ context.Context, plaintext []byte) (string, []byte, error) {
	k.mu.RLock()
	keyID := k.active
	aead := k.aeads[keyID]
	k.mu.RUnlock()

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", nil, fmt.Errorf("generate nonce: %w", err)
	}

	return keyID, aead.Seal(nonce, nonce, plaintext, []byte(keyID)), nil
}

// Decrypt implements Encryptor.
func (k *Keyring) Decrypt(_ context.Context, keyID string, ciphertext []byte) ([]byte, error) {
	k.mu.RLock()
	aead, ok := k.aeads[keyID]
	k.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, keyID)
	}

	nonceSize := aead.NonceSize()
	if len(ciphertext) < nonceSize+aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, sealed, []byte(keyID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}
