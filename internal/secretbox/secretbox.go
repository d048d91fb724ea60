// Package secretbox provides authenticated symmetric encryption for stored
// provider credentials.
//
// The scheme is AES-256-GCM with a key derived from a server-held master
// secret via HKDF-SHA256. Each value gets a fresh random nonce; the nonce
// is prepended to the ciphertext so decryption is self-contained.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// keyInfo binds the derived key to its purpose so the same master secret
// can safely serve other derivations later.
const keyInfo = "bookshelfai/credential-encryption/v1"

// ErrInvalidCiphertext indicates the blob is too short or failed
// authentication.
var ErrInvalidCiphertext = errors.New("secretbox: invalid ciphertext")

// Box seals and opens credential values with a single derived key.
type Box struct {
	aead cipher.AEAD
}

// New derives the encryption key from the master secret and prepares the
// AEAD. The master secret must be non-empty; its length is otherwise
// unconstrained because HKDF stretches it to 32 bytes.
func New(masterSecret string) (*Box, error) {
	if masterSecret == "" {
		return nil, errors.New("secretbox: master secret is required")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(masterSecret), nil, []byte(keyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("secretbox: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secretbox: init gcm: %w", err)
	}

	return &Box{aead: aead}, nil
}

// Seal encrypts plaintext and returns nonce||ciphertext.
func (b *Box) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("secretbox: generate nonce: %w", err)
	}
	return b.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a nonce||ciphertext blob produced by Seal.
func (b *Box) Open(blob []byte) ([]byte, error) {
	if len(blob) < b.aead.NonceSize() {
		return nil, ErrInvalidCiphertext
	}
	nonce, ciphertext := blob[:b.aead.NonceSize()], blob[b.aead.NonceSize():]
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	return plaintext, nil
}
