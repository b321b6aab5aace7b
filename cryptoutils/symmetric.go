package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ruteri/zkkb/interfaces"
)

const (
	// SymmetricKeySize is the AES-256 key length in bytes.
	SymmetricKeySize = 32
	// NonceSize is the AES-GCM nonce length in bytes.
	NonceSize = 12
)

// SymmetricKey is a 256-bit AES-GCM key, such as a board key.
type SymmetricKey [SymmetricKeySize]byte

// GenerateSymmetricKey returns a fresh random 256-bit key.
func GenerateSymmetricKey() (SymmetricKey, error) {
	var key SymmetricKey
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return SymmetricKey{}, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// SymmetricKeyFromBytes copies a raw 32-byte key.
func SymmetricKeyFromBytes(raw []byte) (SymmetricKey, error) {
	var key SymmetricKey
	if len(raw) != SymmetricKeySize {
		return key, fmt.Errorf("%w: symmetric key must be %d bytes, got %d", interfaces.ErrInvalidInput, SymmetricKeySize, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// Bytes returns the raw key bytes.
func (k SymmetricKey) Bytes() []byte {
	return k[:]
}

// Zero overwrites the key material.
func (k *SymmetricKey) Zero() {
	for i := range k {
		k[i] = 0
	}
}

// Encrypt seals plaintext under key with a fresh random 96-bit nonce.
func Encrypt(key SymmetricKey, plaintext []byte) (ciphertext []byte, iv []byte, err error) {
	aesGCM, err := newGCM(key[:])
	if err != nil {
		return nil, nil, err
	}

	iv = make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	return aesGCM.Seal(nil, iv, plaintext, nil), iv, nil
}

// Decrypt opens ciphertext produced by Encrypt. Any authentication failure,
// including a nonce of the wrong length, yields ErrAuthenticationFailed.
func Decrypt(key SymmetricKey, ciphertext []byte, iv []byte) ([]byte, error) {
	if len(iv) != NonceSize {
		return nil, fmt.Errorf("%w: nonce must be %d bytes", interfaces.ErrAuthenticationFailed, NonceSize)
	}

	aesGCM, err := newGCM(key[:])
	if err != nil {
		return nil, err
	}

	plaintext, err := aesGCM.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, interfaces.ErrAuthenticationFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	aesBlock, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
