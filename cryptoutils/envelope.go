package cryptoutils

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/ruteri/zkkb/interfaces"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// X25519KeySize is the length of X25519 private scalars and public points.
const X25519KeySize = curve25519.ScalarSize

const wrapKeyInfo = "wrap-key"

// X25519KeyPair is a Diffie-Hellman keypair used for envelope encryption.
type X25519KeyPair struct {
	PublicKey  [X25519KeySize]byte
	PrivateKey [X25519KeySize]byte
}

// NewX25519KeyPair generates a random keypair.
func NewX25519KeyPair() (*X25519KeyPair, error) {
	var priv [X25519KeySize]byte
	if _, err := io.ReadFull(rand.Reader, priv[:]); err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return X25519KeyPairFromPrivate(priv[:])
}

// X25519KeyPairFromPrivate computes the public point for a private scalar.
func X25519KeyPairFromPrivate(priv []byte) (*X25519KeyPair, error) {
	if len(priv) != X25519KeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes", interfaces.ErrInvalidInput, X25519KeySize)
	}

	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidInput, err)
	}

	kp := &X25519KeyPair{}
	copy(kp.PrivateKey[:], priv)
	copy(kp.PublicKey[:], pub)
	return kp, nil
}

// Zero overwrites the private scalar.
func (kp *X25519KeyPair) Zero() {
	for i := range kp.PrivateKey {
		kp.PrivateKey[i] = 0
	}
}

// HKDF expands secret into length bytes with HKDF-SHA256 under the given info tag.
func HKDF(secret, salt []byte, info string, length int) ([]byte, error) {
	out := make([]byte, length)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(info)), out); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return out, nil
}

func wrappingKey(sharedSecret []byte) (SymmetricKey, error) {
	raw, err := HKDF(sharedSecret, nil, wrapKeyInfo, SymmetricKeySize)
	if err != nil {
		return SymmetricKey{}, err
	}
	return SymmetricKeyFromBytes(raw)
}

// WrapKey encrypts payload so that only the holder of the private key matching
// recipientPublicKey can recover it. Every call uses a fresh ephemeral keypair
// and nonce, so wrapping the same payload twice gives unrelated outputs.
func WrapKey(payload []byte, recipientPublicKey []byte) (interfaces.WrappedKey, error) {
	if len(recipientPublicKey) != X25519KeySize {
		return interfaces.WrappedKey{}, fmt.Errorf("%w: recipient public key must be %d bytes", interfaces.ErrInvalidInput, X25519KeySize)
	}

	ephemeral, err := NewX25519KeyPair()
	if err != nil {
		return interfaces.WrappedKey{}, err
	}
	defer ephemeral.Zero()

	sharedSecret, err := curve25519.X25519(ephemeral.PrivateKey[:], recipientPublicKey)
	if err != nil {
		return interfaces.WrappedKey{}, fmt.Errorf("%w: %v", interfaces.ErrInvalidInput, err)
	}

	key, err := wrappingKey(sharedSecret)
	if err != nil {
		return interfaces.WrappedKey{}, err
	}
	defer key.Zero()

	ciphertext, iv, err := Encrypt(key, payload)
	if err != nil {
		return interfaces.WrappedKey{}, err
	}

	return interfaces.WrappedKey{
		EphemeralPublicKey: append([]byte(nil), ephemeral.PublicKey[:]...),
		Ciphertext:         ciphertext,
		IV:                 iv,
	}, nil
}

// UnwrapKey recovers the payload of a WrappedKey. A wrong private key or any
// tampering yields ErrAuthenticationFailed.
func UnwrapKey(wrapped interfaces.WrappedKey, recipientPrivateKey []byte) ([]byte, error) {
	if len(recipientPrivateKey) != X25519KeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes", interfaces.ErrInvalidInput, X25519KeySize)
	}
	if len(wrapped.EphemeralPublicKey) != X25519KeySize {
		return nil, fmt.Errorf("%w: malformed ephemeral public key", interfaces.ErrAuthenticationFailed)
	}

	sharedSecret, err := curve25519.X25519(recipientPrivateKey, wrapped.EphemeralPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrAuthenticationFailed, err)
	}

	key, err := wrappingKey(sharedSecret)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	return Decrypt(key, wrapped.Ciphertext, wrapped.IV)
}
