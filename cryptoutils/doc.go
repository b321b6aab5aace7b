// Package cryptoutils provides the envelope encryption primitives used for
// board content, board keys and sealed identities.
//
// # Symmetric encryption
//
// Board documents, attachments and queued changes are encrypted with
// AES-256-GCM under a SymmetricKey. Every call to Encrypt draws a fresh
// 12-byte nonce which is returned alongside the ciphertext. Decrypt fails
// with interfaces.ErrAuthenticationFailed on a wrong key, a tampered
// ciphertext or a malformed nonce.
//
// # Key wrapping
//
// WrapKey seals a payload to a single recipient's X25519 public key:
//
//   - a fresh ephemeral X25519 keypair is generated for each call
//   - the shared secret is expanded with HKDF-SHA256 into an AES-256 key
//   - the payload is encrypted with AES-GCM under that key
//
// The resulting interfaces.WrappedKey carries the ephemeral public key, the
// ciphertext and the nonce. UnwrapKey reverses it with the recipient's
// private key.
//
// # Passphrase sealing
//
// SealWithPassphrase derives a key from a passphrase with Argon2id and
// encrypts the payload under it. It is used to keep an identity seed at rest.
//
// # Usage Example
//
//	key, _ := cryptoutils.GenerateSymmetricKey()
//	ciphertext, nonce, err := cryptoutils.Encrypt(key, plaintext)
//
//	wrapped, err := cryptoutils.WrapKey(key.Bytes(), member.PublicKey)
//	raw, err := cryptoutils.UnwrapKey(wrapped, memberPrivateKey)
package cryptoutils
