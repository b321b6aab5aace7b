// Package identity derives a member's long-term keys from a 64-byte seed.
//
// One seed yields two independent values through domain-separated HKDF:
// an X25519 keypair used to receive wrapped board keys, and a secret scalar on
// the Ed25519 group whose public image (the commitment) is what the group
// membership set stores. Neither value reveals the other.
//
// Seeds come from a 24-word BIP-39 recovery phrase. A derived identity can be
// sealed at rest under a passphrase; the phrase itself is kept only when the
// caller opts in.
package identity
