package interfaces

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// WrappedKey is a payload (usually a board key) encrypted to a single
// recipient's X25519 public key under a fresh ephemeral keypair.
type WrappedKey struct {
	EphemeralPublicKey hexutil.Bytes `json:"ephemeralPublicKey"`
	Ciphertext         hexutil.Bytes `json:"ciphertext"`
	IV                 hexutil.Bytes `json:"iv"`
}

// IsZero reports whether the wrapped key carries no material.
func (w WrappedKey) IsZero() bool {
	return len(w.EphemeralPublicKey) == 0 && len(w.Ciphertext) == 0 && len(w.IV) == 0
}

// MembershipProof is the wire shape of an anonymous group membership proof.
//
// MerkleTreeRoot and Nullifier are 0x-prefixed hex strings. Points is opaque
// to everything but the verifier.
type MembershipProof struct {
	MerkleTreeRoot string        `json:"merkleTreeRoot"`
	Nullifier      string        `json:"nullifier"`
	Message        string        `json:"message"`
	Scope          string        `json:"scope"`
	Points         hexutil.Bytes `json:"points"`
}

// BoardRecord is the persisted form of a board. Content is the serialized
// document encrypted under the board key; WrappedKey is the board key sealed
// to the local member.
type BoardRecord struct {
	ID               string          `json:"id"`
	EncryptedContent hexutil.Bytes   `json:"encryptedContent"`
	Nonce            hexutil.Bytes   `json:"nonce"`
	WrappedKey       WrappedKey      `json:"wrappedKey"`
	MerkleRoot       string          `json:"merkleRoot"`
	LastSynced       int64           `json:"lastSynced"`
	PendingChanges   []hexutil.Bytes `json:"pendingChanges,omitempty"`
	CreatedAt        int64           `json:"createdAt"`
	ArchivedAt       int64           `json:"archivedAt,omitempty"`
}
