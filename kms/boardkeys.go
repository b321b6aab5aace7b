package kms

import (
	"fmt"

	"github.com/ruteri/zkkb/board"
	"github.com/ruteri/zkkb/cryptoutils"
	"github.com/ruteri/zkkb/identity"
	"github.com/ruteri/zkkb/interfaces"
)

// NewBoardKey returns a fresh board key.
func NewBoardKey() (cryptoutils.SymmetricKey, error) {
	return cryptoutils.GenerateSymmetricKey()
}

// GrantAccess seals key to m's public key and records m in the document.
func GrantAccess(doc *board.Document, key cryptoutils.SymmetricKey, m board.Member) (*board.Document, error) {
	wrapped, err := cryptoutils.WrapKey(key.Bytes(), m.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap board key for %s: %w", m.Commitment, err)
	}
	m.WrappedBoardKey = wrapped
	return doc.AddMember(m), nil
}

// OpenBoardKey unwraps the board key sealed to id in doc.
func OpenBoardKey(doc *board.Document, id *identity.Identity) (cryptoutils.SymmetricKey, error) {
	m, ok := doc.Member(id.Commitment)
	if !ok {
		return cryptoutils.SymmetricKey{}, fmt.Errorf("%w: not a member of board", interfaces.ErrNotAuthorized)
	}
	return UnwrapBoardKey(m.WrappedBoardKey, id)
}

// UnwrapBoardKey opens a single wrapped board key with id's private key.
func UnwrapBoardKey(wrapped interfaces.WrappedKey, id *identity.Identity) (cryptoutils.SymmetricKey, error) {
	raw, err := cryptoutils.UnwrapKey(wrapped, id.PrivateKey[:])
	if err != nil {
		return cryptoutils.SymmetricKey{}, err
	}
	return cryptoutils.SymmetricKeyFromBytes(raw)
}

// RotateBoardKey generates a new board key and re-seals it for every current
// member. Content must be re-encrypted under the returned key.
func RotateBoardKey(doc *board.Document) (*board.Document, cryptoutils.SymmetricKey, error) {
	key, err := NewBoardKey()
	if err != nil {
		return nil, cryptoutils.SymmetricKey{}, err
	}

	for _, m := range doc.Members() {
		wrapped, err := cryptoutils.WrapKey(key.Bytes(), m.PublicKey)
		if err != nil {
			return nil, cryptoutils.SymmetricKey{}, fmt.Errorf("failed to wrap board key for %s: %w", m.Commitment, err)
		}
		doc = doc.SetMemberWrappedKey(m.Commitment, wrapped)
	}
	return doc, key, nil
}

// RevokeMember removes a member and rotates the board key so the removed
// member cannot read anything written afterwards.
func RevokeMember(doc *board.Document, commitment string) (*board.Document, cryptoutils.SymmetricKey, error) {
	if _, ok := doc.Member(commitment); !ok {
		return nil, cryptoutils.SymmetricKey{}, fmt.Errorf("%w: %s is not a member", interfaces.ErrInvalidInput, commitment)
	}
	return RotateBoardKey(doc.RemoveMember(commitment))
}
