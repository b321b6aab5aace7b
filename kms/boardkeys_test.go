package kms

import (
	"testing"

	"github.com/ruteri/zkkb/board"
	"github.com/ruteri/zkkb/cryptoutils"
	"github.com/ruteri/zkkb/identity"
	"github.com/ruteri/zkkb/interfaces"
	"github.com/stretchr/testify/require"
)

func memberOf(id *identity.Identity, name string) board.Member {
	return board.Member{
		Commitment:  id.Commitment,
		DisplayName: name,
		PublicKey:   id.PublicKey[:],
	}
}

func TestGrantAndOpen(t *testing.T) {
	alice, err := identity.CreateRandomIdentity()
	require.NoError(t, err)
	bob, err := identity.CreateRandomIdentity()
	require.NoError(t, err)
	eve, err := identity.CreateRandomIdentity()
	require.NoError(t, err)

	key, err := NewBoardKey()
	require.NoError(t, err)

	doc := board.New("Board")
	doc, err = GrantAccess(doc, key, memberOf(alice, "Alice"))
	require.NoError(t, err)
	doc, err = GrantAccess(doc, key, memberOf(bob, "Bob"))
	require.NoError(t, err)

	for _, id := range []*identity.Identity{alice, bob} {
		opened, err := OpenBoardKey(doc, id)
		require.NoError(t, err)
		require.Equal(t, key, opened)
	}

	_, err = OpenBoardKey(doc, eve)
	require.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	// a member's wrapped key does not open with someone else's private key
	m, _ := doc.Member(alice.Commitment)
	_, err = UnwrapBoardKey(m.WrappedBoardKey, bob)
	require.ErrorIs(t, err, interfaces.ErrAuthenticationFailed)
}

func TestRevokeMemberRotatesKey(t *testing.T) {
	alice, err := identity.CreateRandomIdentity()
	require.NoError(t, err)
	bob, err := identity.CreateRandomIdentity()
	require.NoError(t, err)

	key, err := NewBoardKey()
	require.NoError(t, err)

	doc := board.New("Board")
	doc, err = GrantAccess(doc, key, memberOf(alice, "Alice"))
	require.NoError(t, err)
	doc, err = GrantAccess(doc, key, memberOf(bob, "Bob"))
	require.NoError(t, err)
	bobsOldWrap, _ := doc.Member(bob.Commitment)

	doc, rotated, err := RevokeMember(doc, bob.Commitment)
	require.NoError(t, err)
	require.NotEqual(t, key, rotated)

	opened, err := OpenBoardKey(doc, alice)
	require.NoError(t, err)
	require.Equal(t, rotated, opened)

	_, err = OpenBoardKey(doc, bob)
	require.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	// the old wrap only yields the old key
	old, err := UnwrapBoardKey(bobsOldWrap.WrappedBoardKey, bob)
	require.NoError(t, err)
	require.Equal(t, key, old)

	ciphertext, iv, err := cryptoutils.Encrypt(rotated, []byte("after removal"))
	require.NoError(t, err)
	_, err = cryptoutils.Decrypt(old, ciphertext, iv)
	require.ErrorIs(t, err, interfaces.ErrAuthenticationFailed)

	_, _, err = RevokeMember(doc, bob.Commitment)
	require.ErrorIs(t, err, interfaces.ErrInvalidInput)
}
