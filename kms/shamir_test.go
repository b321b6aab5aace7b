package kms

import (
	"testing"

	"github.com/ruteri/zkkb/cryptoutils"
	"github.com/ruteri/zkkb/identity"
	"github.com/ruteri/zkkb/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGuardians(t *testing.T, n int) (map[string][]byte, map[string]*cryptoutils.X25519KeyPair) {
	t.Helper()
	pubs := make(map[string][]byte, n)
	keys := make(map[string]*cryptoutils.X25519KeyPair, n)
	for i := 0; i < n; i++ {
		kp, err := cryptoutils.NewX25519KeyPair()
		require.NoError(t, err)
		name := string(rune('a' + i))
		pubs[name] = kp.PublicKey[:]
		keys[name] = kp
	}
	return pubs, keys
}

func TestSplitSeedValidation(t *testing.T) {
	id, err := identity.CreateRandomIdentity()
	require.NoError(t, err)
	pubs, _ := setupGuardians(t, 3)

	_, err = SplitSeed(id.Seed(), 1, pubs)
	assert.Error(t, err, "Should fail when threshold < 2")

	_, err = SplitSeed(id.Seed(), 4, pubs)
	assert.Error(t, err, "Should fail when threshold > total shares")
}

func TestSeedRecovery(t *testing.T) {
	id, err := identity.CreateRandomIdentity()
	require.NoError(t, err)
	pubs, keys := setupGuardians(t, 5)

	shares, err := SplitSeed(id.Seed(), 3, pubs)
	require.NoError(t, err)
	require.Len(t, shares, 5)

	recovery := NewSeedRecovery(3, id.Commitment)
	for i, gs := range shares[:3] {
		plain, err := OpenShare(gs, keys[gs.Guardian].PrivateKey[:])
		require.NoError(t, err)

		require.NoError(t, recovery.SubmitShare(plain))
		if i == 0 {
			// duplicates count once
			require.NoError(t, recovery.SubmitShare(plain))
			require.Equal(t, 1, recovery.Received())
		}
		_, done := recovery.Recovered()
		require.Equal(t, i == 2, done)
	}

	recovered, ok := recovery.Recovered()
	require.True(t, ok)
	require.Equal(t, id.Commitment, recovered.Commitment)
	require.Equal(t, id.PrivateKey, recovered.PrivateKey)
	require.Equal(t, 0, recovery.Received())

	require.Error(t, recovery.SubmitShare(make([]byte, identity.SeedSize+1)))
}

func TestSeedRecoveryRejectsForeignShares(t *testing.T) {
	pubs, keys := setupGuardians(t, 2)

	_, err := OpenShare(GuardianShare{}, keys["a"].PrivateKey[:])
	require.ErrorIs(t, err, interfaces.ErrAuthenticationFailed)

	other, err := identity.CreateRandomIdentity()
	require.NoError(t, err)
	expected, err := identity.CreateRandomIdentity()
	require.NoError(t, err)

	shares, err := SplitSeed(other.Seed(), 2, pubs)
	require.NoError(t, err)

	recovery := NewSeedRecovery(2, expected.Commitment)
	for i, gs := range shares {
		plain, err := OpenShare(gs, keys[gs.Guardian].PrivateKey[:])
		require.NoError(t, err)
		err = recovery.SubmitShare(plain)
		if i == len(shares)-1 {
			require.ErrorIs(t, err, interfaces.ErrAuthenticationFailed)
		}
	}
	_, ok := recovery.Recovered()
	require.False(t, ok)

	require.ErrorIs(t, recovery.SubmitShare([]byte{1, 2}), interfaces.ErrInvalidInput)
}
