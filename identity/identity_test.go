package identity

import (
	"strings"
	"testing"

	"github.com/ruteri/zkkb/cryptoutils"
	"github.com/ruteri/zkkb/interfaces"
	"github.com/stretchr/testify/require"
)

var zeroEntropyPhrase = strings.Repeat("abandon ", 23) + "art"

func TestDeriveIdentityDeterministic(t *testing.T) {
	var seed Seed

	a, err := DeriveIdentity(seed)
	require.NoError(t, err)
	b, err := DeriveIdentity(seed)
	require.NoError(t, err)

	require.Equal(t, a.PublicKey, b.PublicKey)
	require.Equal(t, a.Commitment, b.Commitment)
	require.Len(t, a.Commitment, 64)
	require.NotEqual(t, a.PrivateKey[:], a.Secret[:])
}

func TestRandomIdentitiesDiffer(t *testing.T) {
	a, err := CreateRandomIdentity()
	require.NoError(t, err)
	b, err := CreateRandomIdentity()
	require.NoError(t, err)

	require.NotEqual(t, a.Commitment, b.Commitment)
	require.NotEqual(t, a.PublicKey, b.PublicKey)
}

func TestNewSeedLength(t *testing.T) {
	_, err := NewSeed(make([]byte, 32))
	require.ErrorIs(t, err, interfaces.ErrInvalidInput)

	_, err = NewSeed(make([]byte, SeedSize))
	require.NoError(t, err)
}

func TestDerivedKeysUnwrap(t *testing.T) {
	id, err := CreateRandomIdentity()
	require.NoError(t, err)

	wrapped, err := cryptoutils.WrapKey([]byte("board key"), id.PublicKey[:])
	require.NoError(t, err)

	again, err := DeriveIdentity(id.Seed())
	require.NoError(t, err)
	payload, err := cryptoutils.UnwrapKey(wrapped, again.PrivateKey[:])
	require.NoError(t, err)
	require.Equal(t, []byte("board key"), payload)
}

func TestCommitmentRoundTrip(t *testing.T) {
	id, err := CreateRandomIdentity()
	require.NoError(t, err)

	point, err := ParseCommitment(id.Commitment)
	require.NoError(t, err)
	require.True(t, point.Equal(Suite.Point().Mul(id.SecretScalar(), nil)))

	_, err = ParseCommitment("zz")
	require.ErrorIs(t, err, interfaces.ErrInvalidInput)
}

func TestPhrase(t *testing.T) {
	phrase, err := GeneratePhrase()
	require.NoError(t, err)
	require.Len(t, strings.Fields(phrase), PhraseWords)
	require.NoError(t, ValidatePhrase(phrase))

	seed1, err := PhraseToSeed(phrase)
	require.NoError(t, err)
	seed2, err := PhraseToSeed("  " + strings.ToUpper(phrase) + "\n")
	require.NoError(t, err)
	require.Equal(t, seed1, seed2)

	id1, err := FromPhrase(phrase)
	require.NoError(t, err)
	id2, err := DeriveIdentity(seed1)
	require.NoError(t, err)
	require.Equal(t, id1.Commitment, id2.Commitment)
}

func TestValidatePhraseRejects(t *testing.T) {
	testCases := []struct {
		name   string
		phrase string
	}{
		{name: "empty", phrase: ""},
		{name: "twelve words", phrase: strings.Repeat("abandon ", 11) + "about"},
		{name: "unknown word", phrase: strings.Repeat("abandon ", 23) + "zkkbword"},
		{name: "bad checksum", phrase: strings.Repeat("abandon ", 24)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, ValidatePhrase(tc.phrase), interfaces.ErrInvalidInput)
			_, err := PhraseToSeed(tc.phrase)
			require.ErrorIs(t, err, interfaces.ErrInvalidInput)
		})
	}

	require.NoError(t, ValidatePhrase(zeroEntropyPhrase))
}

func TestSealOpen(t *testing.T) {
	id, err := FromPhrase(zeroEntropyPhrase)
	require.NoError(t, err)
	params := &cryptoutils.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1}

	t.Run("without phrase", func(t *testing.T) {
		sealed, err := Seal(id, "hunter2", SealOpts{Phrase: zeroEntropyPhrase, Params: params})
		require.NoError(t, err)
		require.Equal(t, id.Commitment, sealed.Commitment)

		opened, phrase, err := Open(sealed, "hunter2")
		require.NoError(t, err)
		require.Empty(t, phrase)
		require.Equal(t, id.Commitment, opened.Commitment)
		require.Equal(t, id.PrivateKey, opened.PrivateKey)
	})

	t.Run("with phrase", func(t *testing.T) {
		sealed, err := Seal(id, "hunter2", SealOpts{Phrase: zeroEntropyPhrase, IncludePhrase: true, Params: params})
		require.NoError(t, err)

		_, phrase, err := Open(sealed, "hunter2")
		require.NoError(t, err)
		require.Equal(t, zeroEntropyPhrase, phrase)
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		sealed, err := Seal(id, "hunter2", SealOpts{Params: params})
		require.NoError(t, err)

		_, _, err = Open(sealed, "hunter3")
		require.ErrorIs(t, err, interfaces.ErrAuthenticationFailed)
	})
	t.Run("tampered cost parameters", func(t *testing.T) {
		sealed, err := Seal(id, "hunter2", SealOpts{Params: params})
		require.NoError(t, err)
		sealed.Sealed.Params.Threads = 0

		_, _, err = Open(sealed, "hunter2")
		require.ErrorIs(t, err, interfaces.ErrInvalidInput)
	})

	t.Run("nil", func(t *testing.T) {
		_, _, err := Open(nil, "hunter2")
		require.ErrorIs(t, err, interfaces.ErrInvalidInput)
	})
}
