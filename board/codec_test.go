package board

import (
	"testing"

	"github.com/ruteri/zkkb/interfaces"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	d := InitializeBoard("Board", Member{
		Commitment:  "aa",
		DisplayName: "Alice",
		PublicKey:   []byte{1, 2, 3},
		WrappedBoardKey: interfaces.WrappedKey{
			EphemeralPublicKey: []byte{4},
			Ciphertext:         []byte{5},
			IV:                 []byte{6},
		},
	}, WithReplica("a"))
	col := d.Columns()[0]
	d, cardID := d.CreateCard(CardInput{ColumnID: col.ID, Title: "Card", Position: "m", Labels: []Label{{Text: "x"}}})
	d = d.AddComment(cardID, "aa", "note")
	d = d.AddAttachment(cardID, Attachment{Name: "file", EncryptionKey: []byte{9}})
	d = d.RemoveColumn(d.Columns()[2].ID)

	data, err := Serialize(d)
	require.NoError(t, err)

	decoded, err := Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, d.Snapshot(), decoded.Snapshot())
	require.Equal(t, d.Clock(), decoded.Clock())
	require.NotEqual(t, d.Replica(), decoded.Replica())

	// tombstones survive the round trip
	require.Len(t, decoded.Columns(), 2)
	require.Len(t, decoded.columns, 3)
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	_, err := Deserialize([]byte("not json"))
	require.ErrorIs(t, err, interfaces.ErrInvalidInput)

	_, err = Deserialize([]byte(`{"version": 99}`))
	require.ErrorIs(t, err, interfaces.ErrInvalidInput)
}
