package gatekeeper

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ruteri/zkkb/common"
	"github.com/ruteri/zkkb/identity"
	"github.com/ruteri/zkkb/interfaces"
	"github.com/ruteri/zkkb/membership"
	"github.com/ruteri/zkkb/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boardID = "3f0a2c9e-board"

type fixture struct {
	alice, bob *identity.Identity
	group      *membership.Group
	gk         *Gatekeeper
	metrics    *Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	alice, err := identity.CreateRandomIdentity()
	require.NoError(t, err)
	bob, err := identity.CreateRandomIdentity()
	require.NoError(t, err)

	group, err := membership.NewGroup(alice.Commitment, bob.Commitment)
	require.NoError(t, err)

	m := NewMetrics("zkkb", prometheus.NewRegistry())
	gk := New(NewRootRegistry(storage.NewMemoryRecordStore()), NewMemoryNullifierStore(), m, common.DiscardLogger())

	_, err = gk.UpdateRoot(context.Background(), boardID, group.Root(), nil)
	require.NoError(t, err)

	return &fixture{alice: alice, bob: bob, group: group, gk: gk, metrics: m}
}

func (f *fixture) prove(t *testing.T, id *identity.Identity, message string) *interfaces.MembershipProof {
	t.Helper()
	proof, err := membership.GenerateMembershipProof(context.Background(), id, f.group, message, boardID)
	require.NoError(t, err)
	return proof
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	proof := f.prove(t, f.bob, "move-card:1")
	require.NoError(t, f.gk.Authorize(ctx, boardID, proof))

	// Replaying the same action is rejected.
	assert.ErrorIs(t, f.gk.Authorize(ctx, boardID, proof), interfaces.ErrNullifierUsed)

	// The same member may perform a different action.
	require.NoError(t, f.gk.Authorize(ctx, boardID, f.prove(t, f.bob, "move-card:2")))

	// Another member has a different nullifier for the same action.
	require.NoError(t, f.gk.Authorize(ctx, boardID, f.prove(t, f.alice, "move-card:1")))

	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.authorizations.WithLabelValues(OutcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.authorizations.WithLabelValues(OutcomeReplayed)))
}

func TestAuthorizeRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tampered := f.prove(t, f.alice, "archive-board")
	tampered.Message = "delete-board"
	assert.ErrorIs(t, f.gk.Authorize(ctx, boardID, tampered), interfaces.ErrNotAuthorized)

	otherScope, err := membership.GenerateMembershipProof(ctx, f.alice, f.group, "archive-board", "another-board")
	require.NoError(t, err)
	assert.ErrorIs(t, f.gk.Authorize(ctx, boardID, otherScope), interfaces.ErrNotAuthorized)

	unknownBoard, err := membership.GenerateMembershipProof(ctx, f.alice, f.group, "x", "unknown")
	require.NoError(t, err)
	assert.ErrorIs(t, f.gk.Authorize(ctx, "unknown", unknownBoard), interfaces.ErrBoardNotFound)

	// A board id that merely shares a prefix is another board.
	prefixed, err := membership.GenerateMembershipProof(ctx, f.alice, f.group, "x", boardID+"-2")
	require.NoError(t, err)
	assert.ErrorIs(t, f.gk.Authorize(ctx, boardID, prefixed), interfaces.ErrNotAuthorized)

	emptyClass, err := membership.GenerateMembershipProof(ctx, f.alice, f.group, "x", boardID+":")
	require.NoError(t, err)
	assert.ErrorIs(t, f.gk.Authorize(ctx, boardID, emptyClass), interfaces.ErrNotAuthorized)
	assert.ErrorIs(t, f.gk.Authorize(ctx, boardID, nil), interfaces.ErrNotAuthorized)

	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.authorizations.WithLabelValues(OutcomeAccepted)))
}

func TestAuthorizeActionScopes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	comment, err := membership.GenerateMembershipProof(ctx, f.bob, f.group, "vote:1", membership.ActionScope(boardID, "comment"))
	require.NoError(t, err)
	vote, err := membership.GenerateMembershipProof(ctx, f.bob, f.group, "vote:1", membership.ActionScope(boardID, "vote"))
	require.NoError(t, err)
	assert.NotEqual(t, comment.Nullifier, vote.Nullifier)

	require.NoError(t, f.gk.Authorize(ctx, boardID, comment))
	require.NoError(t, f.gk.Authorize(ctx, boardID, vote))
	assert.ErrorIs(t, f.gk.Authorize(ctx, boardID, vote), interfaces.ErrNullifierUsed)

	// The board-wide scope is independent of the class scopes.
	require.NoError(t, f.gk.Authorize(ctx, boardID, f.prove(t, f.bob, "vote:1")))
}

func TestUpdateRoot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	bobsProof := f.prove(t, f.bob, "comment:1")

	next, err := membership.NewGroup(f.alice.Commitment)
	require.NoError(t, err)

	// Updates after the first need a member's signature over the new root.
	_, err = f.gk.UpdateRoot(ctx, boardID, next.Root(), nil)
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	_, err = f.gk.UpdateRoot(ctx, boardID, next.Root(), f.prove(t, f.alice, "something else"))
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	entry, err := f.gk.UpdateRoot(ctx, boardID, next.Root(), f.prove(t, f.alice, RootUpdateMessage(next.Root())))
	require.NoError(t, err)
	assert.Equal(t, next.Root(), entry.Root)

	got, err := f.gk.Root(ctx, boardID)
	require.NoError(t, err)
	assert.Equal(t, next.Root(), got.Root)

	// Bob's proof was made against the old root.
	assert.ErrorIs(t, f.gk.Authorize(ctx, boardID, bobsProof), interfaces.ErrStaleAuthorization)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.authorizations.WithLabelValues(OutcomeStale)))

	_, err = f.gk.UpdateRoot(ctx, "new-board", "not-a-root", nil)
	assert.ErrorIs(t, err, interfaces.ErrInvalidInput)
}

func TestMemoryNullifierStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryNullifierStore()

	fresh, err := s.Spend(ctx, "scope", "msg", "0xAB")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = s.Spend(ctx, "scope", "msg", "0xab")
	require.NoError(t, err)
	assert.False(t, fresh)

	fresh, err = s.Spend(ctx, "scope", "other", "0xab")
	require.NoError(t, err)
	assert.True(t, fresh)
}
