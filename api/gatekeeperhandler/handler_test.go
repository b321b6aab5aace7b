package gatekeeperhandler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/zkkb/common"
	"github.com/ruteri/zkkb/gatekeeper"
	"github.com/ruteri/zkkb/identity"
	"github.com/ruteri/zkkb/interfaces"
	"github.com/ruteri/zkkb/membership"
	"github.com/ruteri/zkkb/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, gk Gatekeeper) *Client {
	t.Helper()

	r := chi.NewRouter()
	NewHandler(gk, common.DiscardLogger()).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)
	c.Client = srv.Client()
	return c
}

func TestGatekeeperRoundTrip(t *testing.T) {
	ctx := context.Background()
	gk := gatekeeper.New(
		gatekeeper.NewRootRegistry(storage.NewMemoryRecordStore()),
		gatekeeper.NewMemoryNullifierStore(),
		nil,
		common.DiscardLogger(),
	)
	client := newTestServer(t, gk)

	alice, err := identity.CreateRandomIdentity()
	require.NoError(t, err)
	bob, err := identity.CreateRandomIdentity()
	require.NoError(t, err)
	group, err := membership.NewGroup(alice.Commitment, bob.Commitment)
	require.NoError(t, err)

	const boardID = "board-1"

	_, err = client.GetRoot(ctx, boardID)
	assert.ErrorIs(t, err, interfaces.ErrBoardNotFound)

	root, err := client.SetRoot(ctx, boardID, group.Root(), nil)
	require.NoError(t, err)
	assert.Equal(t, group.Root(), root.Root)

	got, err := client.GetRoot(ctx, boardID)
	require.NoError(t, err)
	assert.Equal(t, group.Root(), got.Root)

	proof, err := membership.GenerateMembershipProof(ctx, bob, group, "add-card", boardID)
	require.NoError(t, err)

	resp, err := client.SubmitAction(ctx, boardID, proof)
	require.NoError(t, err)
	assert.Equal(t, "accepted", resp.Status)
	assert.Equal(t, proof.Nullifier, resp.Nullifier)

	_, err = client.SubmitAction(ctx, boardID, proof)
	assert.ErrorIs(t, err, interfaces.ErrNullifierUsed)

	// Remove bob; his next proof against the old root is stale.
	stale, err := membership.GenerateMembershipProof(ctx, bob, group, "add-card-2", boardID)
	require.NoError(t, err)

	next := mustGroup(t, alice.Commitment)
	update, err := membership.GenerateMembershipProof(ctx, alice, group, gatekeeper.RootUpdateMessage(next.Root()), boardID)
	require.NoError(t, err)

	_, err = client.SetRoot(ctx, boardID, next.Root(), nil)
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	_, err = client.SetRoot(ctx, boardID, next.Root(), update)
	require.NoError(t, err)

	_, err = client.SubmitAction(ctx, boardID, stale)
	assert.ErrorIs(t, err, interfaces.ErrStaleAuthorization)

	stale.Message = "tampered"
	stale.MerkleTreeRoot = next.Root()
	_, err = client.SubmitAction(ctx, boardID, stale)
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)
}

func mustGroup(t *testing.T, commitments ...string) *membership.Group {
	t.Helper()
	g, err := membership.NewGroup(commitments...)
	require.NoError(t, err)
	return g
}

type mockGatekeeper struct {
	mock.Mock
}

func (m *mockGatekeeper) Root(ctx context.Context, boardID string) (*gatekeeper.RootEntry, error) {
	args := m.Called(ctx, boardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.RootEntry), args.Error(1)
}

func (m *mockGatekeeper) UpdateRoot(ctx context.Context, boardID, newRoot string, proof *interfaces.MembershipProof) (*gatekeeper.RootEntry, error) {
	args := m.Called(ctx, boardID, newRoot, proof)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.RootEntry), args.Error(1)
}

func (m *mockGatekeeper) Authorize(ctx context.Context, boardID string, proof *interfaces.MembershipProof) error {
	return m.Called(ctx, boardID, proof).Error(0)
}

func TestHandlerErrors(t *testing.T) {
	gk := new(mockGatekeeper)
	gk.On("Root", mock.Anything, "broken").Return(nil, errors.New("backend exploded"))

	r := chi.NewRouter()
	NewHandler(gk, common.DiscardLogger()).RegisterRoutes(r)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "internal errors are not leaked",
			method:     http.MethodGet,
			path:       "/api/boards/broken/root",
			wantStatus: http.StatusInternalServerError,
			wantBody:   `"code":"internal"`,
		},
		{
			name:       "malformed proof",
			method:     http.MethodPost,
			path:       "/api/boards/b/actions",
			body:       `{"merkleTreeRoot": 5}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `"code":"invalid_input"`,
		},
		{
			name:       "unknown fields",
			method:     http.MethodPut,
			path:       "/api/boards/b/root",
			body:       `{"root":"0x00","owner":"me"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `"code":"invalid_input"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
			assert.NotContains(t, rr.Body.String(), "exploded")
		})
	}

	gk.AssertExpectations(t)
}
