package storage

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/ruteri/zkkb/common"
	"github.com/ruteri/zkkb/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type replicaMock struct {
	mock.Mock
	name string
}

func (r *replicaMock) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	args := r.Called(ctx, id, contentType)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (r *replicaMock) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	args := r.Called(ctx, data, contentType)
	return args.Get(0).(interfaces.ContentID), args.Error(1)
}

func (r *replicaMock) Available(ctx context.Context) bool {
	return r.Called(ctx).Bool(0)
}

func (r *replicaMock) Name() string        { return r.name }
func (r *replicaMock) LocationURI() string { return "mock://" + r.name }

// replica builds a mock that is up or down. Fetch and Store answers are
// added with fetches and stores; only those are asserted.
func replica(name string, up bool) *replicaMock {
	r := &replicaMock{name: name}
	r.On("Available", mock.Anything).Return(up).Maybe()
	return r
}

func (r *replicaMock) fetches(ct interfaces.ContentType, data []byte, err error) *replicaMock {
	r.On("Fetch", mock.Anything, mock.Anything, ct).Return(data, err).Once()
	return r
}

func (r *replicaMock) stores(ct interfaces.ContentType, id interfaces.ContentID, err error) *replicaMock {
	r.On("Store", mock.Anything, mock.Anything, ct).Return(id, err).Once()
	return r
}

func TestMultiStorageFetch(t *testing.T) {
	sealedSnapshot := []byte("sealed snapshot bytes")
	id := interfaces.ComputeID(sealedSnapshot)
	diskErr := errors.New("disk on fire")

	testCases := []struct {
		name     string
		replicas []*replicaMock
		want     []byte
		wantErr  error
	}{
		{
			name: "served by the first replica holding the blob",
			replicas: []*replicaMock{
				replica("laptop", true).fetches(interfaces.SnapshotType, sealedSnapshot, nil),
				replica("s3", true),
			},
			want: sealedSnapshot,
		},
		{
			name: "missing locally, found on a later replica",
			replicas: []*replicaMock{
				replica("laptop", true).fetches(interfaces.SnapshotType, nil, interfaces.ErrContentNotFound),
				replica("ipfs", false),
				replica("s3", true).fetches(interfaces.SnapshotType, sealedSnapshot, nil),
			},
			want: sealedSnapshot,
		},
		{
			name: "a hard failure does not hide a later copy",
			replicas: []*replicaMock{
				replica("laptop", true).fetches(interfaces.SnapshotType, nil, diskErr),
				replica("s3", true).fetches(interfaces.SnapshotType, sealedSnapshot, nil),
			},
			want: sealedSnapshot,
		},
		{
			name: "every reachable replica lacks the blob",
			replicas: []*replicaMock{
				replica("laptop", true).fetches(interfaces.SnapshotType, nil, interfaces.ErrContentNotFound),
				replica("ipfs", false),
				replica("s3", true).fetches(interfaces.SnapshotType, nil, interfaces.ErrContentNotFound),
			},
			wantErr: interfaces.ErrContentNotFound,
		},
		{
			name: "not found plus a failure is reported as the failure",
			replicas: []*replicaMock{
				replica("laptop", true).fetches(interfaces.SnapshotType, nil, interfaces.ErrContentNotFound),
				replica("s3", true).fetches(interfaces.SnapshotType, nil, diskErr),
			},
			wantErr: diskErr,
		},
		{
			name:     "no replica reachable",
			replicas: []*replicaMock{replica("ipfs", false), replica("s3", false)},
			wantErr:  interfaces.ErrBackendUnavailable,
		},
		{
			name:    "no replicas configured",
			wantErr: interfaces.ErrBackendUnavailable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var backends []interfaces.StorageBackend
			for _, r := range tc.replicas {
				backends = append(backends, r)
			}
			multi := NewMultiStorageBackend(backends, common.DiscardLogger())

			data, err := multi.Fetch(context.Background(), id, interfaces.SnapshotType)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, data)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.want, data)
			}

			for _, r := range tc.replicas {
				r.AssertExpectations(t)
			}
		})
	}

	t.Run("a mixed failure is not reported as not found", func(t *testing.T) {
		multi := NewMultiStorageBackend([]interfaces.StorageBackend{
			replica("laptop", true).fetches(interfaces.AttachmentType, nil, interfaces.ErrContentNotFound),
			replica("s3", true).fetches(interfaces.AttachmentType, nil, diskErr),
		}, common.DiscardLogger())

		_, err := multi.Fetch(context.Background(), id, interfaces.AttachmentType)
		assert.NotErrorIs(t, err, interfaces.ErrContentNotFound)
		assert.ErrorContains(t, err, "s3")
	})
}

func TestMultiStorageStore(t *testing.T) {
	attachment := []byte("encrypted attachment")
	id := interfaces.ComputeID(attachment)
	other := interfaces.ComputeID([]byte("something else"))
	quotaErr := errors.New("quota exceeded")

	testCases := []struct {
		name     string
		replicas []*replicaMock
		want     interfaces.ContentID
		wantErr  error
	}{
		{
			name: "replicated to every reachable backend",
			replicas: []*replicaMock{
				replica("laptop", true).stores(interfaces.AttachmentType, id, nil),
				replica("ipfs", false),
				replica("s3", true).stores(interfaces.AttachmentType, id, nil),
			},
			want: id,
		},
		{
			name: "one accepting replica is enough",
			replicas: []*replicaMock{
				replica("laptop", true).stores(interfaces.AttachmentType, interfaces.ContentID{}, quotaErr),
				replica("s3", true).stores(interfaces.AttachmentType, id, nil),
			},
			want: id,
		},
		{
			name: "first accepted id wins when replicas disagree",
			replicas: []*replicaMock{
				replica("laptop", true).stores(interfaces.AttachmentType, id, nil),
				replica("s3", true).stores(interfaces.AttachmentType, other, nil),
			},
			want: id,
		},
		{
			name: "every replica refuses",
			replicas: []*replicaMock{
				replica("laptop", true).stores(interfaces.AttachmentType, interfaces.ContentID{}, quotaErr),
				replica("s3", true).stores(interfaces.AttachmentType, interfaces.ContentID{}, quotaErr),
			},
			wantErr: quotaErr,
		},
		{
			name:     "nothing reachable",
			replicas: []*replicaMock{replica("ipfs", false)},
			wantErr:  interfaces.ErrBackendUnavailable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var backends []interfaces.StorageBackend
			for _, r := range tc.replicas {
				backends = append(backends, r)
			}
			multi := NewMultiStorageBackend(backends, common.DiscardLogger())

			got, err := multi.Store(context.Background(), attachment, interfaces.AttachmentType)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, interfaces.ContentID{}, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}

			for _, r := range tc.replicas {
				r.AssertExpectations(t)
			}
		})
	}
}

func TestMultiStorageAvailableAndLocation(t *testing.T) {
	down := replica("ipfs", false)
	up := replica("s3", true)

	assert.False(t, NewMultiStorageBackend(nil, common.DiscardLogger()).Available(context.Background()))
	assert.False(t, NewMultiStorageBackend([]interfaces.StorageBackend{down}, common.DiscardLogger()).Available(context.Background()))

	multi := NewMultiStorageBackend([]interfaces.StorageBackend{down, up}, common.DiscardLogger())
	assert.True(t, multi.Available(context.Background()))
	assert.Equal(t, "multi:[mock://ipfs,mock://s3]", multi.LocationURI())
}

func TestMultiStorageFileReplicas(t *testing.T) {
	ctx := context.Background()
	log := common.DiscardLogger()

	laptopDir, backupDir := t.TempDir(), t.TempDir()
	laptop, err := NewFileBackend(laptopDir, log)
	require.NoError(t, err)
	backup, err := NewFileBackend(backupDir, log)
	require.NoError(t, err)

	multi := NewMultiStorageBackend([]interfaces.StorageBackend{laptop, backup}, log)

	snapshot := []byte("sealed board snapshot")
	id, err := multi.Store(ctx, snapshot, interfaces.SnapshotType)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeID(snapshot), id)

	for _, r := range []*FileBackend{laptop, backup} {
		got, err := r.Fetch(ctx, id, interfaces.SnapshotType)
		require.NoError(t, err)
		assert.Equal(t, snapshot, got)
	}

	// Attachments and snapshots do not share a namespace.
	_, err = multi.Fetch(ctx, id, interfaces.AttachmentType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)

	// Losing the local copy falls back to the backup replica.
	require.NoError(t, os.Remove(laptop.getFilePath(id, interfaces.SnapshotType)))
	got, err := multi.Fetch(ctx, id, interfaces.SnapshotType)
	require.NoError(t, err)
	assert.Equal(t, snapshot, got)

	require.NoError(t, os.Remove(backup.getFilePath(id, interfaces.SnapshotType)))
	_, err = multi.Fetch(ctx, id, interfaces.SnapshotType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}
