package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/zkkb/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecordStores(t *testing.T) map[string]interfaces.RecordStore {
	fileStore, err := NewFileRecordStore(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	return map[string]interfaces.RecordStore{
		"file":   fileStore,
		"memory": NewMemoryRecordStore(),
	}
}

func TestRecordStore_CRUD(t *testing.T) {
	ctx := context.Background()

	for name, store := range testRecordStores(t) {
		t.Run(name, func(t *testing.T) {
			assert.True(t, store.Available(ctx))

			_, err := store.Get(ctx, interfaces.BoardsNamespace, "missing")
			assert.ErrorIs(t, err, interfaces.ErrRecordNotFound)

			require.NoError(t, store.Put(ctx, interfaces.BoardsNamespace, "b1", []byte("one")))
			require.NoError(t, store.Put(ctx, interfaces.BoardsNamespace, "b/2", []byte("two")))
			require.NoError(t, store.Put(ctx, interfaces.IdentityNamespace, "default", []byte("id")))

			got, err := store.Get(ctx, interfaces.BoardsNamespace, "b/2")
			require.NoError(t, err)
			assert.Equal(t, []byte("two"), got)

			require.NoError(t, store.Put(ctx, interfaces.BoardsNamespace, "b1", []byte("one-v2")))
			got, err = store.Get(ctx, interfaces.BoardsNamespace, "b1")
			require.NoError(t, err)
			assert.Equal(t, []byte("one-v2"), got)

			keys, err := store.List(ctx, interfaces.BoardsNamespace)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"b1", "b/2"}, keys)

			require.NoError(t, store.Delete(ctx, interfaces.BoardsNamespace, "b1"))
			require.NoError(t, store.Delete(ctx, interfaces.BoardsNamespace, "b1"))

			_, err = store.Get(ctx, interfaces.BoardsNamespace, "b1")
			assert.ErrorIs(t, err, interfaces.ErrRecordNotFound)

			keys, err = store.List(ctx, interfaces.IdentityNamespace)
			require.NoError(t, err)
			assert.Equal(t, []string{"default"}, keys)
		})
	}
}

func TestFileRecordStore_EmptyNamespace(t *testing.T) {
	store, err := NewFileRecordStore(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	keys, err := store.List(context.Background(), interfaces.BoardsNamespace)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestBoardRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewBoardRepository(NewMemoryRecordStore())

	_, err := repo.Get(ctx, "board-1")
	assert.ErrorIs(t, err, interfaces.ErrRecordNotFound)

	rec := &interfaces.BoardRecord{
		ID:               "board-1",
		EncryptedContent: hexutil.Bytes{1, 2, 3},
		Nonce:            hexutil.Bytes{4, 5, 6},
		WrappedKey: interfaces.WrappedKey{
			EphemeralPublicKey: hexutil.Bytes{7},
			Ciphertext:         hexutil.Bytes{8},
			IV:                 hexutil.Bytes{9},
		},
		MerkleRoot:     "0xabc",
		PendingChanges: []hexutil.Bytes{{0xff}},
		CreatedAt:      1700000000000,
	}
	require.NoError(t, repo.Put(ctx, rec.ID, rec))

	got, err := repo.Get(ctx, "board-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	ids, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"board-1"}, ids)
}

func TestStorageBackendFactory(t *testing.T) {
	ctx := context.Background()
	sf := NewStorageBackendFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
	dir := t.TempDir()

	loc, err := interfaces.NewStorageBackendLocation("file://" + dir)
	require.NoError(t, err)

	backend, err := sf.StorageBackendFor(loc)
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, backend)

	store, err := sf.RecordStoreFor(ctx, loc)
	require.NoError(t, err)
	assert.IsType(t, &FileRecordStore{}, store)

	redisLoc, err := interfaces.NewStorageBackendLocation("redis://localhost:6379/0")
	require.NoError(t, err)
	_, err = sf.StorageBackendFor(redisLoc)
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	redisStore, err := sf.RecordStoreFor(ctx, redisLoc)
	require.NoError(t, err)
	assert.IsType(t, &RedisRecordStore{}, redisStore)

	vaultLoc, err := interfaces.NewStorageBackendLocation("vault://localhost:8200/secret")
	require.NoError(t, err)
	_, err = sf.RecordStoreFor(ctx, vaultLoc)
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	_, err = interfaces.NewStorageBackendLocation("github://owner/repo")
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	multi, err := sf.CreateMultiBackend([]interfaces.StorageBackendLocation{loc, redisLoc})
	require.NoError(t, err)
	assert.True(t, multi.Available(ctx))
}
