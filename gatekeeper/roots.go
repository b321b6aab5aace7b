package gatekeeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/zkkb/interfaces"
	"github.com/ruteri/zkkb/storage"
)

// RootEntry is the registered membership root of a board.
type RootEntry struct {
	BoardID   string `json:"boardId"`
	Root      string `json:"root"`
	UpdatedAt int64  `json:"updatedAt"`
}

// RootRegistry keeps the current root of each board in a RecordStore.
type RootRegistry struct {
	roots *storage.Repository[RootEntry]
	now   func() time.Time
}

func NewRootRegistry(store interfaces.RecordStore) *RootRegistry {
	return &RootRegistry{
		roots: storage.NewRepository[RootEntry](store, interfaces.RootsNamespace),
		now:   time.Now,
	}
}

// Get returns ErrBoardNotFound for boards that never registered a root.
func (r *RootRegistry) Get(ctx context.Context, boardID string) (*RootEntry, error) {
	entry, err := r.roots.Get(ctx, boardID)
	if errors.Is(err, interfaces.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrBoardNotFound, boardID)
	}
	return entry, err
}

func (r *RootRegistry) Set(ctx context.Context, boardID, root string) (*RootEntry, error) {
	if raw, err := hexutil.Decode(root); err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("%w: root must be 0x-prefixed 32-byte hex", interfaces.ErrInvalidInput)
	}

	entry := &RootEntry{BoardID: boardID, Root: root, UpdatedAt: r.now().UnixMilli()}
	if err := r.roots.Put(ctx, boardID, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
