package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/zkkb/board"
	"github.com/ruteri/zkkb/cryptoutils"
	"github.com/ruteri/zkkb/interfaces"
)

// seal encrypts data under key as nonce || ciphertext.
func seal(key cryptoutils.SymmetricKey, data []byte) ([]byte, error) {
	ciphertext, nonce, err := cryptoutils.Encrypt(key, data)
	if err != nil {
		return nil, err
	}
	return append(nonce, ciphertext...), nil
}

func unseal(key cryptoutils.SymmetricKey, sealed []byte) ([]byte, error) {
	if len(sealed) < cryptoutils.NonceSize {
		return nil, interfaces.ErrAuthenticationFailed
	}
	return cryptoutils.Decrypt(key, sealed[cryptoutils.NonceSize:], sealed[:cryptoutils.NonceSize])
}

func sealDocument(key cryptoutils.SymmetricKey, doc *board.Document) ([]byte, error) {
	data, err := board.Serialize(doc)
	if err != nil {
		return nil, err
	}
	return seal(key, data)
}

func (s *Session) openDocument(key cryptoutils.SymmetricKey, sealed []byte) (*board.Document, error) {
	data, err := unseal(key, sealed)
	if err != nil {
		return nil, err
	}
	return board.Deserialize(data, s.docOptions()...)
}

// queue appends an encrypted delta to the board's outgoing changes.
func (s *Session) queue(ob *OpenBoard, delta *board.Document) error {
	if delta.Empty() {
		return nil
	}

	sealed, err := sealDocument(ob.Key, delta)
	if err != nil {
		return err
	}
	if ob.record == nil {
		ob.record = &interfaces.BoardRecord{}
	}
	ob.record.PendingChanges = append(ob.record.PendingChanges, hexutil.Bytes(sealed))
	return nil
}

// QueueChanges records a delta to be sent to other replicas and persists the board.
func (s *Session) QueueChanges(ctx context.Context, boardID string, delta *board.Document) error {
	defer s.lock(boardID)()

	ob, err := s.OpenBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if err := s.queue(ob, delta); err != nil {
		return err
	}
	return s.save(ctx, ob)
}

// PendingChanges returns the encrypted deltas not yet acknowledged by a sync.
func (s *Session) PendingChanges(ctx context.Context, boardID string) ([][]byte, error) {
	rec, err := s.boards.Get(ctx, boardID)
	if err != nil {
		return nil, err
	}

	out := make([][]byte, 0, len(rec.PendingChanges))
	for _, c := range rec.PendingChanges {
		out = append(out, []byte(c))
	}
	return out, nil
}

// MarkSynced drops the first n pending changes, which the caller has delivered.
func (s *Session) MarkSynced(ctx context.Context, boardID string, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative synced count %d", interfaces.ErrInvalidInput, n)
	}
	defer s.lock(boardID)()

	rec, err := s.boards.Get(ctx, boardID)
	if err != nil {
		return err
	}
	if n > len(rec.PendingChanges) {
		n = len(rec.PendingChanges)
	}
	rec.PendingChanges = rec.PendingChanges[n:]
	rec.LastSynced = s.now().UnixMilli()
	return s.boards.Put(ctx, boardID, rec)
}

// MergePending merges encrypted deltas or snapshots received from other replicas.
// Nothing is merged if any of them fails to decrypt or decode.
func (s *Session) MergePending(ctx context.Context, boardID string, changes [][]byte) (*board.Document, error) {
	defer s.lock(boardID)()

	ob, err := s.OpenBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	merged := ob.Doc
	for i, c := range changes {
		remote, err := s.openDocument(ob.Key, c)
		if err != nil {
			return nil, fmt.Errorf("change %d: %w", i, err)
		}
		merged = merged.Merge(remote)
	}

	ob.Doc = merged
	if err := s.save(ctx, ob); err != nil {
		return nil, err
	}

	s.log.Debug("Merged remote changes",
		slog.String("board_id", boardID),
		slog.Int("changes", len(changes)))
	return merged, nil
}
