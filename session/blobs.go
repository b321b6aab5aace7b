package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/ruteri/zkkb/board"
	"github.com/ruteri/zkkb/cryptoutils"
	"github.com/ruteri/zkkb/interfaces"
)

var errNoBlobBackend = fmt.Errorf("%w: no blob backend configured", interfaces.ErrBackendUnavailable)

// PutAttachment encrypts data under a fresh key, stores it as a blob and
// attaches it to a card. The attachment key lives only inside the encrypted board.
func (s *Session) PutAttachment(ctx context.Context, boardID, cardID, name string, data []byte) (board.Attachment, error) {
	if s.blobs == nil {
		return board.Attachment{}, errNoBlobBackend
	}

	key, err := cryptoutils.GenerateSymmetricKey()
	if err != nil {
		return board.Attachment{}, err
	}
	defer key.Zero()

	sealed, err := seal(key, data)
	if err != nil {
		return board.Attachment{}, err
	}

	blobID, err := s.blobs.Store(ctx, sealed, interfaces.AttachmentType)
	if err != nil {
		return board.Attachment{}, fmt.Errorf("failed to store attachment: %w", err)
	}

	att := board.Attachment{
		ID:            uuid.NewString(),
		Name:          name,
		BlobKey:       blobID.String(),
		Size:          int64(len(data)),
		EncryptionKey: hexutil.Bytes(key.Bytes()),
	}

	_, err = s.Apply(ctx, boardID, func(doc *board.Document) (*board.Document, error) {
		if _, ok := doc.Card(cardID); !ok {
			return nil, fmt.Errorf("%w: card %s not found", interfaces.ErrInvalidInput, cardID)
		}
		return doc.AddAttachment(cardID, att), nil
	})
	if err != nil {
		return board.Attachment{}, err
	}

	s.log.Debug("Stored attachment",
		slog.String("board_id", boardID),
		slog.String("blob", att.BlobKey),
		slog.Int64("size", att.Size))
	return att, nil
}

// GetAttachment fetches and decrypts an attachment of a card.
func (s *Session) GetAttachment(ctx context.Context, boardID, cardID, attachmentID string) ([]byte, error) {
	if s.blobs == nil {
		return nil, errNoBlobBackend
	}

	ob, err := s.OpenBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	card, ok := ob.Doc.Card(cardID)
	if !ok {
		return nil, fmt.Errorf("%w: card %s not found", interfaces.ErrInvalidInput, cardID)
	}

	for _, att := range card.Attachments {
		if att.ID != attachmentID {
			continue
		}

		blobID, err := interfaces.NewContentIDFromHex(att.BlobKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidInput, err)
		}
		key, err := cryptoutils.SymmetricKeyFromBytes(att.EncryptionKey)
		if err != nil {
			return nil, err
		}
		defer key.Zero()

		sealed, err := s.blobs.Fetch(ctx, blobID, interfaces.AttachmentType)
		if err != nil {
			return nil, err
		}
		return unseal(key, sealed)
	}

	return nil, fmt.Errorf("%w: attachment %s not found", interfaces.ErrInvalidInput, attachmentID)
}

// PublishSnapshot stores the full board, encrypted under the board key, as a blob.
func (s *Session) PublishSnapshot(ctx context.Context, boardID string) (interfaces.ContentID, error) {
	if s.blobs == nil {
		return interfaces.ContentID{}, errNoBlobBackend
	}

	ob, err := s.OpenBoard(ctx, boardID)
	if err != nil {
		return interfaces.ContentID{}, err
	}
	return s.publish(ctx, ob)
}

func (s *Session) publish(ctx context.Context, ob *OpenBoard) (interfaces.ContentID, error) {
	sealed, err := sealDocument(ob.Key, ob.Doc)
	if err != nil {
		return interfaces.ContentID{}, err
	}

	id, err := s.blobs.Store(ctx, sealed, interfaces.SnapshotType)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("failed to publish snapshot: %w", err)
	}

	s.log.Debug("Published snapshot",
		slog.String("board_id", ob.ID),
		slog.String("snapshot", id.String()))
	return id, nil
}

// ImportSnapshot merges a published snapshot into the local copy of a board.
func (s *Session) ImportSnapshot(ctx context.Context, boardID string, snapshotID interfaces.ContentID) (*board.Document, error) {
	if s.blobs == nil {
		return nil, errNoBlobBackend
	}

	sealed, err := s.blobs.Fetch(ctx, snapshotID, interfaces.SnapshotType)
	if err != nil {
		return nil, err
	}
	return s.MergePending(ctx, boardID, [][]byte{sealed})
}

func (s *Session) fetchSnapshot(ctx context.Context, key cryptoutils.SymmetricKey, id interfaces.ContentID) (*board.Document, error) {
	if s.blobs == nil {
		return nil, errNoBlobBackend
	}

	sealed, err := s.blobs.Fetch(ctx, id, interfaces.SnapshotType)
	if err != nil {
		return nil, err
	}
	return s.openDocument(key, sealed)
}
