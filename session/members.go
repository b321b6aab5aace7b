package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/zkkb/board"
	"github.com/ruteri/zkkb/cryptoutils"
	"github.com/ruteri/zkkb/identity"
	"github.com/ruteri/zkkb/interfaces"
	"github.com/ruteri/zkkb/kms"
)

// Invitation is what an invitee needs to join a board: the board key sealed
// to them and the current document, either as a published snapshot id or
// sealed inline.
type Invitation struct {
	BoardID    string                `json:"boardId"`
	WrappedKey interfaces.WrappedKey `json:"wrappedKey"`
	Snapshot   string                `json:"snapshot,omitempty"`
	Document   hexutil.Bytes         `json:"document,omitempty"`
}

// InviteMember grants invitee access to a board. When a blob backend is
// configured a snapshot is published so the invitee can join from it,
// otherwise the sealed document travels inside the invitation.
func (s *Session) InviteMember(ctx context.Context, boardID string, invitee identity.PublicIdentity, displayName string) (*Invitation, error) {
	if _, err := identity.ParseCommitment(invitee.Commitment); err != nil {
		return nil, err
	}

	defer s.lock(boardID)()

	ob, err := s.OpenBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	before := ob.Doc.Clock()
	doc, err := kms.GrantAccess(ob.Doc, ob.Key, board.Member{
		Commitment:  invitee.Commitment,
		DisplayName: displayName,
		PublicKey:   hexutil.Bytes(invitee.PublicKey[:]),
		Color:       DefaultColor,
	})
	if err != nil {
		return nil, err
	}

	ob.Doc = doc
	if err := s.queue(ob, doc.DeltaSince(before)); err != nil {
		return nil, err
	}
	if err := s.save(ctx, ob); err != nil {
		return nil, err
	}

	m, _ := doc.Member(invitee.Commitment)
	inv := &Invitation{BoardID: boardID, WrappedKey: m.WrappedBoardKey}

	if s.blobs != nil {
		id, err := s.publish(ctx, ob)
		if err != nil {
			return nil, err
		}
		inv.Snapshot = id.String()
	} else {
		sealed, err := sealDocument(ob.Key, ob.Doc)
		if err != nil {
			return nil, err
		}
		inv.Document = sealed
	}

	s.log.Info("Invited member", slog.String("board_id", boardID))
	return inv, nil
}

// AcceptInvitation stores a board this identity was invited to.
func (s *Session) AcceptInvitation(ctx context.Context, inv *Invitation) (*OpenBoard, error) {
	key, err := kms.UnwrapBoardKey(inv.WrappedKey, s.id)
	if err != nil {
		return nil, fmt.Errorf("%w: invitation is not sealed to this identity", interfaces.ErrNotAuthorized)
	}

	var doc *board.Document
	if len(inv.Document) > 0 {
		doc, err = s.openDocument(key, inv.Document)
	} else {
		var snapshotID interfaces.ContentID
		if snapshotID, err = interfaces.NewContentIDFromHex(inv.Snapshot); err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidInput, err)
		}
		doc, err = s.fetchSnapshot(ctx, key, snapshotID)
	}
	if err != nil {
		return nil, err
	}
	if _, ok := doc.Member(s.id.Commitment); !ok {
		return nil, fmt.Errorf("%w: not a member of board %s", interfaces.ErrNotAuthorized, inv.BoardID)
	}

	defer s.lock(inv.BoardID)()

	ob := &OpenBoard{ID: inv.BoardID, Doc: doc, Key: key}
	if existing, err := s.OpenBoard(ctx, inv.BoardID); err == nil {
		ob.Doc = existing.Doc.Merge(doc)
		ob.record = existing.record
	}
	if err := s.save(ctx, ob); err != nil {
		return nil, err
	}
	return ob, nil
}

// RemoveMember revokes a member and rotates the board key. The board is
// re-encrypted under the new key when saved.
func (s *Session) RemoveMember(ctx context.Context, boardID, commitment string) (*OpenBoard, error) {
	if commitment == s.id.Commitment {
		return nil, fmt.Errorf("%w: cannot remove yourself", interfaces.ErrInvalidInput)
	}

	defer s.lock(boardID)()

	ob, err := s.OpenBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	before := ob.Doc.Clock()
	doc, key, err := kms.RevokeMember(ob.Doc, commitment)
	if err != nil {
		return nil, err
	}

	old := ob.Key
	ob.Doc, ob.Key = doc, key

	// Deltas queued under the old key must not be readable by the removed member
	// going forward, so they are re-sealed.
	if err := s.resealPending(ob, old); err != nil {
		return nil, err
	}
	if err := s.queue(ob, doc.DeltaSince(before)); err != nil {
		return nil, err
	}
	if err := s.save(ctx, ob); err != nil {
		return nil, err
	}
	old.Zero()

	s.log.Info("Removed member and rotated board key", slog.String("board_id", boardID))
	return ob, nil
}

func (s *Session) resealPending(ob *OpenBoard, old cryptoutils.SymmetricKey) error {
	if ob.record == nil {
		return nil
	}
	for i, c := range ob.record.PendingChanges {
		data, err := unseal(old, c)
		if err != nil {
			return err
		}
		sealed, err := seal(ob.Key, data)
		if err != nil {
			return err
		}
		ob.record.PendingChanges[i] = sealed
	}
	return nil
}
