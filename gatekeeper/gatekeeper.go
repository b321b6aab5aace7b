package gatekeeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/zkkb/interfaces"
	"github.com/ruteri/zkkb/membership"
)

// RootUpdateMessage is the message a member signs to move a board to a new root.
func RootUpdateMessage(newRoot string) string {
	return "set-root:" + newRoot
}

type Gatekeeper struct {
	roots      *RootRegistry
	nullifiers NullifierStore
	metrics    *Metrics
	log        *slog.Logger
}

// New creates a gatekeeper. metrics may be nil.
func New(roots *RootRegistry, nullifiers NullifierStore, metrics *Metrics, log *slog.Logger) *Gatekeeper {
	return &Gatekeeper{
		roots:      roots,
		nullifiers: nullifiers,
		metrics:    metrics,
		log:        log,
	}
}

// Root returns the registered root of a board.
func (g *Gatekeeper) Root(ctx context.Context, boardID string) (*RootEntry, error) {
	return g.roots.Get(ctx, boardID)
}

// Authorize accepts proof for an action on boardID. The checks run in order:
// scope must be the board or one of its action scopes, the root must be current, the proof must verify and
// the nullifier must be unspent for this scope and message.
func (g *Gatekeeper) Authorize(ctx context.Context, boardID string, proof *interfaces.MembershipProof) error {
	err := g.authorize(ctx, boardID, proof)
	g.metrics.observe(outcomeOf(err))
	if err != nil {
		g.log.Debug("Rejected action", slog.String("board_id", boardID), "err", err)
	}
	return err
}

func (g *Gatekeeper) authorize(ctx context.Context, boardID string, proof *interfaces.MembershipProof) error {
	if proof == nil {
		return fmt.Errorf("%w: missing proof", interfaces.ErrNotAuthorized)
	}
	if !membership.InBoardScope(proof.Scope, boardID) {
		return fmt.Errorf("%w: proof is scoped to another board", interfaces.ErrNotAuthorized)
	}

	entry, err := g.roots.Get(ctx, boardID)
	if err != nil {
		return err
	}
	if !membership.SameRoot(proof.MerkleTreeRoot, entry.Root) {
		return fmt.Errorf("%w: proof root %s, current root %s", interfaces.ErrStaleAuthorization, proof.MerkleTreeRoot, entry.Root)
	}

	start := time.Now()
	valid := membership.VerifyMembershipProof(ctx, proof, entry.Root)
	g.metrics.observeVerify(time.Since(start).Seconds())
	if !valid {
		return fmt.Errorf("%w: proof does not verify", interfaces.ErrNotAuthorized)
	}

	fresh, err := g.nullifiers.Spend(ctx, proof.Scope, proof.Message, proof.Nullifier)
	if err != nil {
		return err
	}
	if !fresh {
		return interfaces.ErrNullifierUsed
	}
	return nil
}

// UpdateRoot registers newRoot for a board. The first root of a board is
// accepted as is. Later updates need a proof against the current root whose
// message is RootUpdateMessage(newRoot).
func (g *Gatekeeper) UpdateRoot(ctx context.Context, boardID, newRoot string, proof *interfaces.MembershipProof) (*RootEntry, error) {
	_, err := g.roots.Get(ctx, boardID)
	switch {
	case errors.Is(err, interfaces.ErrBoardNotFound):
	case err != nil:
		return nil, err
	default:
		if proof == nil || proof.Message != RootUpdateMessage(newRoot) {
			return nil, fmt.Errorf("%w: root update must be signed by a current member", interfaces.ErrNotAuthorized)
		}
		if err := g.Authorize(ctx, boardID, proof); err != nil {
			return nil, err
		}
	}

	entry, err := g.roots.Set(ctx, boardID, newRoot)
	if err != nil {
		return nil, err
	}

	g.metrics.observeRootUpdate()
	g.log.Info("Updated board root", slog.String("board_id", boardID), slog.String("root", newRoot))
	return entry, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeAccepted
	case errors.Is(err, interfaces.ErrStaleAuthorization):
		return OutcomeStale
	case errors.Is(err, interfaces.ErrNotAuthorized):
		return OutcomeInvalid
	case errors.Is(err, interfaces.ErrNullifierUsed):
		return OutcomeReplayed
	case errors.Is(err, interfaces.ErrBoardNotFound):
		return OutcomeUnknown
	default:
		return OutcomeError
	}
}
