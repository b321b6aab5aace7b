package membership

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/zkkb/identity"
	"github.com/ruteri/zkkb/interfaces"
	"go.dedis.ch/kyber/v3/sign/anon"
)

const (
	pointSize = 32

	// MaxRingSize bounds the ring a verifier is willing to decode.
	MaxRingSize = 1 << 12

	scopeTag = "zkkb-scope:"
)

var errMalformedPoints = errors.New("malformed proof points")

// ActionScope scopes a proof to one class of action on a board, so a member
// gets a separate nullifier per class. An empty class scopes to the board.
func ActionScope(boardID, class string) string {
	if class == "" {
		return boardID
	}
	return boardID + ":" + class
}

// InBoardScope reports whether scope is boardID or an ActionScope of it.
func InBoardScope(scope, boardID string) bool {
	if scope == boardID {
		return true
	}
	class, ok := strings.CutPrefix(scope, boardID+":")
	return ok && class != ""
}

// GenerateMembershipProof proves that id's commitment is in group, binding the
// proof to message and scope. It fails with ErrNotAuthorized before doing any
// cryptography when id is not a member. The signing runs off the caller's
// goroutine and is abandoned when ctx is done.
func GenerateMembershipProof(ctx context.Context, id *identity.Identity, group *Group, message, scope string) (*interfaces.MembershipProof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	members, root := group.snapshot()

	mine := -1
	for i, c := range members {
		if c == id.Commitment {
			mine = i
			break
		}
	}
	if mine < 0 {
		return nil, fmt.Errorf("%w: identity is not a member of the group", interfaces.ErrNotAuthorized)
	}

	ring, err := decodeRing(members)
	if err != nil {
		return nil, err
	}

	type result struct {
		proof *interfaces.MembershipProof
		err   error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("proof generation failed: %v", r)}
			}
		}()

		msg := signedMessage(root, message, scope)
		linkScope := linkScopeFor(scope)
		sig := anon.Sign(identity.Suite, msg, ring, linkScope, mine, id.SecretScalar())

		tag, err := anon.Verify(identity.Suite, msg, ring, linkScope, sig)
		if err != nil {
			done <- result{err: fmt.Errorf("self-check of proof failed: %w", err)}
			return
		}

		points, err := encodePoints(members, sig)
		if err != nil {
			done <- result{err: err}
			return
		}

		done <- result{proof: &interfaces.MembershipProof{
			MerkleTreeRoot: root,
			Nullifier:      hexutil.Encode(tag),
			Message:        message,
			Scope:          scope,
			Points:         points,
		}}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.proof, r.err
	}
}

// VerifyMembershipProof checks proof against expectedRoot. A root mismatch
// returns false without touching the proof points. Malformed input returns
// false; it never panics.
func VerifyMembershipProof(ctx context.Context, proof *interfaces.MembershipProof, expectedRoot string) bool {
	if proof == nil || !SameRoot(proof.MerkleTreeRoot, expectedRoot) {
		return false
	}

	members, sig, err := decodePoints(proof.Points)
	if err != nil {
		return false
	}

	root, err := ComputeRoot(members)
	if err != nil || !SameRoot(root, expectedRoot) {
		return false
	}

	ring, err := decodeRing(members)
	if err != nil {
		return false
	}
	if !canonicalSignature(sig, len(ring)) {
		return false
	}

	nullifier, err := hexutil.Decode(proof.Nullifier)
	if err != nil {
		return false
	}

	done := make(chan bool, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- false
			}
		}()

		tag, err := anon.Verify(identity.Suite, signedMessage(root, proof.Message, proof.Scope), ring, linkScopeFor(proof.Scope), sig)
		done <- err == nil && hex.EncodeToString(tag) == hex.EncodeToString(nullifier)
	}()

	select {
	case <-ctx.Done():
		return false
	case ok := <-done:
		return ok
	}
}

// signedMessage binds the root, message and scope into the signed digest.
func signedMessage(root, message, scope string) []byte {
	var buf []byte
	for _, part := range []string{root, message, scope} {
		buf = binary.AppendUvarint(buf, uint64(len(part)))
		buf = append(buf, part...)
	}
	return crypto.Keccak256(buf)
}

func linkScopeFor(scope string) []byte {
	return []byte(scopeTag + scope)
}

func decodeRing(commitments []string) (anon.Set, error) {
	ring := make(anon.Set, 0, len(commitments))
	for _, c := range commitments {
		p, err := identity.ParseCommitment(c)
		if err != nil {
			return nil, err
		}
		ring = append(ring, p)
	}
	return ring, nil
}

// encodePoints lays out the ring followed by the signature:
// uvarint(n) || n*32 commitment bytes || signature.
func encodePoints(commitments []string, sig []byte) ([]byte, error) {
	buf := binary.AppendUvarint(nil, uint64(len(commitments)))
	for _, c := range commitments {
		raw, err := hex.DecodeString(c)
		if err != nil || len(raw) != pointSize {
			return nil, fmt.Errorf("%w: bad commitment %q", interfaces.ErrInvalidInput, c)
		}
		buf = append(buf, raw...)
	}
	return append(buf, sig...), nil
}

func decodePoints(points []byte) ([]string, []byte, error) {
	n, read := binary.Uvarint(points)
	if read <= 0 || n == 0 || n > MaxRingSize {
		return nil, nil, errMalformedPoints
	}
	rest := points[read:]
	if uint64(len(rest)) <= n*pointSize {
		return nil, nil, errMalformedPoints
	}

	members := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		members = append(members, hex.EncodeToString(rest[i*pointSize:(i+1)*pointSize]))
	}
	return members, rest[n*pointSize:], nil
}

// canonicalSignature checks the layout c0 || s[0..n-1] || tag and that every
// scalar is reduced. kyber reduces scalars on decode, so a non-canonical
// encoding would otherwise verify as a second byte string for one signature.
func canonicalSignature(sig []byte, n int) bool {
	scalarSize := identity.Suite.ScalarLen()
	if len(sig) != (n+1)*scalarSize+identity.Suite.PointLen() {
		return false
	}

	scalar := identity.Suite.Scalar()
	for i := 0; i <= n; i++ {
		raw := sig[i*scalarSize : (i+1)*scalarSize]
		if err := scalar.UnmarshalBinary(raw); err != nil {
			return false
		}
		reduced, err := scalar.MarshalBinary()
		if err != nil || !bytes.Equal(reduced, raw) {
			return false
		}
	}
	return true
}
