// Package membership maintains the ordered set of member commitments of a
// board and produces anonymous proofs that the prover is one of them.
//
// A Group's root is a Keccak-256 Merkle accumulator over its commitments in
// insertion order. Proofs are linkable ring signatures over the group's
// commitments: a verifier learns that some member signed, never which one.
// The link tag, scoped to the action, is the nullifier: the same identity and
// scope always give the same nullifier, different scopes give unrelated ones.
package membership
