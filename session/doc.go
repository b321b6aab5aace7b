// Package session ties an unlocked identity to its stores. A Session opens,
// mutates and persists encrypted boards, manages the board key as members
// come and go, and produces membership proofs scoped to a board.
package session
