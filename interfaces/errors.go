package interfaces

import "errors"

var (
	// ErrAuthenticationFailed is returned when an AEAD open fails: wrong key,
	// tampered ciphertext or a malformed nonce.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrNotAuthorized is returned when the caller is not a member of the group
	// or presents a proof that does not verify.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrStaleAuthorization is returned when a proof was produced against a
	// group root that is no longer current.
	ErrStaleAuthorization = errors.New("stale authorization")

	// ErrInvalidInput is returned for malformed phrases, seeds, keys or order keys.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNullifierUsed is returned when a nullifier was already spent for the same scope and message.
	ErrNullifierUsed = errors.New("nullifier already used")

	// ErrBoardNotFound is returned when a board id is unknown locally.
	ErrBoardNotFound = errors.New("board not found")
)
