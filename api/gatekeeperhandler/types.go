package gatekeeperhandler

import (
	"github.com/ruteri/zkkb/interfaces"
)

// SetRootRequest moves a board to a new root. Proof is required once the
// board has a root and must sign gatekeeper.RootUpdateMessage(Root).
type SetRootRequest struct {
	Root  string                      `json:"root"`
	Proof *interfaces.MembershipProof `json:"proof,omitempty"`
}

type RootResponse struct {
	BoardID   string `json:"boardId"`
	Root      string `json:"root"`
	UpdatedAt int64  `json:"updatedAt"`
}

type ActionResponse struct {
	Status    string `json:"status"`
	Nullifier string `json:"nullifier"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	codeInvalidInput  = "invalid_input"
	codeNotAuthorized = "not_authorized"
	codeStaleRoot     = "stale_root"
	codeNullifierUsed = "nullifier_used"
	codeBoardNotFound = "board_not_found"
	codeInternal      = "internal"
)
