// Package gatekeeperhandler exposes a gatekeeper over HTTP and provides a client for it.
//
// Routes:
//
//	PUT  /api/boards/{board_id}/root     register or move the board's membership root
//	GET  /api/boards/{board_id}/root     read the current root
//	POST /api/boards/{board_id}/actions  submit a membership proof for an action
//
// Errors are JSON objects {"error": "...", "code": "..."}; the code is stable
// and maps back to the interfaces sentinel errors on the client side.
package gatekeeperhandler
