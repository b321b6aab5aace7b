// Package gatekeeper is the relying party for proof-gated board actions.
//
// It knows the current membership root of each board and accepts an action
// only when it carries a membership proof that verifies against that root and
// whose nullifier has not been spent for the same scope and message. It never
// learns which member acted.
package gatekeeper
