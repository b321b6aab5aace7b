// Package board implements the replicated kanban document.
//
// A Document is an immutable value. Every operator returns a new Document and
// leaves its receiver untouched; operators whose target does not exist return
// the receiver itself. Two replicas that applied different operators converge
// by Merge, which is commutative, associative and idempotent.
//
// Scalar fields are last-writer-wins registers stamped with a hybrid logical
// clock; comments grow only; columns, cards, members and attachments carry
// permanent tombstones. A card whose column has been removed is never
// visible, whichever order the removal and the card's creation arrive in.
package board
