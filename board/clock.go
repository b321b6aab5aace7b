package board

import "strings"

// Timestamp is a hybrid logical clock reading. Wall is unix milliseconds.
// Readings are totally ordered by (Wall, Counter, Replica).
type Timestamp struct {
	Wall    int64  `json:"w"`
	Counter uint32 `json:"c,omitempty"`
	Replica string `json:"r"`
}

// Compare returns -1, 0 or 1.
func (t Timestamp) Compare(o Timestamp) int {
	switch {
	case t.Wall < o.Wall:
		return -1
	case t.Wall > o.Wall:
		return 1
	case t.Counter < o.Counter:
		return -1
	case t.Counter > o.Counter:
		return 1
	}
	return strings.Compare(t.Replica, o.Replica)
}

func (t Timestamp) After(o Timestamp) bool {
	return t.Compare(o) > 0
}

func (t Timestamp) IsZero() bool {
	return t == Timestamp{}
}

// nextTimestamp advances last for replica given the current wall time.
func nextTimestamp(last Timestamp, nowMillis int64, replica string) Timestamp {
	ts := Timestamp{Wall: max(nowMillis, last.Wall), Replica: replica}
	if ts.Wall == last.Wall {
		ts.Counter = last.Counter + 1
	}
	return ts
}

func maxTimestamp(a, b Timestamp) Timestamp {
	if b.After(a) {
		return b
	}
	return a
}

// earliestSet merges tombstone-like stamps: once set, a stamp stays set, and
// concurrent settings resolve to the earliest.
func earliestSet(a, b Timestamp) Timestamp {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.Compare(a) < 0:
		return b
	}
	return a
}

// register is a last-writer-wins cell.
type register[T any] struct {
	Value T         `json:"v"`
	TS    Timestamp `json:"t"`
}

func newRegister[T any](v T, ts Timestamp) register[T] {
	return register[T]{Value: v, TS: ts}
}

func (r register[T]) merge(o register[T]) register[T] {
	if o.TS.After(r.TS) {
		return o
	}
	return r
}
