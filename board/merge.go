package board

// Merge combines two replicas of the same board. The result keeps a's replica
// id and clock source and has observed every timestamp of both inputs.
// Merge(a, b) and Merge(b, a) have equal snapshots.
func Merge(a, b *Document) *Document {
	out := &Document{
		replica: a.replica,
		now:     a.now,
		clock:   maxTimestamp(a.clock, b.clock),
		name:    a.name.merge(b.name),
		members: make(map[string]*memberEntry, len(a.members)),
		columns: make(map[string]*columnEntry, len(a.columns)),
		cards:   make(map[string]*cardEntry, len(a.cards)),
	}

	mergeEntries(out.members, a.members, b.members, (*memberEntry).merge)
	mergeEntries(out.columns, a.columns, b.columns, (*columnEntry).merge)
	mergeEntries(out.cards, a.cards, b.cards, (*cardEntry).merge)

	return out
}

func mergeEntries[E any](dst, a, b map[string]*E, merge func(*E, *E) *E) {
	for id, ea := range a {
		dst[id] = ea
	}
	for id, eb := range b {
		ea, ok := dst[id]
		switch {
		case !ok:
			dst[id] = eb
		case ea != eb:
			dst[id] = merge(ea, eb)
		}
	}
}

// Merge folds other into d. Shorthand for Merge(d, other).
func (d *Document) Merge(other *Document) *Document {
	return Merge(d, other)
}

// DeltaSince returns a document holding every entry written after since.
// Merging the delta into a replica that already has everything up to since
// gives the same result as merging the whole document.
func (d *Document) DeltaSince(since Timestamp) *Document {
	delta := &Document{
		replica: d.replica,
		now:     d.now,
		clock:   d.clock,
		members: make(map[string]*memberEntry),
		columns: make(map[string]*columnEntry),
		cards:   make(map[string]*cardEntry),
	}
	if d.name.TS.After(since) {
		delta.name = d.name
	}
	for id, m := range d.members {
		if m.latest().After(since) {
			delta.members[id] = m
		}
	}
	for id, c := range d.columns {
		if c.latest().After(since) {
			delta.columns[id] = c
		}
	}
	for id, c := range d.cards {
		if c.latest().After(since) {
			delta.cards[id] = c
		}
	}
	return delta
}

// Empty reports whether the document carries no entries, as with a delta
// that has nothing new.
func (d *Document) Empty() bool {
	return d.name.TS.IsZero() && len(d.members) == 0 && len(d.columns) == 0 && len(d.cards) == 0
}
