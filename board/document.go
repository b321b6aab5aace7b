package board

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/ruteri/zkkb/interfaces"
)

// Document is one replica's view of a board.
type Document struct {
	replica string
	now     func() time.Time
	clock   Timestamp

	name    register[string]
	members map[string]*memberEntry
	columns map[string]*columnEntry
	cards   map[string]*cardEntry
}

// Option configures a Document created by New or Deserialize.
type Option func(*Document)

// WithReplica sets the replica id used to stamp local writes.
func WithReplica(replica string) Option {
	return func(d *Document) {
		d.replica = replica
	}
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Document) {
		d.now = now
	}
}

func newEmpty(opts ...Option) *Document {
	d := &Document{
		replica: uuid.NewString(),
		now:     time.Now,
		members: make(map[string]*memberEntry),
		columns: make(map[string]*columnEntry),
		cards:   make(map[string]*cardEntry),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// New returns a board with the given name and nothing else.
func New(name string, opts ...Option) *Document {
	d := newEmpty(opts...)
	d.clock = nextTimestamp(d.clock, d.now().UnixMilli(), d.replica)
	d.name = newRegister(name, d.clock)
	return d
}

// DefaultColumns are created by InitializeBoard.
var DefaultColumns = []Column{
	{Title: "To Do", Position: "a"},
	{Title: "In Progress", Position: "n"},
	{Title: "Done", Position: "z"},
}

// InitializeBoard creates a board owned by creator with the default columns.
func InitializeBoard(name string, creator Member, opts ...Option) *Document {
	d := New(name, opts...).AddMember(creator)
	for _, col := range DefaultColumns {
		d = d.AddColumn(col.Title, col.Position)
	}
	return d
}

// Replica returns the id this document stamps writes with.
func (d *Document) Replica() string {
	return d.replica
}

// Clock returns the latest timestamp this replica has issued or observed.
func (d *Document) Clock() Timestamp {
	return d.clock
}

// fork returns a writable copy of d and the timestamp for the write.
func (d *Document) fork() (*Document, Timestamp) {
	next := &Document{
		replica: d.replica,
		now:     d.now,
		name:    d.name,
		members: maps.Clone(d.members),
		columns: maps.Clone(d.columns),
		cards:   maps.Clone(d.cards),
	}
	next.clock = nextTimestamp(d.clock, d.now().UnixMilli(), d.replica)
	return next, next.clock
}

func (d *Document) liveColumn(id string) (*columnEntry, bool) {
	c, ok := d.columns[id]
	if !ok || !c.live() {
		return nil, false
	}
	return c, true
}

// liveCard reports cards that are neither deleted nor sitting in a removed column.
func (d *Document) liveCard(id string) (*cardEntry, bool) {
	c, ok := d.cards[id]
	if !ok || !c.Deleted.IsZero() {
		return nil, false
	}
	if _, ok := d.liveColumn(c.ColumnID.Value); !ok {
		return nil, false
	}
	return c, true
}

func (d *Document) liveMember(commitment string) (*memberEntry, bool) {
	m, ok := d.members[commitment]
	if !ok || m.Removed.Value {
		return nil, false
	}
	return m, true
}

func (d *Document) Name() string {
	return d.name.Value
}

// Member returns a current member by commitment.
func (d *Document) Member(commitment string) (Member, bool) {
	m, ok := d.liveMember(commitment)
	if !ok {
		return Member{}, false
	}
	return memberView(commitment, m), true
}

// Members returns the current members ordered by join time, then commitment.
func (d *Document) Members() []Member {
	out := make([]Member, 0, len(d.members))
	for c, m := range d.members {
		if !m.Removed.Value {
			out = append(out, memberView(c, m))
		}
	}
	slices.SortFunc(out, func(a, b Member) int {
		return cmp.Or(cmp.Compare(a.JoinedAt, b.JoinedAt), cmp.Compare(a.Commitment, b.Commitment))
	})
	return out
}

// Commitments returns member commitments in Members order.
func (d *Document) Commitments() []string {
	members := d.Members()
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.Commitment)
	}
	return out
}

func (d *Document) Column(id string) (Column, bool) {
	c, ok := d.liveColumn(id)
	if !ok {
		return Column{}, false
	}
	return columnView(id, c), true
}

// Columns returns live columns ordered by position, then id.
func (d *Document) Columns() []Column {
	out := make([]Column, 0, len(d.columns))
	for id, c := range d.columns {
		if c.live() {
			out = append(out, columnView(id, c))
		}
	}
	slices.SortFunc(out, func(a, b Column) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func (d *Document) Card(id string) (Card, bool) {
	c, ok := d.liveCard(id)
	if !ok {
		return Card{}, false
	}
	return cardView(id, c), true
}

// Cards returns every visible card keyed by id.
func (d *Document) Cards() map[string]Card {
	out := make(map[string]Card, len(d.cards))
	for id := range d.cards {
		if c, ok := d.liveCard(id); ok {
			out[id] = cardView(id, c)
		}
	}
	return out
}

// CardsInColumn returns the visible cards of a column ordered by position, then id.
func (d *Document) CardsInColumn(columnID string) []Card {
	var out []Card
	for id, c := range d.cards {
		if c.ColumnID.Value != columnID {
			continue
		}
		if live, ok := d.liveCard(id); ok {
			out = append(out, cardView(id, live))
		}
	}
	slices.SortFunc(out, func(a, b Card) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// Snapshot returns the plain read model of the document.
func (d *Document) Snapshot() Board {
	members := make(map[string]Member)
	for _, m := range d.Members() {
		members[m.Commitment] = m
	}
	return Board{
		Name:    d.Name(),
		Members: members,
		Columns: d.Columns(),
		Cards:   d.Cards(),
	}
}

func memberView(commitment string, m *memberEntry) Member {
	w := m.WrappedKey.Value
	return Member{
		Commitment:  commitment,
		DisplayName: m.Info.Value.DisplayName,
		PublicKey:   normalizeBytes(m.Info.Value.PublicKey),
		WrappedBoardKey: interfaces.WrappedKey{
			EphemeralPublicKey: normalizeBytes(w.EphemeralPublicKey),
			Ciphertext:         normalizeBytes(w.Ciphertext),
			IV:                 normalizeBytes(w.IV),
		},
		Color:    m.Info.Value.Color,
		JoinedAt: m.Info.Value.JoinedAt,
	}
}

func columnView(id string, c *columnEntry) Column {
	return Column{ID: id, Title: c.Title.Value, Position: c.Position.Value}
}

func cardView(id string, c *cardEntry) Card {
	card := Card{
		ID:          id,
		ColumnID:    c.ColumnID.Value,
		Position:    c.Position.Value,
		Title:       c.Title.Value,
		Description: c.Description.Value,
		Assignee:    c.Assignee.Value,
		CreatedAt:   c.Created.Wall,
		UpdatedAt:   c.Touched.Wall,
		Labels:      append([]Label{}, c.Labels.Value...),
		Checklist:   append([]ChecklistItem{}, c.Checklist.Value...),
		Comments:    make([]Comment, 0, len(c.Comments)),
		Attachments: make([]Attachment, 0, len(c.Attachments)),
	}
	if c.DueDate.Value != nil {
		due := *c.DueDate.Value
		card.DueDate = &due
	}

	for _, comment := range c.Comments {
		card.Comments = append(card.Comments, comment)
	}
	slices.SortFunc(card.Comments, func(a, b Comment) int {
		return cmp.Or(cmp.Compare(a.CreatedAt, b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	for _, att := range c.Attachments {
		if att.Removed.IsZero() {
			a := att.Attachment
			a.EncryptionKey = normalizeBytes(a.EncryptionKey)
			card.Attachments = append(card.Attachments, a)
		}
	}
	slices.SortFunc(card.Attachments, func(a, b Attachment) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return card
}

func normalizeBytes(b hexutil.Bytes) hexutil.Bytes {
	if len(b) == 0 {
		return nil
	}
	return slices.Clone(b)
}
