package board

import (
	"maps"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/zkkb/interfaces"
)

// Entries are never mutated once stored in a Document; operators clone the
// entry they change.

type memberInfo struct {
	DisplayName string        `json:"displayName"`
	PublicKey   hexutil.Bytes `json:"publicKey"`
	Color       string        `json:"color"`
	JoinedAt    int64         `json:"joinedAt"`
}

type memberEntry struct {
	Info       register[memberInfo]            `json:"info"`
	WrappedKey register[interfaces.WrappedKey] `json:"wrappedKey"`
	Removed    register[bool]                  `json:"removed"`
}

func (m *memberEntry) merge(o *memberEntry) *memberEntry {
	return &memberEntry{
		Info:       m.Info.merge(o.Info),
		WrappedKey: m.WrappedKey.merge(o.WrappedKey),
		Removed:    m.Removed.merge(o.Removed),
	}
}

func (m *memberEntry) latest() Timestamp {
	return maxTimestamp(maxTimestamp(m.Info.TS, m.WrappedKey.TS), m.Removed.TS)
}

type columnEntry struct {
	Title    register[string] `json:"title"`
	Position register[string] `json:"position"`
	Created  Timestamp        `json:"created"`
	Deleted  Timestamp        `json:"deleted"`
}

func (c *columnEntry) live() bool {
	return c.Deleted.IsZero()
}

func (c *columnEntry) merge(o *columnEntry) *columnEntry {
	return &columnEntry{
		Title:    c.Title.merge(o.Title),
		Position: c.Position.merge(o.Position),
		Created:  earliestSet(c.Created, o.Created),
		Deleted:  earliestSet(c.Deleted, o.Deleted),
	}
}

func (c *columnEntry) latest() Timestamp {
	ts := maxTimestamp(c.Title.TS, c.Position.TS)
	ts = maxTimestamp(ts, c.Created)
	return maxTimestamp(ts, c.Deleted)
}

type attachmentEntry struct {
	Attachment Attachment `json:"attachment"`
	Added      Timestamp  `json:"added"`
	Removed    Timestamp  `json:"removed"`
}

func (a attachmentEntry) merge(o attachmentEntry) attachmentEntry {
	out := a
	if o.Added.Compare(a.Added) < 0 && !o.Added.IsZero() {
		out.Attachment = o.Attachment
	}
	out.Added = earliestSet(a.Added, o.Added)
	out.Removed = earliestSet(a.Removed, o.Removed)
	return out
}

type cardEntry struct {
	ColumnID    register[string]          `json:"columnId"`
	Position    register[string]          `json:"position"`
	Title       register[string]          `json:"title"`
	Description register[string]          `json:"description"`
	Labels      register[[]Label]         `json:"labels"`
	DueDate     register[*int64]          `json:"dueDate"`
	Assignee    register[string]          `json:"assignee"`
	Checklist   register[[]ChecklistItem] `json:"checklist"`

	Comments    map[string]Comment         `json:"comments,omitempty"`
	Attachments map[string]attachmentEntry `json:"attachments,omitempty"`

	Created Timestamp `json:"created"`
	Touched Timestamp `json:"touched"`
	Deleted Timestamp `json:"deleted"`
}

func (c *cardEntry) clone() *cardEntry {
	out := *c
	return &out
}

func (c *cardEntry) merge(o *cardEntry) *cardEntry {
	out := &cardEntry{
		ColumnID:    c.ColumnID.merge(o.ColumnID),
		Position:    c.Position.merge(o.Position),
		Title:       c.Title.merge(o.Title),
		Description: c.Description.merge(o.Description),
		Labels:      c.Labels.merge(o.Labels),
		DueDate:     c.DueDate.merge(o.DueDate),
		Assignee:    c.Assignee.merge(o.Assignee),
		Checklist:   c.Checklist.merge(o.Checklist),
		Created:     earliestSet(c.Created, o.Created),
		Touched:     maxTimestamp(c.Touched, o.Touched),
		Deleted:     earliestSet(c.Deleted, o.Deleted),
	}

	if len(c.Comments)+len(o.Comments) > 0 {
		out.Comments = maps.Clone(c.Comments)
		if out.Comments == nil {
			out.Comments = make(map[string]Comment, len(o.Comments))
		}
		for id, comment := range o.Comments {
			if existing, ok := out.Comments[id]; !ok || comment.CreatedAt < existing.CreatedAt {
				out.Comments[id] = comment
			}
		}
	}

	if len(c.Attachments)+len(o.Attachments) > 0 {
		out.Attachments = maps.Clone(c.Attachments)
		if out.Attachments == nil {
			out.Attachments = make(map[string]attachmentEntry, len(o.Attachments))
		}
		for id, att := range o.Attachments {
			if existing, ok := out.Attachments[id]; ok {
				out.Attachments[id] = existing.merge(att)
			} else {
				out.Attachments[id] = att
			}
		}
	}

	return out
}

func (c *cardEntry) latest() Timestamp {
	ts := maxTimestamp(c.Touched, c.Created)
	for _, r := range []Timestamp{c.ColumnID.TS, c.Position.TS, c.Title.TS, c.Description.TS,
		c.Labels.TS, c.DueDate.TS, c.Assignee.TS, c.Checklist.TS, c.Deleted} {
		ts = maxTimestamp(ts, r)
	}
	for _, a := range c.Attachments {
		ts = maxTimestamp(maxTimestamp(ts, a.Added), a.Removed)
	}
	return ts
}
