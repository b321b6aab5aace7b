package board

import (
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/ruteri/zkkb/interfaces"
)

// Rename sets the board name.
func (d *Document) Rename(name string) *Document {
	next, ts := d.fork()
	next.name = newRegister(name, ts)
	return next
}

// AddMember adds or re-admits a member keyed by m.Commitment. JoinedAt
// defaults to the write time. An empty commitment leaves d unchanged.
func (d *Document) AddMember(m Member) *Document {
	if m.Commitment == "" {
		return d
	}

	next, ts := d.fork()
	joinedAt := m.JoinedAt
	if joinedAt == 0 {
		joinedAt = ts.Wall
	}
	next.members[m.Commitment] = &memberEntry{
		Info: newRegister(memberInfo{
			DisplayName: m.DisplayName,
			PublicKey:   slices.Clone(m.PublicKey),
			Color:       m.Color,
			JoinedAt:    joinedAt,
		}, ts),
		WrappedKey: newRegister(m.WrappedBoardKey, ts),
		Removed:    newRegister(false, ts),
	}
	return next
}

// RemoveMember marks a member as removed.
func (d *Document) RemoveMember(commitment string) *Document {
	m, ok := d.liveMember(commitment)
	if !ok {
		return d
	}

	next, ts := d.fork()
	entry := *m
	entry.Removed = newRegister(true, ts)
	next.members[commitment] = &entry
	return next
}

// SetMemberWrappedKey replaces the board key sealed to a member, as done after key rotation.
func (d *Document) SetMemberWrappedKey(commitment string, wrapped interfaces.WrappedKey) *Document {
	m, ok := d.liveMember(commitment)
	if !ok {
		return d
	}

	next, ts := d.fork()
	entry := *m
	entry.WrappedKey = newRegister(wrapped, ts)
	next.members[commitment] = &entry
	return next
}

// AddColumn appends a column at position.
func (d *Document) AddColumn(title, position string) *Document {
	next, _ := d.CreateColumn(title, position)
	return next
}

// CreateColumn is AddColumn that also returns the new column id.
func (d *Document) CreateColumn(title, position string) (*Document, string) {
	id := uuid.NewString()
	next, ts := d.fork()
	next.columns[id] = &columnEntry{
		Title:    newRegister(title, ts),
		Position: newRegister(position, ts),
		Created:  ts,
	}
	return next, id
}

func (d *Document) RenameColumn(columnID, title string) *Document {
	c, ok := d.liveColumn(columnID)
	if !ok {
		return d
	}

	next, ts := d.fork()
	entry := *c
	entry.Title = newRegister(title, ts)
	next.columns[columnID] = &entry
	return next
}

func (d *Document) MoveColumn(columnID, position string) *Document {
	c, ok := d.liveColumn(columnID)
	if !ok {
		return d
	}

	next, ts := d.fork()
	entry := *c
	entry.Position = newRegister(position, ts)
	next.columns[columnID] = &entry
	return next
}

// RemoveColumn tombstones a column and every card currently in it.
func (d *Document) RemoveColumn(columnID string) *Document {
	c, ok := d.liveColumn(columnID)
	if !ok {
		return d
	}

	next, ts := d.fork()
	entry := *c
	entry.Deleted = ts
	next.columns[columnID] = &entry

	for id, card := range d.cards {
		if card.ColumnID.Value != columnID || !card.Deleted.IsZero() {
			continue
		}
		tomb := card.clone()
		tomb.Deleted = ts
		tomb.Touched = maxTimestamp(tomb.Touched, ts)
		next.cards[id] = tomb
	}
	return next
}

// AddCard creates a card with a title in a column.
func (d *Document) AddCard(columnID, title, position string) *Document {
	next, _ := d.CreateCard(CardInput{ColumnID: columnID, Title: title, Position: position})
	return next
}

// CreateCard creates a card with every initial field set and returns its id.
// If the column does not exist d is returned with an empty id.
func (d *Document) CreateCard(in CardInput) (*Document, string) {
	if _, ok := d.liveColumn(in.ColumnID); !ok {
		return d, ""
	}

	id := uuid.NewString()
	next, ts := d.fork()
	next.cards[id] = &cardEntry{
		ColumnID:    newRegister(in.ColumnID, ts),
		Position:    newRegister(in.Position, ts),
		Title:       newRegister(in.Title, ts),
		Description: newRegister(in.Description, ts),
		Labels:      newRegister(slices.Clone(in.Labels), ts),
		DueDate:     newRegister(cloneDue(in.DueDate), ts),
		Assignee:    newRegister(in.Assignee, ts),
		Checklist:   newRegister(slices.Clone(in.Checklist), ts),
		Created:     ts,
		Touched:     ts,
	}
	return next, id
}

// editCard applies fn to a copy of a live card. It returns d when the card is absent.
func (d *Document) editCard(cardID string, fn func(c *cardEntry, ts Timestamp)) *Document {
	c, ok := d.liveCard(cardID)
	if !ok {
		return d
	}

	next, ts := d.fork()
	entry := c.clone()
	fn(entry, ts)
	entry.Touched = maxTimestamp(entry.Touched, ts)
	next.cards[cardID] = entry
	return next
}

// MoveCard places a card in a column at position.
func (d *Document) MoveCard(cardID, columnID, position string) *Document {
	if _, ok := d.liveColumn(columnID); !ok {
		return d
	}
	return d.editCard(cardID, func(c *cardEntry, ts Timestamp) {
		c.ColumnID = newRegister(columnID, ts)
		c.Position = newRegister(position, ts)
	})
}

// UpdateCard sets the fields present in upd.
func (d *Document) UpdateCard(cardID string, upd CardUpdate) *Document {
	if upd.empty() {
		return d
	}
	return d.editCard(cardID, func(c *cardEntry, ts Timestamp) {
		if upd.Title != nil {
			c.Title = newRegister(*upd.Title, ts)
		}
		if upd.Description != nil {
			c.Description = newRegister(*upd.Description, ts)
		}
		if upd.Labels != nil {
			c.Labels = newRegister(slices.Clone(*upd.Labels), ts)
		}
		if upd.ClearDueDate {
			c.DueDate = newRegister[*int64](nil, ts)
		} else if upd.DueDate != nil {
			c.DueDate = newRegister(cloneDue(upd.DueDate), ts)
		}
		if upd.Assignee != nil {
			c.Assignee = newRegister(*upd.Assignee, ts)
		}
		if upd.Checklist != nil {
			c.Checklist = newRegister(slices.Clone(*upd.Checklist), ts)
		}
	})
}

// SetChecklistItem inserts or replaces a checklist item by id.
func (d *Document) SetChecklistItem(cardID string, item ChecklistItem) *Document {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return d.editCard(cardID, func(c *cardEntry, ts Timestamp) {
		list := slices.Clone(c.Checklist.Value)
		if i := slices.IndexFunc(list, func(it ChecklistItem) bool { return it.ID == item.ID }); i >= 0 {
			list[i] = item
		} else {
			list = append(list, item)
		}
		c.Checklist = newRegister(list, ts)
	})
}

// DeleteCard tombstones a card.
func (d *Document) DeleteCard(cardID string) *Document {
	return d.editCard(cardID, func(c *cardEntry, ts Timestamp) {
		c.Deleted = ts
	})
}

// AddComment appends a comment by author.
func (d *Document) AddComment(cardID, author, text string) *Document {
	return d.editCard(cardID, func(c *cardEntry, ts Timestamp) {
		comments := maps.Clone(c.Comments)
		if comments == nil {
			comments = make(map[string]Comment, 1)
		}
		id := uuid.NewString()
		comments[id] = Comment{ID: id, Author: author, Text: text, CreatedAt: ts.Wall}
		c.Comments = comments
	})
}

// AddAttachment records an attachment. An empty ID is filled in; an ID the
// card already used, even for a removed attachment, leaves d unchanged.
func (d *Document) AddAttachment(cardID string, att Attachment) *Document {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	if c, ok := d.liveCard(cardID); ok {
		if _, exists := c.Attachments[att.ID]; exists {
			return d
		}
	}
	return d.editCard(cardID, func(c *cardEntry, ts Timestamp) {
		attachments := maps.Clone(c.Attachments)
		if attachments == nil {
			attachments = make(map[string]attachmentEntry, 1)
		}
		att.EncryptionKey = slices.Clone(att.EncryptionKey)
		attachments[att.ID] = attachmentEntry{Attachment: att, Added: ts}
		c.Attachments = attachments
	})
}

func (d *Document) RemoveAttachment(cardID, attachmentID string) *Document {
	c, ok := d.liveCard(cardID)
	if !ok {
		return d
	}
	if att, ok := c.Attachments[attachmentID]; !ok || !att.Removed.IsZero() {
		return d
	}
	return d.editCard(cardID, func(c *cardEntry, ts Timestamp) {
		attachments := maps.Clone(c.Attachments)
		att := attachments[attachmentID]
		att.Removed = ts
		attachments[attachmentID] = att
		c.Attachments = attachments
	})
}

func cloneDue(due *int64) *int64 {
	if due == nil {
		return nil
	}
	v := *due
	return &v
}
