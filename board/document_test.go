package board

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fixedClock returns a clock that advances by one millisecond per reading.
func fixedClock(start int64) func() time.Time {
	now := start
	return func() time.Time {
		now++
		return time.UnixMilli(now)
	}
}

func findColumn(t *testing.T, d *Document, title string) Column {
	t.Helper()
	for _, c := range d.Columns() {
		if c.Title == title {
			return c
		}
	}
	t.Fatalf("column %q not found", title)
	return Column{}
}

func TestDemoScenario(t *testing.T) {
	d := New("Demo", WithReplica("alice"), WithClock(fixedClock(1_700_000_000_000)))
	d = d.AddColumn("To Do", "a")
	d = d.AddColumn("Done", "z")

	todo := findColumn(t, d, "To Do")
	done := findColumn(t, d, "Done")

	d = d.AddCard(todo.ID, "Ship it", "m")
	cards := d.CardsInColumn(todo.ID)
	require.Len(t, cards, 1)
	cardID := cards[0].ID

	d = d.MoveCard(cardID, done.ID, "n")
	card, ok := d.Card(cardID)
	require.True(t, ok)
	require.Equal(t, done.ID, card.ColumnID)
	require.Equal(t, "n", card.Position)
	require.GreaterOrEqual(t, card.UpdatedAt, card.CreatedAt)

	d = d.RemoveColumn(todo.ID)
	require.Len(t, d.Columns(), 1)
	card, ok = d.Card(cardID)
	require.True(t, ok)
	require.Equal(t, "Ship it", card.Title)
	require.Equal(t, done.ID, card.ColumnID)
}

func TestOperatorsAreNoOpsOnAbsentTargets(t *testing.T) {
	d := New("Board", WithReplica("r1"))
	d = d.AddColumn("Col", "a")
	col := d.Columns()[0]
	d = d.AddCard(col.ID, "Card", "m")

	title := "new"
	testCases := []struct {
		name string
		op   func(*Document) *Document
	}{
		{name: "RemoveColumn", op: func(d *Document) *Document { return d.RemoveColumn("missing") }},
		{name: "RenameColumn", op: func(d *Document) *Document { return d.RenameColumn("missing", "x") }},
		{name: "MoveColumn", op: func(d *Document) *Document { return d.MoveColumn("missing", "b") }},
		{name: "AddCard", op: func(d *Document) *Document { return d.AddCard("missing", "x", "a") }},
		{name: "MoveCard", op: func(d *Document) *Document { return d.MoveCard("missing", col.ID, "a") }},
		{name: "MoveCard to missing column", op: func(d *Document) *Document {
			for id := range d.Cards() {
				return d.MoveCard(id, "missing", "a")
			}
			return d
		}},
		{name: "UpdateCard", op: func(d *Document) *Document { return d.UpdateCard("missing", CardUpdate{Title: &title}) }},
		{name: "UpdateCard empty", op: func(d *Document) *Document {
			for id := range d.Cards() {
				return d.UpdateCard(id, CardUpdate{})
			}
			return d
		}},
		{name: "DeleteCard", op: func(d *Document) *Document { return d.DeleteCard("missing") }},
		{name: "AddComment", op: func(d *Document) *Document { return d.AddComment("missing", "me", "hi") }},
		{name: "RemoveAttachment", op: func(d *Document) *Document { return d.RemoveAttachment("missing", "a") }},
		{name: "RemoveMember", op: func(d *Document) *Document { return d.RemoveMember("missing") }},
		{name: "AddMember without commitment", op: func(d *Document) *Document { return d.AddMember(Member{}) }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			before := d.Snapshot()
			out := tc.op(d)
			require.Same(t, d, out)
			require.Equal(t, before, out.Snapshot())
		})
	}
}

func TestOperatorsDoNotMutateInput(t *testing.T) {
	d := New("Board")
	d = d.AddColumn("Col", "a")
	col := d.Columns()[0]
	d, cardID := d.CreateCard(CardInput{ColumnID: col.ID, Title: "Card", Position: "m"})
	before := d.Snapshot()

	title := "changed"
	_ = d.UpdateCard(cardID, CardUpdate{Title: &title})
	_ = d.AddComment(cardID, "me", "hello")
	_ = d.RemoveColumn(col.ID)
	_ = d.Rename("other")

	require.Equal(t, before, d.Snapshot())
}

func TestCreateCardWithAllFields(t *testing.T) {
	d := New("Board")
	d, colID := d.CreateColumn("Col", "a")
	due := int64(1_800_000_000_000)

	d, cardID := d.CreateCard(CardInput{
		ColumnID:    colID,
		Title:       "Write docs",
		Position:    "m",
		Description: "all of them",
		Labels:      []Label{{Text: "docs", Color: "blue"}},
		DueDate:     &due,
		Assignee:    "abc",
		Checklist:   []ChecklistItem{{ID: "1", Text: "intro"}},
	})
	require.NotEmpty(t, cardID)

	card, ok := d.Card(cardID)
	require.True(t, ok)
	require.Equal(t, "all of them", card.Description)
	require.Equal(t, []Label{{Text: "docs", Color: "blue"}}, card.Labels)
	require.Equal(t, due, *card.DueDate)
	require.Equal(t, "abc", card.Assignee)
	require.Len(t, card.Checklist, 1)

	same, id := d.CreateCard(CardInput{ColumnID: "missing", Title: "x"})
	require.Same(t, d, same)
	require.Empty(t, id)
}

func TestUpdateCard(t *testing.T) {
	d := New("Board")
	d, colID := d.CreateColumn("Col", "a")
	d, cardID := d.CreateCard(CardInput{ColumnID: colID, Title: "Card", Position: "m"})
	due := int64(42)
	title := "Renamed"
	desc := "details"
	labels := []Label{{Text: "bug", Color: "red"}}

	d = d.UpdateCard(cardID, CardUpdate{Title: &title, Description: &desc, Labels: &labels, DueDate: &due})
	card, _ := d.Card(cardID)
	require.Equal(t, "Renamed", card.Title)
	require.Equal(t, "details", card.Description)
	require.Equal(t, labels, card.Labels)
	require.Equal(t, int64(42), *card.DueDate)

	d = d.UpdateCard(cardID, CardUpdate{ClearDueDate: true})
	card, _ = d.Card(cardID)
	require.Nil(t, card.DueDate)

	d = d.SetChecklistItem(cardID, ChecklistItem{ID: "c1", Text: "step"})
	d = d.SetChecklistItem(cardID, ChecklistItem{ID: "c1", Text: "step", Done: true})
	card, _ = d.Card(cardID)
	require.Equal(t, []ChecklistItem{{ID: "c1", Text: "step", Done: true}}, card.Checklist)
}

func TestCommentsAndAttachments(t *testing.T) {
	d := New("Board", WithClock(fixedClock(1000)))
	d, colID := d.CreateColumn("Col", "a")
	d, cardID := d.CreateCard(CardInput{ColumnID: colID, Title: "Card", Position: "m"})

	d = d.AddComment(cardID, "alice", "first")
	d = d.AddComment(cardID, "bob", "second")
	card, _ := d.Card(cardID)
	require.Len(t, card.Comments, 2)
	require.Equal(t, "first", card.Comments[0].Text)
	require.Equal(t, "bob", card.Comments[1].Author)

	d = d.AddAttachment(cardID, Attachment{ID: "att", Name: "spec.pdf", BlobKey: "ab", Size: 10})
	card, _ = d.Card(cardID)
	require.Len(t, card.Attachments, 1)

	d = d.RemoveAttachment(cardID, "att")
	card, _ = d.Card(cardID)
	require.Empty(t, card.Attachments)

	same := d.AddAttachment(cardID, Attachment{ID: "att", Name: "again"})
	require.Same(t, d, same)
}

func TestNewCardHasEmptyCollections(t *testing.T) {
	d := New("Board", WithClock(fixedClock(1000)))
	d, colID := d.CreateColumn("Col", "a")
	d, cardID := d.CreateCard(CardInput{ColumnID: colID, Title: "Bare", Position: "m"})

	card, ok := d.Card(cardID)
	require.True(t, ok)

	raw, err := json.Marshal(card)
	require.NoError(t, err)
	for _, field := range []string{`"labels":[]`, `"checklist":[]`, `"attachments":[]`, `"comments":[]`} {
		require.Contains(t, string(raw), field)
	}
}

func TestDeleteCard(t *testing.T) {
	d := New("Board")
	d, colID := d.CreateColumn("Col", "a")
	d, cardID := d.CreateCard(CardInput{ColumnID: colID, Title: "Card", Position: "m"})

	d = d.DeleteCard(cardID)
	_, ok := d.Card(cardID)
	require.False(t, ok)
	require.Empty(t, d.Cards())
	require.Same(t, d, d.DeleteCard(cardID))
}

func TestRemoveColumnCascades(t *testing.T) {
	d := New("Board")
	d, a := d.CreateColumn("A", "a")
	d, b := d.CreateColumn("B", "b")
	d, c1 := d.CreateCard(CardInput{ColumnID: a, Title: "one", Position: "a"})
	d, c2 := d.CreateCard(CardInput{ColumnID: a, Title: "two", Position: "b"})
	d, c3 := d.CreateCard(CardInput{ColumnID: b, Title: "three", Position: "a"})

	d = d.RemoveColumn(a)
	for _, id := range []string{c1, c2} {
		_, ok := d.Card(id)
		require.False(t, ok)
	}
	_, ok := d.Card(c3)
	require.True(t, ok)
}

func TestMembers(t *testing.T) {
	d := New("Board", WithClock(fixedClock(0)))
	d = d.AddMember(Member{Commitment: "aa", DisplayName: "Alice", PublicKey: []byte{1, 2}})
	d = d.AddMember(Member{Commitment: "bb", DisplayName: "Bob"})

	require.Equal(t, []string{"aa", "bb"}, d.Commitments())

	d = d.RemoveMember("aa")
	_, ok := d.Member("aa")
	require.False(t, ok)
	require.Equal(t, []string{"bb"}, d.Commitments())

	d = d.AddMember(Member{Commitment: "aa", DisplayName: "Alice again"})
	m, ok := d.Member("aa")
	require.True(t, ok)
	require.Equal(t, "Alice again", m.DisplayName)
}

func TestInitializeBoard(t *testing.T) {
	d := InitializeBoard("Launch", Member{Commitment: "cc", DisplayName: "Carol"})
	require.Equal(t, "Launch", d.Name())

	cols := d.Columns()
	require.Len(t, cols, 3)
	require.Equal(t, "To Do", cols[0].Title)
	require.Equal(t, "In Progress", cols[1].Title)
	require.Equal(t, "Done", cols[2].Title)

	_, ok := d.Member("cc")
	require.True(t, ok)
}

func TestClockMonotonic(t *testing.T) {
	// a clock stuck in the past still yields increasing timestamps
	d := New("Board", WithReplica("r"), WithClock(func() time.Time { return time.UnixMilli(5) }))
	first := d.Clock()
	d = d.Rename("x")
	d = d.Rename("y")
	require.True(t, d.Clock().After(first))
	require.Equal(t, "y", d.Name())
}
