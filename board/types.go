package board

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/zkkb/interfaces"
)

type Label struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

type ChecklistItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Attachment describes an encrypted blob stored outside the document.
// EncryptionKey is the per-attachment key, readable only by board members.
type Attachment struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	BlobKey       string        `json:"blobKey"`
	Size          int64         `json:"size"`
	EncryptionKey hexutil.Bytes `json:"encryptionKey"`
}

type Comment struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// Member is a board participant keyed by their identity commitment.
type Member struct {
	Commitment      string                `json:"commitment"`
	DisplayName     string                `json:"displayName"`
	PublicKey       hexutil.Bytes         `json:"publicKey"`
	WrappedBoardKey interfaces.WrappedKey `json:"wrappedBoardKey"`
	Color           string                `json:"color"`
	JoinedAt        int64                 `json:"joinedAt"`
}

type Column struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Position string `json:"position"`
}

type Card struct {
	ID          string          `json:"id"`
	ColumnID    string          `json:"columnId"`
	Position    string          `json:"position"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Labels      []Label         `json:"labels"`
	DueDate     *int64          `json:"dueDate,omitempty"`
	Assignee    string          `json:"assignee,omitempty"`
	Checklist   []ChecklistItem `json:"checklist"`
	Attachments []Attachment    `json:"attachments"`
	Comments    []Comment       `json:"comments"`
	CreatedAt   int64           `json:"createdAt"`
	UpdatedAt   int64           `json:"updatedAt"`
}

// Board is a plain read model of a Document. Columns are ordered by
// position; Cards holds only visible cards.
type Board struct {
	Name    string            `json:"name"`
	Members map[string]Member `json:"members"`
	Columns []Column          `json:"columns"`
	Cards   map[string]Card   `json:"cards"`
}

// CardInput creates a card with all of its initial fields.
type CardInput struct {
	ColumnID    string
	Title       string
	Position    string
	Description string
	Labels      []Label
	DueDate     *int64
	Assignee    string
	Checklist   []ChecklistItem
}

// CardUpdate sets every non-nil field. ClearDueDate removes the due date.
type CardUpdate struct {
	Title        *string
	Description  *string
	Labels       *[]Label
	DueDate      *int64
	ClearDueDate bool
	Assignee     *string
	Checklist    *[]ChecklistItem
}

func (u CardUpdate) empty() bool {
	return u.Title == nil && u.Description == nil && u.Labels == nil && u.DueDate == nil &&
		!u.ClearDueDate && u.Assignee == nil && u.Checklist == nil
}
