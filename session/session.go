package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/ruteri/zkkb/board"
	"github.com/ruteri/zkkb/cryptoutils"
	"github.com/ruteri/zkkb/identity"
	"github.com/ruteri/zkkb/interfaces"
	"github.com/ruteri/zkkb/kms"
	"github.com/ruteri/zkkb/membership"
	"github.com/ruteri/zkkb/storage"
)

// DefaultColor is given to members that don't pick one.
const DefaultColor = "#3b82f6"

// Config holds the stores a Session persists to. Blobs may be nil, in which
// case attachments and snapshots are unavailable.
type Config struct {
	Records interfaces.RecordStore
	Blobs   interfaces.StorageBackend
	Log     *slog.Logger
	Now     func() time.Time
}

// Session is safe for concurrent use. Mutations of a single board are serialized.
type Session struct {
	id     *identity.Identity
	boards *storage.Repository[interfaces.BoardRecord]
	blobs  interfaces.StorageBackend
	log    *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// OpenBoard is a decrypted board together with its current key.
type OpenBoard struct {
	ID     string
	Doc    *board.Document
	Key    cryptoutils.SymmetricKey
	record *interfaces.BoardRecord
}

func New(id *identity.Identity, cfg Config) (*Session, error) {
	if id == nil {
		return nil, fmt.Errorf("%w: identity is required", interfaces.ErrInvalidInput)
	}
	if cfg.Records == nil {
		return nil, fmt.Errorf("%w: record store is required", interfaces.ErrInvalidInput)
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Session{
		id:     id,
		boards: storage.NewBoardRepository(cfg.Records),
		blobs:  cfg.Blobs,
		log:    cfg.Log.With("commitment", id.Commitment[:10]),
		now:    cfg.Now,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Identity returns the public half of the session identity.
func (s *Session) Identity() identity.PublicIdentity {
	return s.id.Public()
}

func (s *Session) lock(boardID string) func() {
	s.mu.Lock()
	l, ok := s.locks[boardID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[boardID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Session) docOptions() []board.Option {
	return []board.Option{board.WithClock(s.now)}
}

// CreateBoard creates a board with the default columns, owned by the session identity.
func (s *Session) CreateBoard(ctx context.Context, name, displayName string) (*OpenBoard, error) {
	key, err := kms.NewBoardKey()
	if err != nil {
		return nil, err
	}

	wrapped, err := cryptoutils.WrapKey(key.Bytes(), s.id.PublicKey[:])
	if err != nil {
		return nil, err
	}

	if displayName == "" {
		displayName = "Anonymous"
	}
	creator := board.Member{
		Commitment:      s.id.Commitment,
		DisplayName:     displayName,
		PublicKey:       hexutil.Bytes(s.id.PublicKey[:]),
		WrappedBoardKey: wrapped,
		Color:           DefaultColor,
	}

	ob := &OpenBoard{
		ID:  uuid.NewString(),
		Doc: board.InitializeBoard(name, creator, s.docOptions()...),
		Key: key,
		record: &interfaces.BoardRecord{
			CreatedAt: s.now().UnixMilli(),
		},
	}

	defer s.lock(ob.ID)()
	if err := s.save(ctx, ob); err != nil {
		return nil, err
	}

	s.log.Info("Created board", slog.String("board_id", ob.ID))
	return ob, nil
}

// OpenBoard loads and decrypts a board.
func (s *Session) OpenBoard(ctx context.Context, boardID string) (*OpenBoard, error) {
	rec, err := s.boards.Get(ctx, boardID)
	if errors.Is(err, interfaces.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrBoardNotFound, boardID)
	}
	if err != nil {
		return nil, err
	}

	key, err := kms.UnwrapBoardKey(rec.WrappedKey, s.id)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap board key: %w", err)
	}

	plaintext, err := cryptoutils.Decrypt(key, rec.EncryptedContent, rec.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt board: %w", err)
	}

	doc, err := board.Deserialize(plaintext, s.docOptions()...)
	if err != nil {
		return nil, err
	}

	return &OpenBoard{ID: boardID, Doc: doc, Key: key, record: rec}, nil
}

// ListBoards returns the ids of all locally stored boards.
func (s *Session) ListBoards(ctx context.Context) ([]string, error) {
	return s.boards.List(ctx)
}

// Save encrypts ob under its key and persists it.
func (s *Session) Save(ctx context.Context, ob *OpenBoard) error {
	defer s.lock(ob.ID)()
	return s.save(ctx, ob)
}

func (s *Session) save(ctx context.Context, ob *OpenBoard) error {
	plaintext, err := board.Serialize(ob.Doc)
	if err != nil {
		return err
	}

	ciphertext, nonce, err := cryptoutils.Encrypt(ob.Key, plaintext)
	if err != nil {
		return err
	}

	wrapped, err := cryptoutils.WrapKey(ob.Key.Bytes(), s.id.PublicKey[:])
	if err != nil {
		return err
	}

	root, err := membership.ComputeRoot(ob.Doc.Commitments())
	if err != nil {
		return err
	}

	rec := interfaces.BoardRecord{}
	if ob.record != nil {
		rec = *ob.record
	}
	rec.ID = ob.ID
	rec.EncryptedContent = ciphertext
	rec.Nonce = nonce
	rec.WrappedKey = wrapped
	rec.MerkleRoot = root
	if rec.CreatedAt == 0 {
		rec.CreatedAt = s.now().UnixMilli()
	}

	if err := s.boards.Put(ctx, ob.ID, &rec); err != nil {
		return fmt.Errorf("failed to store board %s: %w", ob.ID, err)
	}
	ob.record = &rec
	return nil
}

// Apply runs fn on the current document of a board and persists the result.
// The changes fn made are queued for sync.
func (s *Session) Apply(ctx context.Context, boardID string, fn func(*board.Document) (*board.Document, error)) (*board.Document, error) {
	defer s.lock(boardID)()

	ob, err := s.OpenBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	before := ob.Doc.Clock()
	next, err := fn(ob.Doc)
	if err != nil {
		return nil, err
	}
	if next == ob.Doc {
		return next, nil
	}

	ob.Doc = next
	if err := s.queue(ob, next.DeltaSince(before)); err != nil {
		return nil, err
	}
	if err := s.save(ctx, ob); err != nil {
		return nil, err
	}
	return next, nil
}

// Group builds the membership group of a board from its live members.
func Group(doc *board.Document) (*membership.Group, error) {
	return membership.NewGroup(doc.Commitments()...)
}

// Authorize proves membership of a board without revealing which member is
// acting. The proof scope is the board id.
func (s *Session) Authorize(ctx context.Context, boardID, message string) (*interfaces.MembershipProof, error) {
	return s.AuthorizeAction(ctx, boardID, "", message)
}

// AuthorizeAction is Authorize scoped to one class of action on the board.
func (s *Session) AuthorizeAction(ctx context.Context, boardID, class, message string) (*interfaces.MembershipProof, error) {
	ob, err := s.OpenBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	group, err := Group(ob.Doc)
	if err != nil {
		return nil, err
	}

	proof, err := membership.GenerateMembershipProof(ctx, s.id, group, message, membership.ActionScope(boardID, class))
	if err != nil {
		return nil, err
	}

	s.log.Debug("Generated membership proof",
		slog.String("board_id", boardID),
		slog.String("root", proof.MerkleTreeRoot))
	return proof, nil
}
