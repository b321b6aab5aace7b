package gatekeeper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"github.com/ruteri/zkkb/interfaces"
)

// NullifierStore records spent nullifiers. Spend reports whether the
// nullifier was fresh; a second Spend of the same triple returns false.
type NullifierStore interface {
	Spend(ctx context.Context, scope, message, nullifier string) (bool, error)
}

// nullifierKey binds a nullifier to the scope and message it was spent on.
func nullifierKey(scope, message, nullifier string) string {
	digest := crypto.Keccak256Hash([]byte(scope), []byte{0}, []byte(message))
	return digest.Hex() + ":" + strings.ToLower(nullifier)
}

type MemoryNullifierStore struct {
	mu    sync.Mutex
	spent map[string]struct{}
}

func NewMemoryNullifierStore() *MemoryNullifierStore {
	return &MemoryNullifierStore{spent: make(map[string]struct{})}
}

func (s *MemoryNullifierStore) Spend(ctx context.Context, scope, message, nullifier string) (bool, error) {
	key := nullifierKey(scope, message, nullifier)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.spent[key]; ok {
		return false, nil
	}
	s.spent[key] = struct{}{}
	return true, nil
}

// RedisNullifierStore spends nullifiers with SETNX so several gatekeepers can share one store.
type RedisNullifierStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisNullifierStore keeps spent nullifiers for ttl, or forever when ttl is zero.
func NewRedisNullifierStore(rdb *redis.Client, ttl time.Duration) *RedisNullifierStore {
	return &RedisNullifierStore{rdb: rdb, ttl: ttl}
}

func (s *RedisNullifierStore) Spend(ctx context.Context, scope, message, nullifier string) (bool, error) {
	fresh, err := s.rdb.SetNX(ctx, "zkkb:nullifier:"+nullifierKey(scope, message, nullifier), 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return fresh, nil
}
