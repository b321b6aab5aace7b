package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ruteri/zkkb/interfaces"
)

// Repository stores JSON-encoded values of one type in a single namespace of a RecordStore.
type Repository[T any] struct {
	store     interfaces.RecordStore
	namespace interfaces.RecordNamespace
}

func NewRepository[T any](store interfaces.RecordStore, namespace interfaces.RecordNamespace) *Repository[T] {
	return &Repository[T]{store: store, namespace: namespace}
}

// NewBoardRepository returns the repository for encrypted board records.
func NewBoardRepository(store interfaces.RecordStore) *Repository[interfaces.BoardRecord] {
	return NewRepository[interfaces.BoardRecord](store, interfaces.BoardsNamespace)
}

// Get returns interfaces.ErrRecordNotFound when the key is absent.
func (r *Repository[T]) Get(ctx context.Context, key string) (*T, error) {
	data, err := r.store.Get(ctx, r.namespace, key)
	if err != nil {
		return nil, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s record %q: %w", r.namespace, key, err)
	}
	return &v, nil
}

func (r *Repository[T]) Put(ctx context.Context, key string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s record %q: %w", r.namespace, key, err)
	}
	return r.store.Put(ctx, r.namespace, key, data)
}

func (r *Repository[T]) Delete(ctx context.Context, key string) error {
	return r.store.Delete(ctx, r.namespace, key)
}

func (r *Repository[T]) List(ctx context.Context) ([]string, error) {
	return r.store.List(ctx, r.namespace)
}
