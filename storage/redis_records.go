package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/ruteri/zkkb/interfaces"
)

const redisKeyPrefix = "zkkb"

// RedisRecordStore keeps records as plain string keys with a per-namespace index set.
type RedisRecordStore struct {
	rdb         *redis.Client
	log         *slog.Logger
	locationURI string
}

func NewRedisRecordStore(rdb *redis.Client, locationURI string, log *slog.Logger) *RedisRecordStore {
	return &RedisRecordStore{
		rdb:         rdb,
		log:         log,
		locationURI: locationURI,
	}
}

func redisRecordKey(namespace interfaces.RecordNamespace, key string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, namespace, key)
}

func redisIndexKey(namespace interfaces.RecordNamespace) string {
	return fmt.Sprintf("%s:%s:_index", redisKeyPrefix, namespace)
}

func (s *RedisRecordStore) Get(ctx context.Context, namespace interfaces.RecordNamespace, key string) ([]byte, error) {
	value, err := s.rdb.Get(ctx, redisRecordKey(namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, interfaces.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return value, nil
}

func (s *RedisRecordStore) Put(ctx context.Context, namespace interfaces.RecordNamespace, key string, value []byte) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisRecordKey(namespace, key), value, 0)
		pipe.SAdd(ctx, redisIndexKey(namespace), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	s.log.Debug("Stored record in redis",
		slog.String("namespace", string(namespace)),
		slog.String("key", key))
	return nil
}

func (s *RedisRecordStore) Delete(ctx context.Context, namespace interfaces.RecordNamespace, key string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisRecordKey(namespace, key))
		pipe.SRem(ctx, redisIndexKey(namespace), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *RedisRecordStore) List(ctx context.Context, namespace interfaces.RecordNamespace) ([]string, error) {
	keys, err := s.rdb.SMembers(ctx, redisIndexKey(namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return keys, nil
}

func (s *RedisRecordStore) Available(ctx context.Context) bool {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		s.log.Debug("Redis unavailable", "err", err)
		return false
	}
	return true
}

func (s *RedisRecordStore) Name() string {
	return fmt.Sprintf("redis-%s", s.rdb.Options().Addr)
}

func (s *RedisRecordStore) LocationURI() string {
	return s.locationURI
}

// Close releases the underlying connection pool.
func (s *RedisRecordStore) Close() error {
	return s.rdb.Close()
}
