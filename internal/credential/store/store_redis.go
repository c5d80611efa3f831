package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"verichain/pkg/domain"
)

const redisListKeyPrefix = "verichain:credentials:"

// RedisStore keeps one hash per owner, field = credential ID, value = JSON
// entry. Every save refreshes the hash TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a Redis-backed list store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Save writes entry into owner's hash.
//
// Side effects: HSET plus EXPIRE in one pipeline.
func (s *RedisStore) Save(ctx context.Context, owner domain.Address, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode credential list entry: %w", err)
	}
	key := listKey(owner)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, entry.ID.String(), payload)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save credential list entry: %w", err)
	}
	return nil
}

// List loads owner's entries. Undecodable fields are skipped; the list is
// advisory and a bad entry must not hide the rest.
func (s *RedisStore) List(ctx context.Context, owner domain.Address) ([]Entry, error) {
	fields, err := s.client.HGetAll(ctx, listKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("list credential entries: %w", err)
	}
	out := make([]Entry, 0, len(fields))
	for _, raw := range fields {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	sortByID(out)
	return out, nil
}

func (s *RedisStore) Remove(ctx context.Context, owner domain.Address, id domain.CredentialID) error {
	if err := s.client.HDel(ctx, listKey(owner), strconv.FormatUint(uint64(id), 10)).Err(); err != nil {
		return fmt.Errorf("remove credential list entry: %w", err)
	}
	return nil
}

func listKey(owner domain.Address) string {
	return redisListKeyPrefix + owner.String()
}
