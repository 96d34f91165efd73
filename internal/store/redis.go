// Package store provides implementations of the session answer-record port.
package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each answer record as a Redis hash: one field per question
// index, the value its 1-based option position. Saving rewrites the whole
// hash so the stored record always mirrors the in-memory mapping exactly.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Load reads the answer mapping at key. A missing key yields an empty map.
func (s *RedisStore) Load(ctx context.Context, key string) (map[int]int, error) {
	raw, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	answers := make(map[int]int, len(raw))
	for field, value := range raw {
		idx, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("corrupt answer record at %s: bad question index %q", key, field)
		}
		opt, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("corrupt answer record at %s: bad option %q", key, value)
		}
		answers[idx] = opt
	}
	return answers, nil
}

// Save atomically replaces the record at key with the given mapping.
func (s *RedisStore) Save(ctx context.Context, key string, answers map[int]int) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(answers) > 0 {
		fields := make(map[string]string, len(answers))
		for idx, opt := range answers {
			fields[strconv.Itoa(idx)] = strconv.Itoa(opt)
		}
		pipe.HSet(ctx, key, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save answers: %w", err)
	}
	return nil
}

// Clear deletes the record at key.
func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("clear answers: %w", err)
	}
	return nil
}
