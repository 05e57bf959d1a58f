package learning

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinical-rosetta/internal/model"
)

const defaultRedisPrefix = "rosetta:learned:"

// RedisBackend stores each learned entry as a hash under prefix+normalized
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisBackend wraps a client. An empty prefix uses "rosetta:learned:".
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) LoadAll(ctx context.Context) ([]model.LearnedEntry, error) {
	var entries []model.LearnedEntry
	var cursor uint64

	for {
		keys, next, err := b.client.Scan(ctx, cursor, b.prefix+"*", 500).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning learned mappings: %w", err)
		}
		for _, key := range keys {
			fields, err := b.client.HGetAll(ctx, key).Result()
			if err != nil {
				return nil, fmt.Errorf("reading learned mapping %s: %w", key, err)
			}
			if len(fields) == 0 {
				continue
			}
			e, err := decodeEntry(fields)
			if err != nil {
				return nil, fmt.Errorf("decoding learned mapping %s: %w", key, err)
			}
			entries = append(entries, e)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return entries, nil
}

// Upsert writes the entry fields and increments usage_count inside one MULTI/EXEC
func (b *RedisBackend) Upsert(ctx context.Context, entry model.LearnedEntry) (model.LearnedEntry, error) {
	key := b.prefix + entry.Normalized
	ts := entry.LastUpdated.UTC().Format(time.RFC3339Nano)

	var stored *redis.MapStringStringCmd
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, "created_at", ts)
		pipe.HSet(ctx, key, map[string]interface{}{
			"normalized":   entry.Normalized,
			"source_text":  entry.SourceText,
			"identifier":   string(entry.Identifier),
			"confidence":   strconv.FormatFloat(entry.Confidence, 'f', -1, 64),
			"last_updated": ts,
		})
		pipe.HIncrBy(ctx, key, "usage_count", 1)
		stored = pipe.HGetAll(ctx, key)
		return nil
	})
	if err != nil {
		return model.LearnedEntry{}, fmt.Errorf("upserting learned mapping %q: %w", entry.Normalized, err)
	}

	return decodeEntry(stored.Val())
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func decodeEntry(fields map[string]string) (model.LearnedEntry, error) {
	e := model.LearnedEntry{
		Normalized: fields["normalized"],
		SourceText: fields["source_text"],
		Identifier: model.Identifier(fields["identifier"]),
	}
	if e.Normalized == "" || e.Identifier == "" {
		return model.LearnedEntry{}, fmt.Errorf("incomplete learned mapping hash")
	}

	var err error
	if e.Confidence, err = strconv.ParseFloat(fields["confidence"], 64); err != nil {
		return model.LearnedEntry{}, fmt.Errorf("confidence: %w", err)
	}
	if e.UsageCount, err = strconv.ParseInt(fields["usage_count"], 10, 64); err != nil {
		return model.LearnedEntry{}, fmt.Errorf("usage_count: %w", err)
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return model.LearnedEntry{}, fmt.Errorf("created_at: %w", err)
	}
	if e.LastUpdated, err = time.Parse(time.RFC3339Nano, fields["last_updated"]); err != nil {
		return model.LearnedEntry{}, fmt.Errorf("last_updated: %w", err)
	}
	return e, nil
}
