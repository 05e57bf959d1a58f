// Package learning holds user-confirmed resolutions. Confirmed entries take
// precedence over every other match for the same normalized text.
package learning

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/clinical-rosetta/internal/model"
	"github.com/clinical-rosetta/internal/normalize"
)

const lockStripes = 64

// Backend is durable storage for learned entries.
//
// Upsert must be atomic per normalized key: a new key is inserted with usage
// count 1, an existing key takes the incoming identifier, source text and
// timestamp and has its usage count incremented. It returns the stored entry.
type Backend interface {
	LoadAll(ctx context.Context) ([]model.LearnedEntry, error)
	Upsert(ctx context.Context, entry model.LearnedEntry) (model.LearnedEntry, error)
	Close() error
}

// Store serves learned entries from memory and writes confirmations through
// to a Backend. Lookups never block and never touch the backend. Confirmations
// on the same normalized text are serialized; different texts proceed in parallel
// unless they share a lock stripe.
type Store struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time

	entries sync.Map // normalized text -> model.LearnedEntry
	count   atomic.Int64
	locks   [lockStripes]sync.Mutex
}

// NewStore loads every entry from backend into memory
func NewStore(ctx context.Context, backend Backend, logger *zap.Logger) (*Store, error) {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		backend: backend,
		logger:  logger.Named("learning"),
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}

	entries, err := backend.LoadAll(ctx)
	if err != nil {
		return nil, model.Unavailable("loading learned mappings", err)
	}
	for _, e := range entries {
		if _, loaded := s.entries.LoadOrStore(e.Normalized, e); !loaded {
			s.count.Add(1)
		}
	}

	s.logger.Info("learned mappings loaded", zap.Int("entries", len(entries)))
	return s, nil
}

// Lookup returns the learned entry for a normalized text
func (s *Store) Lookup(t normalize.Text) (model.LearnedEntry, bool) {
	if t.IsEmpty() {
		return model.LearnedEntry{}, false
	}
	v, ok := s.entries.Load(string(t))
	if !ok {
		return model.LearnedEntry{}, false
	}
	return v.(model.LearnedEntry), true
}

// Confirm records that sourceText resolves to id. The caller validates id.
// Repeated confirmation of the same text keeps a single entry and bumps its
// usage count. When the backend fails the in-memory view is left unchanged.
func (s *Store) Confirm(ctx context.Context, sourceText string, id model.Identifier) (model.LearnedEntry, error) {
	key := normalize.Normalize(sourceText)
	if key.IsEmpty() {
		return model.LearnedEntry{}, fmt.Errorf("confirm %q: %w", sourceText, model.ErrEmptyInput)
	}

	mu := s.lockFor(string(key))
	mu.Lock()
	defer mu.Unlock()

	now := s.now()
	incoming := model.LearnedEntry{
		Normalized:  string(key),
		SourceText:  sourceText,
		Identifier:  id,
		Confidence:  1.0,
		UsageCount:  1,
		CreatedAt:   now,
		LastUpdated: now,
	}

	stored, err := s.backend.Upsert(ctx, incoming)
	if err != nil {
		s.logger.Warn("learned mapping upsert failed",
			zap.String("normalized", incoming.Normalized),
			zap.String("identifier", string(id)),
			zap.Error(err))
		return model.LearnedEntry{}, model.Unavailable("confirming learned mapping", err)
	}

	if _, existed := s.entries.Swap(stored.Normalized, stored); !existed {
		s.count.Add(1)
	}

	s.logger.Debug("learned mapping confirmed",
		zap.String("normalized", stored.Normalized),
		zap.String("identifier", string(stored.Identifier)),
		zap.Int64("usage_count", stored.UsageCount))

	return stored, nil
}

// Len returns the number of learned entries
func (s *Store) Len() int {
	return int(s.count.Load())
}

// Close releases the backend
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &s.locks[h.Sum32()%lockStripes]
}
