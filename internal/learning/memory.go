package learning

import (
	"context"
	"sort"
	"sync"

	"github.com/clinical-rosetta/internal/model"
)

// MemoryBackend keeps learned entries for the lifetime of the process
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]model.LearnedEntry
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend(seed ...model.LearnedEntry) *MemoryBackend {
	b := &MemoryBackend{entries: make(map[string]model.LearnedEntry, len(seed))}
	for _, e := range seed {
		b.entries[e.Normalized] = e
	}
	return b
}

func (b *MemoryBackend) LoadAll(ctx context.Context) ([]model.LearnedEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]model.LearnedEntry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Normalized < out[j].Normalized })
	return out, nil
}

func (b *MemoryBackend) Upsert(ctx context.Context, entry model.LearnedEntry) (model.LearnedEntry, error) {
	if err := ctx.Err(); err != nil {
		return model.LearnedEntry{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.entries[entry.Normalized]; ok {
		entry.CreatedAt = existing.CreatedAt
		entry.UsageCount = existing.UsageCount + 1
	} else {
		entry.UsageCount = 1
	}
	b.entries[entry.Normalized] = entry
	return entry, nil
}

func (b *MemoryBackend) Close() error {
	return nil
}
