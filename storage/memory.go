package storage

import (
	"context"
	"iter"
	"sync"

	"github.com/ruteri/exampledb/interfaces"
)

// MemoryBackend keeps examples in process memory. Nothing survives the process;
// it serves tests and ephemeral runs.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]map[string]struct{}
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string]map[string]struct{}, 64),
	}
}

func (b *MemoryBackend) Save(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, ok := b.data[string(key)]
	if !ok {
		values = make(map[string]struct{})
		b.data[string(key)] = values
	}
	values[string(value)] = struct{}{}
	return nil
}

// Fetch iterates over a snapshot of the values taken when ranging starts.
func (b *MemoryBackend) Fetch(ctx context.Context, key interfaces.Key) iter.Seq[interfaces.Value] {
	k := string(key)
	return func(yield func(interfaces.Value) bool) {
		b.mu.RLock()
		snapshot := make([]string, 0, len(b.data[k]))
		for v := range b.data[k] {
			snapshot = append(snapshot, v)
		}
		b.mu.RUnlock()

		for _, v := range snapshot {
			if !yield(interfaces.Value(v)) {
				return
			}
		}
	}
}

func (b *MemoryBackend) Delete(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if values, ok := b.data[string(key)]; ok {
		delete(values, string(value))
	}
	return nil
}

func (b *MemoryBackend) Move(ctx context.Context, src, dest interfaces.Key, value interfaces.Value) error {
	if err := b.Save(ctx, dest, value); err != nil {
		return err
	}
	if src.Equal(dest) {
		return nil
	}
	return b.Delete(ctx, src, value)
}

func (b *MemoryBackend) Available(ctx context.Context) bool {
	return true
}

func (b *MemoryBackend) Name() string {
	return "memory"
}

func (b *MemoryBackend) LocationURI() string {
	return "memory://"
}
