package storage

import (
	"context"
	"io"
	"iter"
	"log/slog"

	"github.com/ruteri/exampledb/interfaces"
)

// ReadOnlyBackend exposes another backend's examples without ever changing
// them. Save, Delete and Move succeed without doing anything, so a test run
// pointed at a shared, read-only store behaves like one with a writable store.
type ReadOnlyBackend struct {
	inner interfaces.ExampleDatabase
	log   *slog.Logger
}

// NewReadOnlyBackend wraps inner.
func NewReadOnlyBackend(inner interfaces.ExampleDatabase, log *slog.Logger) *ReadOnlyBackend {
	return &ReadOnlyBackend{inner: inner, log: log}
}

func (b *ReadOnlyBackend) Save(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	b.log.Debug("Ignoring save on read-only backend", slog.String("backend_name", b.inner.Name()))
	return nil
}

func (b *ReadOnlyBackend) Fetch(ctx context.Context, key interfaces.Key) iter.Seq[interfaces.Value] {
	return b.inner.Fetch(ctx, key)
}

func (b *ReadOnlyBackend) Delete(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	b.log.Debug("Ignoring delete on read-only backend", slog.String("backend_name", b.inner.Name()))
	return nil
}

func (b *ReadOnlyBackend) Move(ctx context.Context, src, dest interfaces.Key, value interfaces.Value) error {
	b.log.Debug("Ignoring move on read-only backend", slog.String("backend_name", b.inner.Name()))
	return nil
}

func (b *ReadOnlyBackend) Available(ctx context.Context) bool {
	return b.inner.Available(ctx)
}

func (b *ReadOnlyBackend) Name() string {
	return "readonly-" + b.inner.Name()
}

func (b *ReadOnlyBackend) LocationURI() string {
	return "readonly:" + b.inner.LocationURI()
}

// Close closes the wrapped backend if it holds resources.
func (b *ReadOnlyBackend) Close() error {
	if closer, ok := b.inner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
