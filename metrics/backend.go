package metrics

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/ruteri/exampledb/interfaces"
)

// InstrumentedBackend records metrics for every call to the wrapped backend.
type InstrumentedBackend struct {
	inner   interfaces.ExampleDatabase
	metrics *MetricsServer
}

// Instrument wraps db.
func (m *MetricsServer) Instrument(db interfaces.ExampleDatabase) *InstrumentedBackend {
	return &InstrumentedBackend{inner: db, metrics: m}
}

func (b *InstrumentedBackend) Save(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	start := time.Now()
	err := b.inner.Save(ctx, key, value)
	b.metrics.observe(b.inner.Name(), "save", start, err)
	return err
}

// Fetch observes each full or partial pass over the sequence as one operation.
func (b *InstrumentedBackend) Fetch(ctx context.Context, key interfaces.Key) iter.Seq[interfaces.Value] {
	values := b.inner.Fetch(ctx, key)
	return func(yield func(interfaces.Value) bool) {
		start := time.Now()
		var n int
		defer func() {
			b.metrics.observe(b.inner.Name(), "fetch", start, nil)
			b.metrics.valuesFetched.WithLabelValues(b.inner.Name()).Add(float64(n))
		}()

		for v := range values {
			n++
			if !yield(v) {
				return
			}
		}
	}
}

func (b *InstrumentedBackend) Delete(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	start := time.Now()
	err := b.inner.Delete(ctx, key, value)
	b.metrics.observe(b.inner.Name(), "delete", start, err)
	return err
}

func (b *InstrumentedBackend) Move(ctx context.Context, src, dest interfaces.Key, value interfaces.Value) error {
	start := time.Now()
	err := b.inner.Move(ctx, src, dest, value)
	b.metrics.observe(b.inner.Name(), "move", start, err)
	return err
}

func (b *InstrumentedBackend) Available(ctx context.Context) bool {
	return b.inner.Available(ctx)
}

func (b *InstrumentedBackend) Name() string {
	return b.inner.Name()
}

func (b *InstrumentedBackend) LocationURI() string {
	return b.inner.LocationURI()
}

// Close closes the wrapped backend if it holds resources.
func (b *InstrumentedBackend) Close() error {
	if closer, ok := b.inner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
