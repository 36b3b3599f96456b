package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/exampledb/interfaces"
)

// MultiStorageBackend implements interfaces.ExampleDatabase over several backends.
// Writes fan out to every available backend; fetches merge all backends and
// drop byte-identical duplicates.
type MultiStorageBackend struct {
	backends []interfaces.ExampleDatabase
	log      *slog.Logger
}

// NewMultiStorageBackend creates a new multi-storage backend.
func NewMultiStorageBackend(backends []interfaces.ExampleDatabase, logger *slog.Logger) *MultiStorageBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStorageBackend{
		backends: backends,
		log:      logger,
	}
}

// Fetch yields each distinct value found in any available backend.
func (m *MultiStorageBackend) Fetch(ctx context.Context, key interfaces.Key) iter.Seq[interfaces.Value] {
	return func(yield func(interfaces.Value) bool) {
		seen := make(map[string]struct{})
		for _, backend := range m.backends {
			if !backend.Available(ctx) {
				m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
				continue
			}

			for value := range backend.Fetch(ctx, key) {
				if _, dup := seen[string(value)]; dup {
					continue
				}
				seen[string(value)] = struct{}{}
				if !yield(value) {
					return
				}
			}
		}
	}
}

// Save stores value in all available backends. It fails only if no backend
// accepted the value.
func (m *MultiStorageBackend) Save(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	return m.fanOut(ctx, "save", func(backend interfaces.ExampleDatabase) error {
		return backend.Save(ctx, key, value)
	})
}

// Delete removes value from all available backends.
func (m *MultiStorageBackend) Delete(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	return m.fanOut(ctx, "delete", func(backend interfaces.ExampleDatabase) error {
		return backend.Delete(ctx, key, value)
	})
}

// Move moves value in all available backends. Each backend saves before it deletes.
func (m *MultiStorageBackend) Move(ctx context.Context, src, dest interfaces.Key, value interfaces.Value) error {
	return m.fanOut(ctx, "move", func(backend interfaces.ExampleDatabase) error {
		return backend.Move(ctx, src, dest, value)
	})
}

func (m *MultiStorageBackend) fanOut(ctx context.Context, op string, fn func(interfaces.ExampleDatabase) error) error {
	start := time.Now()
	var success bool
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("op", op))
			continue
		}

		if err := fn(backend); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Debug("Backend operation failed",
				slog.String("backend_name", backend.Name()),
				slog.String("op", op),
				"err", err)
			continue
		}
		success = true
	}

	if !success {
		m.log.Error("All backends failed",
			slog.String("op", op),
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		if len(errs) == 0 {
			errs = append(errs, errors.New("no backend available"))
		}
		return interfaces.NewStoreError(op, "", errors.Join(errs...))
	}

	if len(errs) > 0 {
		m.log.Warn("Some backends failed",
			slog.String("op", op),
			slog.Int("failed_backends", len(errs)),
			"err", errors.Join(errs...))
	}

	return nil
}

// Available checks if any backend is available
func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend
func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

// LocationURI returns the URI of this backend
func (m *MultiStorageBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}

// Close closes every backend that holds resources.
func (m *MultiStorageBackend) Close() error {
	var errs []error
	for _, backend := range m.backends {
		if closer, ok := backend.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
