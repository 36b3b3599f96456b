package storage

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"slices"

	"github.com/ruteri/exampledb/interfaces"
)

// Database is the handle a test engine holds. It wraps exactly one backend and
// treats persistence as best effort: failed writes are logged before they are
// returned, so callers can ignore the error and keep testing.
type Database struct {
	backend interfaces.ExampleDatabase
	log     *slog.Logger
}

// NewDatabase wraps backend.
func NewDatabase(backend interfaces.ExampleDatabase, log *slog.Logger) *Database {
	return &Database{backend: backend, log: log}
}

// Backend returns the wrapped backend.
func (d *Database) Backend() interfaces.ExampleDatabase {
	return d.backend
}

// Save stores value under key.
func (d *Database) Save(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	err := d.backend.Save(ctx, key, value)
	if err != nil {
		d.log.Error("Failed to save example",
			slog.String("backend_name", d.backend.Name()),
			slog.String("key", key.String()),
			"err", err)
	}
	return err
}

// Fetch returns the lazy sequence of values stored under key.
func (d *Database) Fetch(ctx context.Context, key interfaces.Key) iter.Seq[interfaces.Value] {
	return d.backend.Fetch(ctx, key)
}

// FetchAll collects every value stored under key.
func (d *Database) FetchAll(ctx context.Context, key interfaces.Key) []interfaces.Value {
	return slices.Collect(d.backend.Fetch(ctx, key))
}

// Delete removes value from key.
func (d *Database) Delete(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	err := d.backend.Delete(ctx, key, value)
	if err != nil {
		d.log.Warn("Failed to delete example",
			slog.String("backend_name", d.backend.Name()),
			slog.String("key", key.String()),
			"err", err)
	}
	return err
}

// Move relocates value from src to dest.
func (d *Database) Move(ctx context.Context, src, dest interfaces.Key, value interfaces.Value) error {
	err := d.backend.Move(ctx, src, dest, value)
	if err != nil {
		d.log.Error("Failed to move example",
			slog.String("backend_name", d.backend.Name()),
			slog.String("src", src.String()),
			slog.String("dest", dest.String()),
			"err", err)
	}
	return err
}

// Close releases backend resources, if the backend holds any.
func (d *Database) Close() error {
	if closer, ok := d.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
