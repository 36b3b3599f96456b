package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ruteri/exampledb/interfaces"
	"github.com/ruteri/exampledb/naming"
)

// readDirBatch bounds how many directory entries are held in memory at once
// while fetching.
const readDirBatch = 128

// staleTempAge is how old a temporary file must be before fetch treats it as
// left behind by a crashed writer and removes it.
var staleTempAge = time.Hour

// testHookMoveSaved runs between the two halves of Move.
var testHookMoveSaved = func() {}

// FileOptions tunes a FileBackend.
type FileOptions struct {
	// Namer names key directories and value files. Defaults to naming.Default.
	Namer *naming.Namer

	// NoSync skips fsync of value files before they are renamed into place.
	NoSync bool
}

// FileBackend stores examples in a directory tree:
//
//	root/<key prefix>/<key rest>/<value name>
//
// Every value is written to a temporary file in its key directory and renamed
// into place, so concurrent readers never see partial content. Several
// processes may share the same root without any coordination.
type FileBackend struct {
	baseDir     string
	namer       *naming.Namer
	sync        bool
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file storage backend rooted at baseDir.
// The directory does not need to exist; it is created on the first save.
func NewFileBackend(baseDir string, opts FileOptions, log *slog.Logger) *FileBackend {
	namer := opts.Namer
	if namer == nil {
		namer = naming.Default
	}

	uri := fmt.Sprintf("file://%s", baseDir)
	if namer.Scheme() != naming.SHA256 {
		uri += fmt.Sprintf("?hash=%s", namer.Scheme())
	}

	return &FileBackend{
		baseDir:     baseDir,
		namer:       namer,
		sync:        !opts.NoSync,
		log:         log,
		locationURI: uri,
	}
}

// Save writes value under key unless an identical value is already there.
func (b *FileBackend) Save(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	keyDir := b.keyDir(key)
	if err := os.MkdirAll(keyDir, 0755); err != nil {
		return interfaces.NewStoreError("save", keyDir, fmt.Errorf("failed to create key directory: %w", err))
	}

	name := b.namer.NameFor(value)
	valuePath := filepath.Join(keyDir, name)
	if b.intact(valuePath, name) {
		return nil
	}

	tmpPath := filepath.Join(keyDir, naming.TempName())
	if err := b.writeTemp(tmpPath, value); err != nil {
		os.Remove(tmpPath)
		return interfaces.NewStoreError("save", tmpPath, err)
	}

	if err := os.Rename(tmpPath, valuePath); err != nil {
		os.Remove(tmpPath)
		// Another writer may have put identical bytes in place first.
		if b.intact(valuePath, name) {
			return nil
		}
		return interfaces.NewStoreError("save", valuePath, fmt.Errorf("failed to rename value file: %w", err))
	}

	b.log.Debug("Stored example in file",
		slog.String("path", valuePath),
		slog.Int("size", len(value)))

	return nil
}

// intact reports whether the file at path exists and holds content named name.
// A torn or foreign file is replaced by the next save.
func (b *FileBackend) intact(path, name string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if b.namer.NameFor(data) != name {
		b.log.Debug("Replacing example with mismatched content hash", slog.String("path", path))
		return false
	}
	return true
}

func (b *FileBackend) writeTemp(path string, value []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := f.Write(value); err != nil {
		f.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if b.sync {
		if err := f.Sync(); err != nil {
			f.Close()
			return fmt.Errorf("failed to sync temporary file: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	return nil
}

// Fetch lists the key directory lazily. Entries that disappear, cannot be
// read, or do not hash to their own name are skipped.
func (b *FileBackend) Fetch(ctx context.Context, key interfaces.Key) iter.Seq[interfaces.Value] {
	keyDir := b.keyDir(key)

	return func(yield func(interfaces.Value) bool) {
		dir, err := os.Open(keyDir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				b.log.Debug("Failed to open key directory", slog.String("path", keyDir), "err", err)
			}
			return
		}
		defer dir.Close()

		for {
			entries, err := dir.ReadDir(readDirBatch)
			for _, entry := range entries {
				value, ok := b.readValue(keyDir, entry)
				if !ok {
					continue
				}
				if !yield(value) {
					return
				}
			}

			if err != nil {
				if err != io.EOF {
					b.log.Debug("Failed to list key directory", slog.String("path", keyDir), "err", err)
				}
				return
			}
		}
	}
}

func (b *FileBackend) readValue(keyDir string, entry fs.DirEntry) (interfaces.Value, bool) {
	name := entry.Name()
	if naming.IsTempName(name) {
		b.removeStaleTemp(keyDir, entry)
		return nil, false
	}
	if !b.namer.IsName(name) || entry.IsDir() {
		return nil, false
	}

	valuePath := filepath.Join(keyDir, name)
	data, err := os.ReadFile(valuePath)
	if err != nil {
		b.log.Debug("Skipping unreadable example", slog.String("path", valuePath), "err", err)
		return nil, false
	}

	if b.namer.NameFor(data) != name {
		b.log.Debug("Skipping example with mismatched content hash", slog.String("path", valuePath))
		return nil, false
	}

	return data, true
}

// removeStaleTemp deletes a temporary file nobody has touched for
// staleTempAge. Writers rename their temp file within moments, so an old one
// belongs to a writer that crashed.
func (b *FileBackend) removeStaleTemp(keyDir string, entry fs.DirEntry) {
	info, err := entry.Info()
	if err != nil || info.IsDir() || time.Since(info.ModTime()) < staleTempAge {
		return
	}

	tmpPath := filepath.Join(keyDir, entry.Name())
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		b.log.Debug("Failed to remove stale temporary file", slog.String("path", tmpPath), "err", err)
		return
	}
	b.log.Info("Removed stale temporary file", slog.String("path", tmpPath))
}

// Delete removes the value file. A missing file counts as deleted, and other
// failures are logged rather than returned.
func (b *FileBackend) Delete(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	valuePath := b.valuePath(key, value)

	err := os.Remove(valuePath)
	switch {
	case err == nil:
		b.log.Debug("Deleted example file", slog.String("path", valuePath))
	case errors.Is(err, fs.ErrNotExist):
	default:
		b.log.Warn("Failed to delete example file", slog.String("path", valuePath), "err", err)
	}
	return nil
}

// Move saves value under dest and only then deletes it from src.
func (b *FileBackend) Move(ctx context.Context, src, dest interfaces.Key, value interfaces.Value) error {
	if src.Equal(dest) {
		return b.Save(ctx, dest, value)
	}

	if err := b.Save(ctx, dest, value); err != nil {
		return err
	}
	testHookMoveSaved()

	return b.Delete(ctx, src, value)
}

// Available reports whether the root directory exists or can still be created.
func (b *FileBackend) Available(ctx context.Context) bool {
	info, err := os.Stat(b.baseDir)
	if err == nil {
		return info.IsDir()
	}
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}

	b.log.Debug("File backend unavailable", "err", err)
	return false
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

// keyDir returns the sharded directory holding the values of key.
func (b *FileBackend) keyDir(key interfaces.Key) string {
	prefix, rest := b.namer.Shard(key)
	return filepath.Join(b.baseDir, prefix, rest)
}

// valuePath returns the content-addressed path of value under key.
func (b *FileBackend) valuePath(key interfaces.Key, value interfaces.Value) string {
	return filepath.Join(b.keyDir(key), b.namer.NameFor(value))
}
