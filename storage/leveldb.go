package storage

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/ruteri/exampledb/interfaces"
	"github.com/ruteri/exampledb/naming"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBBackend stores examples in a LevelDB database, one record per value:
//
//	<key name>/<value name> -> value bytes
//
// LevelDB holds an exclusive lock on its directory, so unlike FileBackend a
// LevelDB store belongs to a single process at a time.
type LevelDBBackend struct {
	db          *leveldb.DB
	path        string
	namer       *naming.Namer
	log         *slog.Logger
	locationURI string
}

// NewLevelDBBackend opens or creates the database at path.
func NewLevelDBBackend(path string, namer *naming.Namer, log *slog.Logger) (*LevelDBBackend, error) {
	if namer == nil {
		namer = naming.Default
	}

	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}

	return &LevelDBBackend{
		db:          db,
		path:        path,
		namer:       namer,
		log:         log,
		locationURI: fmt.Sprintf("leveldb://%s", path),
	}, nil
}

func (b *LevelDBBackend) Save(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	record := b.recordKey(key, value)
	if err := b.db.Put(record, value, &opt.WriteOptions{Sync: true}); err != nil {
		return interfaces.NewStoreError("save", string(record), err)
	}

	b.log.Debug("Stored example in leveldb",
		slog.String("record", string(record)),
		slog.Int("size", len(value)))
	return nil
}

// Fetch iterates over the key's records in a consistent snapshot.
func (b *LevelDBBackend) Fetch(ctx context.Context, key interfaces.Key) iter.Seq[interfaces.Value] {
	prefix := []byte(b.namer.NameFor(key) + "/")

	return func(yield func(interfaces.Value) bool) {
		it := b.db.NewIterator(util.BytesPrefix(prefix), nil)
		defer it.Release()

		for it.Next() {
			value := interfaces.Value(it.Value()).Clone()
			if b.namer.NameFor(value) != string(it.Key()[len(prefix):]) {
				b.log.Debug("Skipping example with mismatched content hash", slog.String("record", string(it.Key())))
				continue
			}
			if !yield(value) {
				return
			}
		}

		if err := it.Error(); err != nil {
			b.log.Debug("LevelDB iteration stopped early", "err", err)
		}
	}
}

func (b *LevelDBBackend) Delete(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	record := b.recordKey(key, value)
	if err := b.db.Delete(record, &opt.WriteOptions{Sync: true}); err != nil {
		b.log.Warn("Failed to delete example record", slog.String("record", string(record)), "err", err)
	}
	return nil
}

// Move writes the dest record and deletes the src record in one batch.
func (b *LevelDBBackend) Move(ctx context.Context, src, dest interfaces.Key, value interfaces.Value) error {
	batch := new(leveldb.Batch)
	batch.Put(b.recordKey(dest, value), value)
	if !src.Equal(dest) {
		batch.Delete(b.recordKey(src, value))
	}

	if err := b.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return interfaces.NewStoreError("move", b.path, err)
	}
	return nil
}

func (b *LevelDBBackend) Available(ctx context.Context) bool {
	_, err := b.db.GetProperty("leveldb.stats")
	return err == nil
}

func (b *LevelDBBackend) Name() string {
	return fmt.Sprintf("leveldb-%s", b.path)
}

func (b *LevelDBBackend) LocationURI() string {
	return b.locationURI
}

// Close releases the database lock.
func (b *LevelDBBackend) Close() error {
	return b.db.Close()
}

func (b *LevelDBBackend) recordKey(key interfaces.Key, value interfaces.Value) []byte {
	return []byte(b.namer.NameFor(key) + "/" + b.namer.NameFor(value))
}
