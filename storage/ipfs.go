package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/exampledb/interfaces"
	"github.com/ruteri/exampledb/naming"
)

// IPFSBackend stores examples in the mutable file system (MFS) of an IPFS node,
// using the same directory layout as FileBackend under root.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	root        string
	namer       *naming.Namer
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates a new IPFS storage backend connected to the node API at host:port.
func NewIPFSBackend(host, port, root string, timeout time.Duration, namer *naming.Namer, log *slog.Logger) *IPFSBackend {
	if namer == nil {
		namer = naming.Default
	}

	apiURL := fmt.Sprintf("%s:%s", host, port)
	root = "/" + strings.Trim(root, "/")

	sh := shell.NewShell(apiURL)
	sh.SetTimeout(timeout)

	return &IPFSBackend{
		shell:       sh,
		host:        host,
		port:        port,
		root:        root,
		namer:       namer,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s%s?timeout=%s", apiURL, root, timeout),
	}
}

// Save writes value into MFS, creating parent directories as needed.
func (b *IPFSBackend) Save(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	valuePath := b.getMFSPath(key, value)

	err := b.shell.FilesWrite(ctx, valuePath, bytes.NewReader(value),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return interfaces.NewStoreError("save", valuePath, err)
	}

	b.log.Debug("Stored example in IPFS",
		slog.String("path", valuePath),
		slog.Int("size", len(value)))
	return nil
}

// Fetch lists the key's MFS directory and reads each entry.
func (b *IPFSBackend) Fetch(ctx context.Context, key interfaces.Key) iter.Seq[interfaces.Value] {
	keyDir := b.getKeyDir(key)

	return func(yield func(interfaces.Value) bool) {
		entries, err := b.shell.FilesLs(ctx, keyDir)
		if err != nil {
			if !strings.Contains(err.Error(), "does not exist") {
				b.log.Debug("Failed to list IPFS directory", slog.String("path", keyDir), "err", err)
			}
			return
		}

		for _, entry := range entries {
			if !b.namer.IsName(entry.Name) {
				continue
			}

			valuePath := path.Join(keyDir, entry.Name)
			data, err := b.readFile(ctx, valuePath)
			if err != nil {
				b.log.Debug("Skipping unreadable IPFS entry", slog.String("path", valuePath), "err", err)
				continue
			}
			if b.namer.NameFor(data) != entry.Name {
				b.log.Debug("Skipping IPFS entry with mismatched content hash", slog.String("path", valuePath))
				continue
			}

			if !yield(data) {
				return
			}
		}
	}
}

func (b *IPFSBackend) readFile(ctx context.Context, p string) ([]byte, error) {
	reader, err := b.shell.FilesRead(ctx, p)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

func (b *IPFSBackend) Delete(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	valuePath := b.getMFSPath(key, value)

	if err := b.shell.FilesRm(ctx, valuePath, true); err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil
		}
		return interfaces.NewStoreError("delete", valuePath, err)
	}
	return nil
}

func (b *IPFSBackend) Move(ctx context.Context, src, dest interfaces.Key, value interfaces.Value) error {
	if err := b.Save(ctx, dest, value); err != nil {
		return err
	}
	if src.Equal(dest) {
		return nil
	}
	return b.Delete(ctx, src, value)
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this storage backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

func (b *IPFSBackend) getKeyDir(key interfaces.Key) string {
	prefix, rest := b.namer.Shard(key)
	return path.Join(b.root, prefix, rest)
}

func (b *IPFSBackend) getMFSPath(key interfaces.Key, value interfaces.Value) string {
	return path.Join(b.getKeyDir(key), b.namer.NameFor(value))
}
