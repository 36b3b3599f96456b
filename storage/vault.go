package storage

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/exampledb/interfaces"
	"github.com/ruteri/exampledb/naming"
)

// VaultBackend stores examples in a HashiCorp Vault KV v2 engine, one secret per
// value at {dataPath}/{key prefix}/{key rest}/{value name} with the bytes in a
// base64 "value" field. Authentication uses VAULT_TOKEN from the environment
// and, when configured, a TLS client certificate.
type VaultBackend struct {
	client      *api.Client
	kv          *api.KVv2
	mountPath   string
	dataPath    string
	namer       *naming.Namer
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a new Vault storage backend.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: Path within the mount (e.g. "exampledb")
//   - clientCert: optional TLS client certificate, nil to skip TLS auth
//   - log: Structured logger for operational insights
func NewVaultBackend(address, mountPath, dataPath string, clientCert *tls.Certificate, namer *naming.Namer, log *slog.Logger) (*VaultBackend, error) {
	if namer == nil {
		namer = naming.Default
	}

	config := api.DefaultConfig()
	config.Address = address

	if clientCert != nil {
		config.HttpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					Certificates: []tls.Certificate{*clientCert},
				},
			},
			Timeout: 30 * time.Second,
		}
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	mountPath = strings.Trim(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultBackend{
		client:      client,
		kv:          client.KVv2(mountPath),
		mountPath:   mountPath,
		dataPath:    dataPath,
		namer:       namer,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://"), mountPath, dataPath),
	}, nil
}

func (b *VaultBackend) Save(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	secretPath := b.getSecretPath(key, value)

	_, err := b.kv.Put(ctx, secretPath, map[string]interface{}{
		"value": base64.StdEncoding.EncodeToString(value),
	})
	if err != nil {
		return interfaces.NewStoreError("save", secretPath, err)
	}

	b.log.Debug("Stored example in Vault", slog.String("path", secretPath))
	return nil
}

// Fetch lists the key's metadata directory and reads each secret.
func (b *VaultBackend) Fetch(ctx context.Context, key interfaces.Key) iter.Seq[interfaces.Value] {
	keyDir := b.getKeyDir(key)

	return func(yield func(interfaces.Value) bool) {
		listing, err := b.client.Logical().ListWithContext(ctx, fmt.Sprintf("%s/metadata/%s", b.mountPath, keyDir))
		if err != nil {
			b.log.Debug("Failed to list Vault path", slog.String("path", keyDir), "err", err)
			return
		}
		if listing == nil || listing.Data == nil {
			return
		}

		names, _ := listing.Data["keys"].([]interface{})
		for _, raw := range names {
			name, ok := raw.(string)
			if !ok || !b.namer.IsName(name) {
				continue
			}

			secretPath := path.Join(keyDir, name)
			data, err := b.readValue(ctx, secretPath)
			if err != nil {
				b.log.Debug("Skipping unreadable Vault secret", slog.String("path", secretPath), "err", err)
				continue
			}
			if b.namer.NameFor(data) != name {
				b.log.Debug("Skipping Vault secret with mismatched content hash", slog.String("path", secretPath))
				continue
			}

			if !yield(data) {
				return
			}
		}
	}
}

func (b *VaultBackend) readValue(ctx context.Context, secretPath string) ([]byte, error) {
	secret, err := b.kv.Get(ctx, secretPath)
	if err != nil {
		return nil, err
	}

	encoded, ok := secret.Data["value"].(string)
	if !ok {
		return nil, errors.New("value field missing in Vault secret")
	}
	return base64.StdEncoding.DecodeString(encoded)
}

// Delete removes every version of the value's secret.
func (b *VaultBackend) Delete(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	secretPath := b.getSecretPath(key, value)

	if err := b.kv.DeleteMetadata(ctx, secretPath); err != nil {
		var respErr *api.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil
		}
		return interfaces.NewStoreError("delete", secretPath, err)
	}
	return nil
}

func (b *VaultBackend) Move(ctx context.Context, src, dest interfaces.Key, value interfaces.Value) error {
	if err := b.Save(ctx, dest, value); err != nil {
		return err
	}
	if src.Equal(dest) {
		return nil
	}
	return b.Delete(ctx, src, value)
}

// Available checks if the Vault backend is accessible.
// It uses the health endpoint to verify that Vault is initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, b.dataPath)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}

func (b *VaultBackend) getKeyDir(key interfaces.Key) string {
	prefix, rest := b.namer.Shard(key)
	return path.Join(b.dataPath, prefix, rest)
}

func (b *VaultBackend) getSecretPath(key interfaces.Key, value interfaces.Value) string {
	return path.Join(b.getKeyDir(key), b.namer.NameFor(value))
}
