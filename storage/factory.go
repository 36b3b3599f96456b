package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ruteri/exampledb/api/clients"
	"github.com/ruteri/exampledb/discovery"
	"github.com/ruteri/exampledb/interfaces"
	"github.com/ruteri/exampledb/naming"
)

// StorageBackendFactory creates storage backends from URI strings and manages
// multi-backend configurations for redundant storage.
type StorageBackendFactory struct {
	log     *slog.Logger
	tlsAuth func() (tls.Certificate, error)
}

// NewStorageBackendFactory creates a new factory instance that can create storage backends.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{
		log: logger,
	}
}

// WithTLSAuth returns a copy of the factory that presents the given client
// certificate to backends supporting TLS client authentication (vault).
func (sf *StorageBackendFactory) WithTLSAuth(getCert func() (tls.Certificate, error)) interfaces.StorageBackendFactory {
	return &StorageBackendFactory{
		log:     sf.log,
		tlsAuth: getCert,
	}
}

// StorageBackendFor creates a storage backend from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local directory tree
//   - memory:// - Process-local map, for tests
//   - leveldb:// - LevelDB database directory
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS mutable file system
//   - vault:// - HashiCorp Vault KV v2
//   - github:// - Read-only storage using GitHub's contents and blob APIs
//   - http://, https:// - Remote exampledb server
//   - srv:// - Remote exampledb servers discovered through DNS SRV records
//
// Every scheme accepts readonly=true, and the content-addressed ones accept
// hash=sha256|blake2b.
func (sf *StorageBackendFactory) StorageBackendFor(location interfaces.StorageBackendLocation) (interfaces.ExampleDatabase, error) {
	backend, err := sf.createBackend(location)
	if err != nil {
		return nil, err
	}

	if location.GetParamBool("readonly") {
		return NewReadOnlyBackend(backend, sf.log), nil
	}
	return backend, nil
}

func (sf *StorageBackendFactory) createBackend(location interfaces.StorageBackendLocation) (interfaces.ExampleDatabase, error) {
	sf.log.Debug("Creating storage backend",
		slog.String("scheme", location.Scheme),
		slog.String("host", location.Host))

	switch location.Scheme {
	case "file":
		return sf.createFileBackend(location)
	case "memory":
		return NewMemoryBackend(), nil
	case "leveldb":
		return sf.createLevelDBBackend(location)
	case "s3":
		return sf.createS3Backend(location)
	case "ipfs":
		return sf.createIPFSBackend(location)
	case "vault":
		return sf.createVaultBackend(location)
	case "github":
		return sf.createGitHubBackend(location)
	case "http", "https":
		return clients.NewStoreClient(location.Scheme+"://"+location.Host+location.Path, sf.log, sf.timeout(location)), nil
	case "srv":
		return sf.createSRVBackend(location)
	default:
		return nil, fmt.Errorf("%w: %s", interfaces.ErrUnsupportedScheme, location.Scheme)
	}
}

// CreateMultiBackend creates a multi-storage backend from a list of location URIs.
// Locations that fail to configure are logged and skipped. Returns an error if
// no backend could be created.
func (sf *StorageBackendFactory) CreateMultiBackend(locations []interfaces.StorageBackendLocation) (interfaces.ExampleDatabase, error) {
	backends := make([]interfaces.ExampleDatabase, 0, len(locations))

	for _, location := range locations {
		backend, err := sf.StorageBackendFor(location)
		if err != nil {
			sf.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("locationURI", location.String()))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created")
	}

	return NewMultiStorageBackend(backends, sf.log), nil
}

func (sf *StorageBackendFactory) namer(location interfaces.StorageBackendLocation) (*naming.Namer, error) {
	namer, err := naming.New(naming.Scheme(location.GetParam("hash")))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}
	return namer, nil
}

func (sf *StorageBackendFactory) timeout(location interfaces.StorageBackendLocation) time.Duration {
	if raw := location.GetParam("timeout"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
		sf.log.Warn("Ignoring invalid timeout", slog.String("timeout", raw))
	}
	return 30 * time.Second
}

// localPath joins host and path so that both file:///abs/dir and
// file://./rel/dir work.
func localPath(location interfaces.StorageBackendLocation) string {
	if location.Host == "" {
		return location.Path
	}
	return location.Host + "/" + strings.TrimPrefix(location.Path, "/")
}

// createFileBackend creates a directory tree backend.
// URI format: file:///absolute/path?fsync=false&hash=blake2b or file://./relative/path
func (sf *StorageBackendFactory) createFileBackend(location interfaces.StorageBackendLocation) (interfaces.ExampleDatabase, error) {
	dir := localPath(location)
	if dir == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, location)
	}

	namer, err := sf.namer(location)
	if err != nil {
		return nil, err
	}

	return NewFileBackend(dir, FileOptions{
		Namer:  namer,
		NoSync: location.GetParam("fsync") == "false",
	}, sf.log), nil
}

// createLevelDBBackend opens a LevelDB database.
// URI format: leveldb:///var/lib/exampledb.ldb
func (sf *StorageBackendFactory) createLevelDBBackend(location interfaces.StorageBackendLocation) (interfaces.ExampleDatabase, error) {
	dir := localPath(location)
	if dir == "" {
		return nil, fmt.Errorf("%w: empty path in leveldb URI: %s", interfaces.ErrInvalidLocationURI, location)
	}

	namer, err := sf.namer(location)
	if err != nil {
		return nil, err
	}

	return NewLevelDBBackend(dir, namer, sf.log)
}

// createS3Backend creates an S3 or S3-compatible storage backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=custom.s3.com&path_style=true
// The backend supports both public buckets (read-only) and authenticated access.
func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.ExampleDatabase, error) {
	if location.Host == "" {
		return nil, fmt.Errorf("%w: missing bucket in S3 URI", interfaces.ErrInvalidLocationURI)
	}

	namer, err := sf.namer(location)
	if err != nil {
		return nil, err
	}

	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}

	cfg := S3Config{
		BucketName: location.Host,
		Prefix:     strings.TrimPrefix(location.Path, "/"),
		Region:     region,
		Endpoint:   location.GetParam("endpoint"),
		PathStyle:  location.GetParamBool("path_style"),
	}

	if location.Username != "" {
		// Extract credentials from URI (less secure)
		cfg.AccessKey = location.Username
		cfg.SecretKey = location.Password
		sf.log.Debug("Using embedded credentials for write access")
	} else {
		cfg.AccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		cfg.SecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}

	return NewS3Backend(cfg, namer, sf.log)
}

// createIPFSBackend creates an IPFS MFS storage backend.
// URI format: ipfs://host:port/root?timeout=30s
func (sf *StorageBackendFactory) createIPFSBackend(location interfaces.StorageBackendLocation) (interfaces.ExampleDatabase, error) {
	namer, err := sf.namer(location)
	if err != nil {
		return nil, err
	}

	host, port, found := strings.Cut(location.Host, ":")
	if host == "" {
		host = "localhost"
	}
	if !found || port == "" {
		port = "5001" // Default IPFS API port
	}

	root := location.Path
	if strings.Trim(root, "/") == "" {
		root = "/exampledb"
	}

	return NewIPFSBackend(host, port, root, sf.timeout(location), namer, sf.log), nil
}

// createVaultBackend creates a Vault KV v2 backend.
// URI format: vault://host:port/mount/path?tls=false
// The first path segment is the KV mount, the rest is the data path.
func (sf *StorageBackendFactory) createVaultBackend(location interfaces.StorageBackendLocation) (interfaces.ExampleDatabase, error) {
	namer, err := sf.namer(location)
	if err != nil {
		return nil, err
	}

	mount, dataPath, _ := strings.Cut(strings.Trim(location.Path, "/"), "/")
	if mount == "" {
		return nil, fmt.Errorf("%w: missing KV mount in vault URI", interfaces.ErrInvalidLocationURI)
	}
	if dataPath == "" {
		dataPath = "exampledb"
	}

	scheme := "https"
	if location.GetParam("tls") == "false" {
		scheme = "http"
	}

	var clientCert *tls.Certificate
	if sf.tlsAuth != nil && scheme == "https" {
		cert, err := sf.tlsAuth()
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS client certificate: %w", err)
		}
		clientCert = &cert
	}

	return NewVaultBackend(scheme+"://"+location.Host, mount, dataPath, clientCert, namer, sf.log)
}

// createGitHubBackend creates a read-only GitHub storage backend.
// URI format: github://owner/repo/path/to/store?ref=main
// GITHUB_TOKEN is used for authentication when set.
func (sf *StorageBackendFactory) createGitHubBackend(location interfaces.StorageBackendLocation) (interfaces.ExampleDatabase, error) {
	namer, err := sf.namer(location)
	if err != nil {
		return nil, err
	}

	owner := location.Host
	repo, root, _ := strings.Cut(strings.Trim(location.Path, "/"), "/")
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("%w: invalid GitHub URI format, expected github://owner/repo[/path]", interfaces.ErrInvalidLocationURI)
	}

	return NewGitHubBackend(owner, repo, root, location.GetParam("ref"), os.Getenv("GITHUB_TOKEN"), namer, sf.log), nil
}

// createSRVBackend resolves the SRV name in the host part and combines a
// client for every target.
// URI format: srv://_exampledb._tcp.ci.internal?resolver=10.0.0.2:53&scheme=https
func (sf *StorageBackendFactory) createSRVBackend(location interfaces.StorageBackendLocation) (interfaces.ExampleDatabase, error) {
	if location.Host == "" {
		return nil, fmt.Errorf("%w: missing SRV name", interfaces.ErrInvalidLocationURI)
	}

	scheme := location.GetParam("scheme")
	if scheme == "" {
		scheme = "http"
	}

	timeout := sf.timeout(location)
	resolver := discovery.NewResolver(location.GetParam("resolver"), 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	targets, err := resolver.LookupSRV(ctx, location.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to discover servers: %w", err)
	}

	backends := make([]interfaces.ExampleDatabase, 0, len(targets))
	for _, target := range targets {
		sf.log.Debug("Discovered server",
			slog.String("srv", location.Host),
			slog.String("addr", target.Addr()))
		backends = append(backends, clients.NewStoreClient(target.URL(scheme), sf.log, timeout))
	}

	return NewMultiStorageBackend(backends, sf.log), nil
}
