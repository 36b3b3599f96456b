package interfaces

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strings"
)

// StorageBackendLocation represents URI for storage backend.
type StorageBackendLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info, percent-encoded as in the URI

	// Username and Password are the decoded userinfo parts.
	Username string
	Password string
}

// NewStorageBackendLocation creates a new storage location from a URI string with validation.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "file", "memory", "leveldb", "s3", "ipfs", "vault", "github", "http", "https", "srv":
		// Valid scheme
	case "":
		return StorageBackendLocation{}, fmt.Errorf("%w: missing scheme in %q", ErrInvalidLocationURI, uri)
	default:
		return StorageBackendLocation{}, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}

	var auth, username, password string
	if parsed.User != nil {
		auth = parsed.User.String()
		username = parsed.User.Username()
		password, _ = parsed.User.Password()
	}

	return StorageBackendLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,

		Username: username,
		Password: password,
	}, nil
}

// String returns the original URI string.
func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

// IsFile checks if this is a file system storage location.
func (loc StorageBackendLocation) IsFile() bool {
	return loc.Scheme == "file"
}

// IsRemote checks if this location points at another exampledb server.
func (loc StorageBackendLocation) IsRemote() bool {
	return loc.Scheme == "http" || loc.Scheme == "https"
}

// GetParam returns a query parameter value.
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StorageBackendLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

var (
	// ErrIO is the only error kind store operations surface. It covers full
	// disks, denied permissions, unreachable services and similar failures.
	ErrIO = errors.New("storage I/O failure")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")

	// ErrUnsupportedScheme is returned for a well-formed URI whose scheme has no backend.
	ErrUnsupportedScheme = errors.New("unsupported storage scheme")
)

// StoreError describes a failed store operation. It matches ErrIO as well as
// the underlying cause under errors.Is and errors.As.
type StoreError struct {
	// Op is the operation that failed, e.g. "save".
	Op string

	// Path locates the failing object inside the backend, if known.
	Path string

	// Err is the underlying error.
	Err error
}

// Error returns a message including the operation and path.
func (e *StoreError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrIO and the cause.
func (e *StoreError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// NewStoreError wraps err as a StoreError, or returns nil if err is nil.
func NewStoreError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Path: path, Err: err}
}

// ExampleDatabase is a key to multi-value store of serialized examples.
// Values under a key form a set: saving a value twice stores it once.
//
// Save and Move may fail with an error matching ErrIO. Fetch never fails:
// anything it cannot read is treated as absent. Delete of an absent value
// succeeds.
type ExampleDatabase interface {
	// Save ensures value is a member of the key's set.
	Save(ctx context.Context, key Key, value Value) error

	// Fetch returns every value currently stored under key, in no particular order.
	// The sequence is lazy and can be ranged over more than once.
	Fetch(ctx context.Context, key Key) iter.Seq[Value]

	// Delete removes value from the key's set if it is present.
	Delete(ctx context.Context, key Key, value Value) error

	// Move relocates value from src to dest. It saves under dest before
	// deleting from src, so an interrupted move leaves a duplicate rather
	// than losing the value.
	Move(ctx context.Context, src, dest Key, value Value) error

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// StorageBackendFactory creates storage backends.
type StorageBackendFactory interface {
	// StorageBackendFor creates backend from URI.
	// Supports file://, memory://, leveldb://, s3://, ipfs://, vault://, github://,
	// http(s):// and srv://
	StorageBackendFor(locationURI StorageBackendLocation) (ExampleDatabase, error)

	// CreateMultiBackend creates aggregated storage backend.
	CreateMultiBackend(locationURIs []StorageBackendLocation) (ExampleDatabase, error)

	// WithTLSAuth configures TLS client authentication.
	WithTLSAuth(func() (tls.Certificate, error)) StorageBackendFactory
}
