package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Scheme selects the digest used to name keys and values.
type Scheme string

const (
	// SHA256 names objects by the hex SHA-256 digest of their bytes.
	SHA256 Scheme = "sha256"

	// BLAKE2b names objects by the hex BLAKE2b-256 digest of their bytes.
	BLAKE2b Scheme = "blake2b"
)

const (
	// NameLength is the length of every encoded name, for both schemes.
	NameLength = 2 * 32

	// PrefixLength is the length of the fan-out directory name.
	PrefixLength = 2

	// tempPrefix starts every temporary file name. Content names are pure hex,
	// so a leading dot never collides with them.
	tempPrefix = ".tmp-"
)

// Namer derives filesystem-safe names from arbitrary byte sequences.
// It is stateless and safe for concurrent use.
type Namer struct {
	scheme  Scheme
	newHash func() hash.Hash
}

// Default is the SHA-256 namer used when no scheme is configured.
var Default = &Namer{scheme: SHA256, newHash: sha256.New}

// New returns the namer for scheme. An empty scheme selects SHA256.
func New(scheme Scheme) (*Namer, error) {
	switch scheme {
	case "", SHA256:
		return Default, nil
	case BLAKE2b:
		return &Namer{scheme: BLAKE2b, newHash: newBlake2b256}, nil
	default:
		return nil, fmt.Errorf("unsupported naming scheme: %q", scheme)
	}
}

func newBlake2b256() hash.Hash {
	// Only fails for keys longer than 64 bytes.
	h, _ := blake2b.New256(nil)
	return h
}

// Scheme returns the digest scheme of n.
func (n *Namer) Scheme() Scheme {
	return n.scheme
}

// NameFor returns the encoded digest of b.
func (n *Namer) NameFor(b []byte) string {
	h := n.newHash()
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}

// Shard splits the encoded name of b into a short directory prefix and the
// remaining leaf name.
func (n *Namer) Shard(b []byte) (prefix, rest string) {
	name := n.NameFor(b)
	return name[:PrefixLength], name[PrefixLength:]
}

// IsName reports whether s has the shape of a name produced by NameFor.
func (n *Namer) IsName(s string) bool {
	if len(s) != NameLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// NameFor returns the SHA-256 name of b.
func NameFor(b []byte) string {
	return Default.NameFor(b)
}

// Shard splits the SHA-256 name of b.
func Shard(b []byte) (prefix, rest string) {
	return Default.Shard(b)
}

// IsTempName reports whether s was produced by TempName.
func IsTempName(s string) bool {
	return strings.HasPrefix(s, tempPrefix)
}

// TempName returns a fresh name for a file that is being written and will be
// renamed into place. Two calls never return the same name.
func TempName() string {
	return tempPrefix + uuid.NewString()
}
