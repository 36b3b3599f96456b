package interfaces

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Key identifies a logical group of stored examples, for instance
// "failing examples for test X". Keys are opaque: the store only hashes
// and compares them.
type Key []byte

// NewKeyFromHex decodes a key from its lowercase or uppercase hex form.
// An optional 0x prefix is accepted; "0x" alone is the empty key.
func NewKeyFromHex(source string) (Key, error) {
	if source == "" {
		return nil, errors.New("invalid key: empty hex string")
	}

	clean := strings.TrimPrefix(source, "0x")
	if clean == "" {
		return Key{}, nil
	}

	decoded, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex format: %w", err)
	}
	return Key(decoded), nil
}

// String returns the hex representation used in URLs and logs.
func (k Key) String() string {
	return hex.EncodeToString(k)
}

// Equal compares two keys byte by byte.
func (k Key) Equal(other Key) bool {
	return bytes.Equal(k, other)
}

// Value is a serialized example. The store never parses it.
type Value []byte

// Equal compares two values byte by byte.
func (v Value) Equal(other Value) bool {
	return bytes.Equal(v, other)
}

// Clone returns a copy of v that does not share memory with it.
func (v Value) Clone() Value {
	if v == nil {
		return nil
	}
	return append(Value(make([]byte, 0, len(v))), v...)
}
