package api

import (
	"fmt"

	"github.com/ruteri/exampledb/interfaces"
)

// Routes served by httpserver and used by clients.StoreClient. Keys in paths
// are the 0x-prefixed lowercase hex encoding of the key bytes, so the empty
// key is "0x"; values travel as raw request bodies.
const (
	// KeyRoute handles PUT (save), GET (fetch) and DELETE (delete).
	KeyRoute = "/api/v1/keys/{key}"

	// MoveRoute handles POST (move value from key to dest).
	MoveRoute = "/api/v1/keys/{key}/move/{dest}"

	// MaxValueSize bounds request bodies accepted by the server.
	MaxValueSize = 16 * 1024 * 1024
)

// KeyPath returns the URL path of key.
func KeyPath(key interfaces.Key) string {
	return fmt.Sprintf("/api/v1/keys/0x%s", key.String())
}

// MovePath returns the URL path that moves a value from src to dest.
func MovePath(src, dest interfaces.Key) string {
	return fmt.Sprintf("/api/v1/keys/0x%s/move/0x%s", src.String(), dest.String())
}

// FetchResponse is the body of a fetch. Values are base64 encoded by encoding/json.
type FetchResponse struct {
	Values [][]byte `json:"values"`
}

// ErrorResponse is the body of any failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
