package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ruteri/exampledb/interfaces"
	"github.com/ruteri/exampledb/naming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGitHub serves a committed directory layout through the contents and blob APIs.
func fakeGitHub(t *testing.T, files map[string][]byte, token string) *httptest.Server {
	t.Helper()

	blobs := make(map[string][]byte)
	dirs := make(map[string][]GitHubContentEntry)
	for path, content := range files {
		sha := naming.NameFor(append([]byte("blob:"), content...))[:40]
		blobs[sha] = content

		idx := strings.LastIndex(path, "/")
		dir, name := path[:idx], path[idx+1:]
		dirs[dir] = append(dirs[dir], GitHubContentEntry{Name: name, Path: path, SHA: sha, Type: "file", Size: len(content)})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"full_name":"acme/widgets"}`))
	})
	mux.HandleFunc("/repos/acme/widgets/contents/", func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "main", r.URL.Query().Get("ref"))

		entries, ok := dirs[strings.TrimPrefix(r.URL.Path, "/repos/acme/widgets/contents/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(entries)
	})
	mux.HandleFunc("/repos/acme/widgets/git/blobs/", func(w http.ResponseWriter, r *http.Request) {
		sha := strings.TrimPrefix(r.URL.Path, "/repos/acme/widgets/git/blobs/")
		content, ok := blobs[sha]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(GitHubBlob{
			Content:  base64.StdEncoding.EncodeToString(content),
			Encoding: "base64",
			SHA:      sha,
			Size:     len(content),
		})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestGitHubBackend_Fetch(t *testing.T) {
	key := interfaces.Key("tests/test_parser.py::test_roundtrip")
	prefix, rest := naming.Shard(key)
	dir := ".exampledb/" + prefix + "/" + rest

	ts := fakeGitHub(t, map[string][]byte{
		dir + "/" + naming.NameFor([]byte("first")):    []byte("first"),
		dir + "/" + naming.NameFor([]byte("second")):   []byte("second"),
		dir + "/" + naming.NameFor([]byte("expected")): []byte("tampered"),
		dir + "/README.md":                             []byte("stray"),
	}, "secret")

	db := NewGitHubBackend("acme", "widgets", ".exampledb", "main", "secret", nil, testLogger())
	db.apiBase = ts.URL
	ctx := context.Background()

	assert.True(t, db.Available(ctx))
	assert.ElementsMatch(t, []interfaces.Value{interfaces.Value("first"), interfaces.Value("second")}, collect(t, db, key))
	assert.Empty(t, collect(t, db, interfaces.Key("unknown")))

	// Writes are ignored.
	require.NoError(t, db.Save(ctx, key, interfaces.Value("third")))
	require.NoError(t, db.Delete(ctx, key, interfaces.Value("first")))
	require.NoError(t, db.Move(ctx, key, interfaces.Key("other"), interfaces.Value("first")))
	assert.Len(t, collect(t, db, key), 2)

	assert.Equal(t, "github://acme/widgets/.exampledb?ref=main", db.LocationURI())
}

func TestGitHubBackend_Unauthorized(t *testing.T) {
	key := interfaces.Key("k")
	prefix, rest := naming.Shard(key)

	ts := fakeGitHub(t, map[string][]byte{
		"store/" + prefix + "/" + rest + "/" + naming.NameFor([]byte("v")): []byte("v"),
	}, "secret")

	db := NewGitHubBackend("acme", "widgets", "store", "main", "wrong", nil, testLogger())
	db.apiBase = ts.URL

	assert.Empty(t, collect(t, db, key))
}
