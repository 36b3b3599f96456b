package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/ruteri/exampledb/interfaces"
	"github.com/ruteri/exampledb/naming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVaultMount = "secret"

// fakeVault serves the KV v2 data and metadata routes plus sys/health.
type fakeVault struct {
	mu      sync.Mutex
	secrets map[string]map[string]interface{}
	sealed  bool
}

func newFakeVault() *fakeVault {
	return &fakeVault{secrets: make(map[string]map[string]interface{})}
}

func (f *fakeVault) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	route := strings.TrimPrefix(r.URL.Path, "/v1/")
	if route == "sys/health" {
		writeVaultJSON(w, http.StatusOK, map[string]interface{}{
			"initialized": true,
			"sealed":      f.sealed,
		})
		return
	}

	mount, rest, _ := strings.Cut(route, "/")
	if mount != testVaultMount {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	kind, secretPath, _ := strings.Cut(rest, "/")

	switch {
	case kind == "data" && (r.Method == http.MethodPut || r.Method == http.MethodPost):
		var body struct {
			Data map[string]interface{} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.secrets[secretPath] = body.Data
		writeVaultJSON(w, http.StatusOK, map[string]interface{}{"data": vaultVersionMetadata()})

	case kind == "data" && r.Method == http.MethodGet:
		data, ok := f.secrets[secretPath]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeVaultJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{
				"data":     data,
				"metadata": vaultVersionMetadata(),
			},
		})

	case kind == "metadata" && r.Method == http.MethodGet && r.URL.Query().Get("list") == "true":
		keys := f.children(strings.TrimSuffix(secretPath, "/"))
		if len(keys) == 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeVaultJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{"keys": keys},
		})

	case kind == "metadata" && r.Method == http.MethodDelete:
		delete(f.secrets, secretPath)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// children lists the direct entries under dir, with subdirectories suffixed by "/".
func (f *fakeVault) children(dir string) []string {
	seen := make(map[string]struct{})
	for p := range f.secrets {
		rest, ok := strings.CutPrefix(p, dir+"/")
		if !ok {
			continue
		}
		if head, _, nested := strings.Cut(rest, "/"); nested {
			seen[head+"/"] = struct{}{}
		} else {
			seen[rest] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeVault) put(secretPath string, data map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.secrets[secretPath] = data
}

func vaultVersionMetadata() map[string]interface{} {
	return map[string]interface{}{
		"version":       1,
		"created_time":  "2024-01-01T00:00:00Z",
		"deletion_time": "",
		"destroyed":     false,
	}
}

func writeVaultJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestVaultBackend(t *testing.T) (*VaultBackend, *fakeVault) {
	t.Helper()
	t.Setenv("VAULT_TOKEN", "test-token")

	fake := newFakeVault()
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	db, err := NewVaultBackend(ts.URL, testVaultMount, "ci/examples", nil, nil, testLogger())
	require.NoError(t, err)

	return db, fake
}

func TestVaultBackend_Operations(t *testing.T) {
	db, fake := newTestVaultBackend(t)
	ctx := context.Background()
	k1, k2 := interfaces.Key("k1"), interfaces.Key("k2")

	require.True(t, db.Available(ctx))

	require.NoError(t, db.Save(ctx, k1, interfaces.Value("foo")))
	require.NoError(t, db.Save(ctx, k1, interfaces.Value("foo")))
	require.NoError(t, db.Save(ctx, k1, interfaces.Value("bar")))
	assert.ElementsMatch(t, []interfaces.Value{interfaces.Value("foo"), interfaces.Value("bar")}, collect(t, db, k1))

	keyName := naming.NameFor(k1)
	expectedSecret := "ci/examples/" + keyName[:2] + "/" + keyName[2:] + "/" + naming.NameFor([]byte("foo"))
	require.Contains(t, fake.secrets, expectedSecret)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("foo")), fake.secrets[expectedSecret]["value"])

	require.NoError(t, db.Move(ctx, k1, k2, interfaces.Value("foo")))
	assert.Equal(t, []interfaces.Value{interfaces.Value("bar")}, collect(t, db, k1))
	assert.Equal(t, []interfaces.Value{interfaces.Value("foo")}, collect(t, db, k2))

	require.NoError(t, db.Delete(ctx, k1, interfaces.Value("bar")))
	require.NoError(t, db.Delete(ctx, k1, interfaces.Value("never saved")))
	assert.Empty(t, collect(t, db, k1))
}

func TestVaultBackend_SkipsForeignSecrets(t *testing.T) {
	ctx := context.Background()
	key := interfaces.Key("k")

	tests := []struct {
		name  string
		entry string
		data  map[string]interface{}
	}{
		{
			name:  "mismatched content hash",
			entry: naming.NameFor([]byte("expected")),
			data:  map[string]interface{}{"value": base64.StdEncoding.EncodeToString([]byte("corrupted"))},
		},
		{
			name:  "value field missing",
			entry: naming.NameFor([]byte("expected")),
			data:  map[string]interface{}{"other": "x"},
		},
		{
			name:  "value not base64",
			entry: naming.NameFor([]byte("expected")),
			data:  map[string]interface{}{"value": "%%%"},
		},
		{
			name:  "foreign secret name",
			entry: "notes",
			data:  map[string]interface{}{"value": base64.StdEncoding.EncodeToString([]byte("stray"))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, fake := newTestVaultBackend(t)

			require.NoError(t, db.Save(ctx, key, interfaces.Value("good")))
			fake.put(path.Join(db.getKeyDir(key), tt.entry), tt.data)

			assert.Equal(t, []interfaces.Value{interfaces.Value("good")}, collect(t, db, key))
		})
	}
}

func TestVaultBackend_Sealed(t *testing.T) {
	db, fake := newTestVaultBackend(t)

	fake.mu.Lock()
	fake.sealed = true
	fake.mu.Unlock()

	assert.False(t, db.Available(context.Background()))
}

func TestVaultBackend_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	db, err := NewVaultBackend(ts.URL, testVaultMount, "ci/examples", nil, nil, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, db.Available(ctx))
	assert.Empty(t, collect(t, db, interfaces.Key("k")))
	require.ErrorIs(t, db.Save(ctx, interfaces.Key("k"), interfaces.Value("v")), interfaces.ErrIO)
	require.ErrorIs(t, db.Delete(ctx, interfaces.Key("k"), interfaces.Value("v")), interfaces.ErrIO)
}
