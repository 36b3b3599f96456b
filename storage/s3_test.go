package storage

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/ruteri/exampledb/interfaces"
	"github.com/ruteri/exampledb/naming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBucket = "test-bucket"

// fakeS3 serves the handful of path-style S3 calls the backend makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

type listBucketResult struct {
	XMLName     xml.Name         `xml:"ListBucketResult"`
	Name        string           `xml:"Name"`
	Prefix      string           `xml:"Prefix"`
	KeyCount    int              `xml:"KeyCount"`
	MaxKeys     int              `xml:"MaxKeys"`
	IsTruncated bool             `xml:"IsTruncated"`
	Contents    []listBucketItem `xml:"Contents"`
}

type listBucketItem struct {
	Key  string `xml:"Key"`
	Size int    `xml:"Size"`
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket != testBucket {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case r.Method == http.MethodHead && key == "":
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet && key == "":
		prefix := r.URL.Query().Get("prefix")
		result := listBucketResult{Name: bucket, Prefix: prefix, MaxKeys: 1000}
		for k, v := range f.objects {
			if strings.HasPrefix(k, prefix) {
				result.Contents = append(result.Contents, listBucketItem{Key: k, Size: len(v)})
			}
		}
		sort.Slice(result.Contents, func(i, j int) bool { return result.Contents[i].Key < result.Contents[j].Key })
		result.KeyCount = len(result.Contents)

		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(xml.Header))
		_ = xml.NewEncoder(w).Encode(result)

	case r.Method == http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)

	case r.Method == http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.objects[key] = data
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3Backend(t *testing.T) (*S3Backend, *fakeS3) {
	t.Helper()

	fake := &fakeS3{objects: make(map[string][]byte)}
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	db, err := NewS3Backend(S3Config{
		BucketName: testBucket,
		Prefix:     "ci/examples",
		Region:     "us-east-1",
		Endpoint:   ts.URL,
		AccessKey:  "AK",
		SecretKey:  "SK",
		PathStyle:  true,
	}, nil, testLogger())
	require.NoError(t, err)

	return db, fake
}

func TestS3Backend_Operations(t *testing.T) {
	db, fake := newTestS3Backend(t)
	ctx := context.Background()
	k1, k2 := interfaces.Key("k1"), interfaces.Key("k2")

	require.True(t, db.Available(ctx))

	require.NoError(t, db.Save(ctx, k1, interfaces.Value("foo")))
	require.NoError(t, db.Save(ctx, k1, interfaces.Value("foo")))
	require.NoError(t, db.Save(ctx, k1, interfaces.Value("bar")))
	assert.ElementsMatch(t, []interfaces.Value{interfaces.Value("foo"), interfaces.Value("bar")}, collect(t, db, k1))

	keyName := naming.NameFor(k1)
	expectedObject := "ci/examples/" + keyName[:2] + "/" + keyName[2:] + "/" + naming.NameFor([]byte("foo"))
	assert.Contains(t, fake.objects, expectedObject)

	require.NoError(t, db.Move(ctx, k1, k2, interfaces.Value("foo")))
	assert.Equal(t, []interfaces.Value{interfaces.Value("bar")}, collect(t, db, k1))
	assert.Equal(t, []interfaces.Value{interfaces.Value("foo")}, collect(t, db, k2))

	require.NoError(t, db.Delete(ctx, k1, interfaces.Value("bar")))
	require.NoError(t, db.Delete(ctx, k1, interfaces.Value("never saved")))
	assert.Empty(t, collect(t, db, k1))
}

func TestS3Backend_SkipsForeignObjects(t *testing.T) {
	db, fake := newTestS3Backend(t)
	ctx := context.Background()
	key := interfaces.Key("k")

	require.NoError(t, db.Save(ctx, key, interfaces.Value("good")))

	prefix := db.getKeyPrefix(key)
	fake.mu.Lock()
	fake.objects[prefix+"/"+naming.NameFor([]byte("expected"))] = []byte("corrupted")
	fake.objects[prefix+"/notes.txt"] = []byte("stray")
	fake.mu.Unlock()

	assert.Equal(t, []interfaces.Value{interfaces.Value("good")}, collect(t, db, key))
}

func TestS3Backend_FetchStopsEarly(t *testing.T) {
	db, _ := newTestS3Backend(t)
	ctx := context.Background()
	key := interfaces.Key("k")

	for _, v := range []string{"1", "2", "3"} {
		require.NoError(t, db.Save(ctx, key, interfaces.Value(v)))
	}

	var n int
	for range db.Fetch(ctx, key) {
		n++
		break
	}
	assert.Equal(t, 1, n)
	assert.Len(t, slices.Collect(db.Fetch(ctx, key)), 3)
}

func TestS3Backend_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	db, err := NewS3Backend(S3Config{
		BucketName: testBucket,
		Region:     "us-east-1",
		Endpoint:   ts.URL,
		AccessKey:  "AK",
		SecretKey:  "SK",
		PathStyle:  true,
	}, nil, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, db.Available(ctx))
	assert.Empty(t, collect(t, db, interfaces.Key("k")))
	require.ErrorIs(t, db.Save(ctx, interfaces.Key("k"), interfaces.Value("v")), interfaces.ErrIO)
}
