package naming

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameFor_KnownDigest(t *testing.T) {
	// sha256("foo")
	assert.Equal(t, "2c26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae", NameFor([]byte("foo")))
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", NameFor(nil))
}

func TestNameFor_Schemes(t *testing.T) {
	tests := []struct {
		name   string
		scheme Scheme
	}{
		{name: "default", scheme: ""},
		{name: "sha256", scheme: SHA256},
		{name: "blake2b", scheme: BLAKE2b},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := New(tt.scheme)
			require.NoError(t, err)

			inputs := [][]byte{nil, []byte("a"), []byte("b"), {0x00, 0xff, '/', '\\'}, []byte(strings.Repeat("x", 10000))}
			seen := map[string]bool{}
			for _, in := range inputs {
				name := n.NameFor(in)
				assert.Len(t, name, NameLength)
				assert.True(t, n.IsName(name), "name %q should be recognized", name)
				assert.Equal(t, name, n.NameFor(in), "naming must be deterministic")
				assert.False(t, seen[name], "distinct inputs must get distinct names")
				seen[name] = true
			}
		})
	}
}

func TestNameFor_SchemesDiffer(t *testing.T) {
	b2, err := New(BLAKE2b)
	require.NoError(t, err)
	assert.NotEqual(t, Default.NameFor([]byte("foo")), b2.NameFor([]byte("foo")))
	assert.Equal(t, BLAKE2b, b2.Scheme())
}

func TestNew_UnknownScheme(t *testing.T) {
	_, err := New("md5")
	assert.Error(t, err)
}

func TestShard(t *testing.T) {
	prefix, rest := Shard([]byte("foo"))
	assert.Equal(t, "2c", prefix)
	assert.Equal(t, "26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae", rest)
	assert.Equal(t, NameFor([]byte("foo")), prefix+rest)
}

func TestIsName(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: NameFor([]byte("x")), want: true},
		{in: strings.ToUpper(NameFor([]byte("x"))), want: false},
		{in: NameFor([]byte("x"))[:10], want: false},
		{in: NameFor([]byte("x")) + "0", want: false},
		{in: TempName(), want: false},
		{in: "", want: false},
		{in: strings.Repeat("g", NameLength), want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Default.IsName(tt.in), "IsName(%q)", tt.in)
	}
}

func TestTempName(t *testing.T) {
	a, b := TempName(), TempName()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, ".tmp-"))
	assert.False(t, strings.ContainsAny(a, `/\`))

	assert.True(t, IsTempName(a))
	assert.False(t, IsTempName(NameFor([]byte("v"))))
	assert.False(t, Default.IsName(a))
}
