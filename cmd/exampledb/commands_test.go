package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ruteri/exampledb/interfaces"
	"github.com/ruteri/exampledb/naming"
	"github.com/ruteri/exampledb/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI with stdin and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp()
	app.Reader = strings.NewReader(stdin)
	app.Writer = &out
	app.ErrWriter = io.Discard

	err := app.Run(append([]string{"exampledb"}, args...))
	return out.String(), err
}

func hexLines(values ...string) []string {
	lines := make([]string, 0, len(values))
	for _, v := range values {
		lines = append(lines, hex.EncodeToString([]byte(v)))
	}
	return lines
}

func TestCLI_SaveFetchMoveDelete(t *testing.T) {
	db := "file://" + t.TempDir()

	_, err := run(t, "foo", "--db", db, "save", "k1")
	require.NoError(t, err)

	valueFile := filepath.Join(t.TempDir(), "value.bin")
	require.NoError(t, os.WriteFile(valueFile, []byte("bar"), 0o644))
	_, err = run(t, "", "--db", db, "save", "k1", valueFile)
	require.NoError(t, err)

	out, err := run(t, "", "--db", db, "fetch", "k1")
	require.NoError(t, err)
	assert.ElementsMatch(t, hexLines("foo", "bar"), strings.Fields(out))

	_, err = run(t, "foo", "--db", db, "move", "k1", "k2")
	require.NoError(t, err)

	out, err = run(t, "", "--db", db, "fetch", "k2")
	require.NoError(t, err)
	assert.Equal(t, hexLines("foo"), strings.Fields(out))

	_, err = run(t, "", "--db", db, "delete", "k1", valueFile)
	require.NoError(t, err)

	out, err = run(t, "", "--db", db, "fetch", "k1")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(out))
}

func TestCLI_HexKeysAndOutDir(t *testing.T) {
	db := "file://" + t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")

	_, err := run(t, "payload", "--db", db, "--hex", "save", "0x6b6579")
	require.NoError(t, err)

	// "key" in hex names the same key as the plain string.
	_, err = run(t, "", "--db", db, "fetch", "--out-dir", outDir, "key")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, naming.NameFor([]byte("payload"))))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestCLI_Copy(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()

	_, err := run(t, "a", "--db", "file://"+srcDir, "save", "k")
	require.NoError(t, err)
	_, err = run(t, "b", "--db", "file://"+srcDir, "save", "k")
	require.NoError(t, err)

	_, err = run(t, "", "--db", "file://"+srcDir, "copy", "--to", "file://"+destDir, "k")
	require.NoError(t, err)

	dest := storage.NewFileBackend(destDir, storage.FileOptions{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var values []string
	for v := range dest.Fetch(context.Background(), interfaces.Key("k")) {
		values = append(values, string(v))
	}
	assert.ElementsMatch(t, []string{"a", "b"}, values)
}

func TestCLI_Usage(t *testing.T) {
	db := "file://" + t.TempDir()

	_, err := run(t, "", "--db", db, "fetch")
	require.ErrorIs(t, err, errUsage)

	_, err = run(t, "", "--db", db, "move", "only-src")
	require.ErrorIs(t, err, errUsage)

	_, err = run(t, "", "--db", db, "--hex", "fetch", "not-hex")
	require.Error(t, err)

	_, err = run(t, "", "--db", "ftp://nowhere", "fetch", "k")
	require.ErrorIs(t, err, interfaces.ErrUnsupportedScheme)
}

func TestCLI_TLSClientCert(t *testing.T) {
	db := "file://" + t.TempDir()

	_, err := run(t, "", "--db", db, "--tls-client-cert", "client.crt", "fetch", "k")
	require.ErrorContains(t, err, "must be set together")

	// The certificate is only loaded by backends that need it.
	_, err = run(t, "v", "--db", db, "--tls-client-cert", "missing.crt", "--tls-client-key", "missing.key", "save", "k")
	require.NoError(t, err)
}
