package cryptoutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCert(t *testing.T, certPEM, keyPEM []byte) (string, string) {
	t.Helper()
	dir := t.TempDir()
	certFile := filepath.Join(dir, "client.crt")
	keyFile := filepath.Join(dir, "client.key")
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	return certFile, keyFile
}

func TestVerifyCertificate(t *testing.T) {
	certPEM, keyPEM, err := RandomCert("ci-runner", time.Hour)
	require.NoError(t, err)
	_, otherKeyPEM, err := RandomCert("other", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		keyPEM  []byte
		certPEM []byte
		at      time.Time
		wantErr string
	}{
		{name: "matching pair", keyPEM: keyPEM, certPEM: certPEM, at: time.Now()},
		{name: "mismatched key", keyPEM: otherKeyPEM, certPEM: certPEM, at: time.Now(), wantErr: "doesn't match"},
		{name: "expired", keyPEM: keyPEM, certPEM: certPEM, at: time.Now().Add(2 * time.Hour), wantErr: "not valid"},
		{name: "not yet valid", keyPEM: keyPEM, certPEM: certPEM, at: time.Now().Add(-time.Hour), wantErr: "not valid"},
		{name: "garbage key", keyPEM: []byte("nope"), certPEM: certPEM, at: time.Now(), wantErr: "private key PEM"},
		{name: "key as certificate", keyPEM: keyPEM, certPEM: keyPEM, at: time.Now(), wantErr: "certificate PEM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyCertificate(tt.keyPEM, tt.certPEM, tt.at)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClientCertLoader(t *testing.T) {
	certPEM, keyPEM, err := RandomCert("ci-runner", time.Hour)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile := filepath.Join(dir, "client.crt")
	keyFile := filepath.Join(dir, "client.key")

	load := ClientCertLoader(certFile, keyFile)

	// Missing files are reported, not cached.
	_, err = load()
	require.Error(t, err)

	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))

	cert, err := load()
	require.NoError(t, err)
	require.NotEmpty(t, cert.Certificate)

	// Later calls return the cached pair even if the files go away.
	require.NoError(t, os.Remove(certFile))
	again, err := load()
	require.NoError(t, err)
	assert.Equal(t, cert.Certificate, again.Certificate)
}

func TestLoadClientCert_Mismatch(t *testing.T) {
	certPEM, _, err := RandomCert("a", time.Hour)
	require.NoError(t, err)
	_, keyPEM, err := RandomCert("b", time.Hour)
	require.NoError(t, err)

	certFile, keyFile := writeCert(t, certPEM, keyPEM)
	_, err = LoadClientCert(certFile, keyFile)
	assert.ErrorContains(t, err, "doesn't match")
}
