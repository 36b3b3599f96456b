package cryptoutils

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"
	"time"
)

// ClientCertLoader returns a function that reads the PEM certificate and key
// files on first use and returns the same certificate afterwards. Load errors
// are not cached, so a file that appears later is picked up on the next call.
func ClientCertLoader(certFile, keyFile string) func() (tls.Certificate, error) {
	var (
		mu     sync.Mutex
		cached *tls.Certificate
	)

	return func() (tls.Certificate, error) {
		mu.Lock()
		defer mu.Unlock()

		if cached != nil {
			return *cached, nil
		}

		cert, err := LoadClientCert(certFile, keyFile)
		if err != nil {
			return tls.Certificate{}, err
		}
		cached = &cert
		return cert, nil
	}
}

// LoadClientCert reads a PEM certificate and private key pair and checks that
// they belong together and that the certificate has not expired.
func LoadClientCert(certFile, keyFile string) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to read certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to read private key: %w", err)
	}

	if err := VerifyCertificate(keyPEM, certPEM, time.Now()); err != nil {
		return tls.Certificate{}, err
	}

	return tls.X509KeyPair(certPEM, keyPEM)
}

// VerifyCertificate validates that a certificate matches a given private key
// and is valid at the given time. It performs the following checks:
//   - The key and certificate can be parsed correctly
//   - The certificate is within its validity period
//   - The public key in the certificate corresponds to the provided private key
func VerifyCertificate(keyPEM, certPEM []byte, at time.Time) error {
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil || (keyBlock.Type != "PRIVATE KEY" && keyBlock.Type != "EC PRIVATE KEY") {
		return errors.New("failed to decode private key PEM block")
	}

	privateKey, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		// Try SEC 1 format if PKCS#8 fails
		privateKey, err = x509.ParseECPrivateKey(keyBlock.Bytes)
		if err != nil {
			return fmt.Errorf("failed to parse private key: %w", err)
		}
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil || certBlock.Type != "CERTIFICATE" {
		return errors.New("failed to decode certificate PEM block")
	}

	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}

	if at.Before(cert.NotBefore) || at.After(cert.NotAfter) {
		return fmt.Errorf("certificate is not valid at %s (valid %s to %s)",
			at.Format(time.RFC3339), cert.NotBefore.Format(time.RFC3339), cert.NotAfter.Format(time.RFC3339))
	}

	signer, ok := privateKey.(crypto.Signer)
	if !ok {
		return errors.New("unsupported key type")
	}

	type equaler interface {
		Equal(crypto.PublicKey) bool
	}
	certPublicKey, ok := cert.PublicKey.(equaler)
	if !ok || !certPublicKey.Equal(signer.Public()) {
		return errors.New("private key doesn't match certificate")
	}
	return nil
}

// RandomCert generates a self-signed certificate valid for validFor, for
// servers and clients where the chain of trust does not matter, for example
// local test deployments. It returns the PEM encoded certificate and key.
func RandomCert(cn string, validFor time.Duration) (certPEM, keyPEM []byte, err error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    now.Add(-time.Minute),
		NotAfter:     now.Add(validFor),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
	}

	certASN1, err := x509.CreateCertificate(rand.Reader, template, template, privateKey.Public(), privateKey)
	if err != nil {
		return nil, nil, err
	}

	privkeyBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, nil, err
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certASN1})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privkeyBytes})
	return certPEM, keyPEM, nil
}
