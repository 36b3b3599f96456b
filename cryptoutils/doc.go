// Package cryptoutils loads and generates the TLS client certificates that
// storage backends present to servers requiring mutual TLS, such as a Vault
// deployment with the cert auth method enabled.
//
// Certificates are loaded lazily and cached, so a command that never opens a
// TLS backend never touches the key files.
package cryptoutils
