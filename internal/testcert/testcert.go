// Package testcert builds throwaway signing identities for tests: a
// self-signed intermediate CA plus a leaf signing certificate. Nothing here
// touches disk.
package testcert

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/MrDemonWolf/linkden-sub002/core/signing"
)

// Window bounds the validity period of a generated leaf certificate.
type Window struct {
	NotBefore time.Time
	NotAfter  time.Time
}

// NewIdentity returns a signing identity whose leaf is valid for the next
// hour.
func NewIdentity(t *testing.T) signing.Identity {
	t.Helper()
	now := time.Now()
	return NewIdentityWithWindow(t, Window{NotBefore: now.Add(-time.Hour), NotAfter: now.Add(time.Hour)})
}

// NewExpiredIdentity returns an identity whose leaf expired an hour ago.
func NewExpiredIdentity(t *testing.T) signing.Identity {
	t.Helper()
	now := time.Now()
	return NewIdentityWithWindow(t, Window{NotBefore: now.Add(-48 * time.Hour), NotAfter: now.Add(-time.Hour)})
}

// NewIdentityWithWindow builds a fresh CA and a leaf bounded by the window.
func NewIdentityWithWindow(t *testing.T, window Window) signing.Identity {
	t.Helper()

	caKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate ca key: %v", err)
	}
	caTemplate := &x509.Certificate{
		SerialNumber:          randomSerial(t),
		Subject:               pkix.Name{CommonName: "Test Pass Intermediate CA", Organization: []string{"Test"}},
		NotBefore:             time.Now().Add(-72 * time.Hour),
		NotAfter:              time.Now().Add(240 * time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("create ca certificate: %v", err)
	}
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		t.Fatalf("parse ca certificate: %v", err)
	}

	leafKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate leaf key: %v", err)
	}
	leafTemplate := &x509.Certificate{
		SerialNumber: randomSerial(t),
		Subject:      pkix.Name{CommonName: "Pass Type ID: pass.com.example.card", Organization: []string{"Test"}},
		NotBefore:    window.NotBefore,
		NotAfter:     window.NotAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, caCert, &leafKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("create leaf certificate: %v", err)
	}
	leafCert, err := x509.ParseCertificate(leafDER)
	if err != nil {
		t.Fatalf("parse leaf certificate: %v", err)
	}

	return signing.Identity{
		Certificate:  leafCert,
		Intermediate: caCert,
		PrivateKey:   leafKey,
	}
}

// Roots returns a pool trusting the identity's intermediate, for chain
// verification in tests.
func Roots(identity signing.Identity) *x509.CertPool {
	pool := x509.NewCertPool()
	if identity.Intermediate != nil {
		pool.AddCert(identity.Intermediate)
	}
	return pool
}

func randomSerial(t *testing.T) *big.Int {
	t.Helper()
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		t.Fatalf("generate serial: %v", err)
	}
	return serial
}
