// Package signing produces the detached CMS signature that binds a pass
// bundle to its manifest. Key material lives here only for the duration of
// a signing call and is never logged or written into the bundle.
package signing

import (
	"crypto"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"time"

	pkcs12 "software.sslmate.com/src/go-pkcs12"

	"github.com/MrDemonWolf/linkden-sub002/core/canon"
	coreerrors "github.com/MrDemonWolf/linkden-sub002/core/errors"
)

// Identity is the organization's signing material: leaf certificate, the
// issuing intermediate, and the private key. Held in memory only.
type Identity struct {
	Certificate  *x509.Certificate
	Intermediate *x509.Certificate
	PrivateKey   crypto.Signer
}

// LoadPKCS12 decodes a .p12 bundle the way signing identities are exported
// from a keychain: leaf certificate, private key, and CA chain together.
func LoadPKCS12(data []byte, password string) (Identity, error) {
	key, cert, caCerts, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return Identity{}, keyError(fmt.Errorf("decode pkcs12: %w", err))
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return Identity{}, keyError(fmt.Errorf("pkcs12 private key does not implement crypto.Signer"))
	}
	identity := Identity{Certificate: cert, PrivateKey: signer}
	if len(caCerts) > 0 {
		identity.Intermediate = caCerts[0]
	}
	if err := identity.check(); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// LoadPEM assembles an identity from PEM-encoded leaf certificate, private
// key, and intermediate certificate blocks.
func LoadPEM(certPEM, keyPEM, intermediatePEM []byte) (Identity, error) {
	cert, err := parseCertificatePEM(certPEM)
	if err != nil {
		return Identity{}, keyError(fmt.Errorf("leaf certificate: %w", err))
	}
	intermediate, err := parseCertificatePEM(intermediatePEM)
	if err != nil {
		return Identity{}, keyError(fmt.Errorf("intermediate certificate: %w", err))
	}
	signer, err := parsePrivateKeyPEM(keyPEM)
	if err != nil {
		return Identity{}, keyError(fmt.Errorf("private key: %w", err))
	}
	identity := Identity{Certificate: cert, Intermediate: intermediate, PrivateKey: signer}
	if err := identity.check(); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// check confirms the identity is complete and the key actually belongs to
// the leaf certificate.
func (id Identity) check() error {
	if id.Certificate == nil {
		return keyError(fmt.Errorf("leaf certificate is missing"))
	}
	if id.PrivateKey == nil {
		return keyError(fmt.Errorf("private key is missing"))
	}
	matcher, ok := id.Certificate.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !matcher.Equal(id.PrivateKey.Public()) {
		return keyError(fmt.Errorf("private key does not match leaf certificate"))
	}
	return nil
}

// CheckValidity rejects an identity whose leaf or intermediate certificate
// falls outside its validity window at the given instant. A positive lead
// shifts the check into the future so operators get warned before real
// expiry; the zero lead is the hard pre-signing gate.
func (id Identity) CheckValidity(now time.Time, lead time.Duration) error {
	at := now.Add(lead)
	certs := []struct {
		role string
		cert *x509.Certificate
	}{
		{"leaf", id.Certificate},
		{"intermediate", id.Intermediate},
	}
	for _, entry := range certs {
		if entry.cert == nil {
			continue
		}
		if at.Before(entry.cert.NotBefore) {
			return expiredError(fmt.Errorf("%s certificate not valid until %s", entry.role, entry.cert.NotBefore.Format(time.RFC3339)))
		}
		if at.After(entry.cert.NotAfter) {
			return expiredError(fmt.Errorf("%s certificate not valid after %s", entry.role, entry.cert.NotAfter.Format(time.RFC3339)))
		}
	}
	return nil
}

// Fingerprint identifies the signing certificate for cache invalidation:
// serial number plus certificate digest. Rotating the certificate changes
// this value and therefore every cached pass fingerprint.
func (id Identity) Fingerprint() string {
	if id.Certificate == nil {
		return ""
	}
	return hex.EncodeToString(id.Certificate.SerialNumber.Bytes()) + ":" + canon.SHA256Hex(id.Certificate.Raw)
}

func parseCertificatePEM(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no certificate PEM block")
	}
	return x509.ParseCertificate(block.Bytes)
}

func parsePrivateKeyPEM(data []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no private key PEM block")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type")
		}
		return signer, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("unparsable private key")
}

func keyError(cause error) error {
	return coreerrors.Classify(
		coreerrors.ErrSigningKey, cause,
		coreerrors.CategorySigning,
		"signing_key_unusable",
		"check the signing certificate and key configured in the secret store",
		false,
	)
}

func expiredError(cause error) error {
	return coreerrors.Classify(
		coreerrors.ErrCertificateExpired, cause,
		coreerrors.CategorySigning,
		"certificate_outside_validity",
		"renew the pass signing certificate",
		false,
	)
}
