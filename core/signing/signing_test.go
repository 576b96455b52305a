package signing_test

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
	"time"

	coreerrors "github.com/MrDemonWolf/linkden-sub002/core/errors"
	"github.com/MrDemonWolf/linkden-sub002/core/signing"
	"github.com/MrDemonWolf/linkden-sub002/internal/testcert"
)

func TestSignAndVerifyDetached(t *testing.T) {
	identity := testcert.NewIdentity(t)
	manifestBytes := []byte(`{"icon.png":"a9993e364706816aba3e25717850c26c9cd0d89d"}`)

	signature, err := signing.Sign(manifestBytes, identity)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if len(signature) == 0 {
		t.Fatalf("expected DER signature bytes")
	}
	if err := signing.Verify(manifestBytes, signature, testcert.Roots(identity)); err != nil {
		t.Fatalf("verify error: %v", err)
	}
}

func TestVerifyRejectsTamperedManifest(t *testing.T) {
	identity := testcert.NewIdentity(t)
	manifestBytes := []byte(`{"pass.json":"00"}`)
	signature, err := signing.Sign(manifestBytes, identity)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	tampered := append([]byte{}, manifestBytes...)
	tampered[len(tampered)-2] ^= 0x01
	if err := signing.Verify(tampered, signature, testcert.Roots(identity)); !errors.Is(err, coreerrors.ErrSignatureFailure) {
		t.Fatalf("expected ErrSignatureFailure, got %v", err)
	}
}

func TestSignExpiredCertificate(t *testing.T) {
	identity := testcert.NewExpiredIdentity(t)
	if _, err := signing.Sign([]byte(`{}`), identity); !errors.Is(err, coreerrors.ErrCertificateExpired) {
		t.Fatalf("expected ErrCertificateExpired, got %v", err)
	}
}

func TestSignIncompleteIdentity(t *testing.T) {
	identity := testcert.NewIdentity(t)

	noKey := identity
	noKey.PrivateKey = nil
	if _, err := signing.Sign([]byte(`{}`), noKey); !errors.Is(err, coreerrors.ErrSigningKey) {
		t.Fatalf("expected ErrSigningKey for missing key, got %v", err)
	}

	mismatched := identity
	mismatched.PrivateKey = testcert.NewIdentity(t).PrivateKey
	if _, err := signing.Sign([]byte(`{}`), mismatched); !errors.Is(err, coreerrors.ErrSigningKey) {
		t.Fatalf("expected ErrSigningKey for mismatched key, got %v", err)
	}
}

func TestCheckValidityLeadTime(t *testing.T) {
	now := time.Now()
	identity := testcert.NewIdentityWithWindow(t, testcert.Window{
		NotBefore: now.Add(-time.Hour),
		NotAfter:  now.Add(12 * time.Hour),
	})
	if err := identity.CheckValidity(now, 0); err != nil {
		t.Fatalf("identity should be valid now: %v", err)
	}
	// A 30-day lead flags the certificate for renewal well before expiry.
	if err := identity.CheckValidity(now, 30*24*time.Hour); !errors.Is(err, coreerrors.ErrCertificateExpired) {
		t.Fatalf("expected lead-time expiry warning, got %v", err)
	}
}

func TestFingerprintChangesOnRotation(t *testing.T) {
	first := testcert.NewIdentity(t)
	second := testcert.NewIdentity(t)
	if first.Fingerprint() == "" {
		t.Fatalf("expected non-empty fingerprint")
	}
	if first.Fingerprint() != first.Fingerprint() {
		t.Fatalf("fingerprint must be stable")
	}
	if first.Fingerprint() == second.Fingerprint() {
		t.Fatalf("distinct certificates must have distinct fingerprints")
	}
}

func TestLoadPEMRoundTrip(t *testing.T) {
	identity := testcert.NewIdentity(t)

	keyDER, err := x509.MarshalPKCS8PrivateKey(identity.PrivateKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: identity.Certificate.Raw})
	intermediatePEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: identity.Intermediate.Raw})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	loaded, err := signing.LoadPEM(certPEM, keyPEM, intermediatePEM)
	if err != nil {
		t.Fatalf("load pem: %v", err)
	}
	if loaded.Fingerprint() != identity.Fingerprint() {
		t.Fatalf("loaded identity differs from source")
	}

	manifestBytes := []byte(`{"pass.json":"ff"}`)
	signature, err := signing.Sign(manifestBytes, loaded)
	if err != nil {
		t.Fatalf("sign with loaded identity: %v", err)
	}
	if err := signing.Verify(manifestBytes, signature, testcert.Roots(loaded)); err != nil {
		t.Fatalf("verify with loaded identity: %v", err)
	}
}

func TestLoadPEMRejectsGarbage(t *testing.T) {
	identity := testcert.NewIdentity(t)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: identity.Certificate.Raw})
	if _, err := signing.LoadPEM([]byte("nope"), []byte("nope"), certPEM); !errors.Is(err, coreerrors.ErrSigningKey) {
		t.Fatalf("expected ErrSigningKey, got %v", err)
	}
	if _, err := signing.LoadPEM(certPEM, []byte("nope"), certPEM); !errors.Is(err, coreerrors.ErrSigningKey) {
		t.Fatalf("expected ErrSigningKey for bad key, got %v", err)
	}
}
