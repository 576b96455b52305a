// Package canon provides the deterministic serialization the pass pipeline
// depends on: every digest in a manifest or fingerprint is computed over the
// RFC 8785 canonical form, so logically identical inputs always produce
// byte-identical artifacts.
package canon

import (
	"crypto/sha1" // #nosec G505 -- the wallet platform mandates SHA-1 manifest digests
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/gowebpki/jcs"
)

// Canonicalize returns the RFC 8785 (JCS) canonical form of JSON input.
func Canonicalize(input []byte) ([]byte, error) {
	return jcs.Transform(input)
}

// MarshalCanonical marshals a value and canonicalizes the result.
func MarshalCanonical(value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(raw)
}

// DigestSHA256 canonicalizes JSON input and returns a sha256 hex digest.
// Used for fingerprints and serial derivation, never for manifest entries.
func DigestSHA256(input []byte) (string, error) {
	canonical, err := Canonicalize(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// SHA1Hex returns the hex SHA-1 digest of raw bytes. The consuming wallet
// verifies manifest entries with SHA-1, so this is a format requirement,
// not a security boundary.
func SHA1Hex(data []byte) string {
	sum := sha1.Sum(data) // #nosec G401 -- platform manifest digest algorithm
	return hex.EncodeToString(sum[:])
}

// SHA256Hex returns the hex SHA-256 digest of raw bytes.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
