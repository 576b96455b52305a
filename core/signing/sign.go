package signing

import (
	"crypto/x509"
	"fmt"
	"time"

	"go.mozilla.org/pkcs7"

	coreerrors "github.com/MrDemonWolf/linkden-sub002/core/errors"
)

// Sign produces the detached PKCS#7 DER signature over the exact manifest
// bytes that ship in the bundle. The signature's certificate chain carries
// the leaf and the intermediate; the digest algorithm is SHA-1, matching the
// manifest digests the platform verifies.
func Sign(manifestBytes []byte, identity Identity) ([]byte, error) {
	if err := identity.check(); err != nil {
		return nil, err
	}
	if err := identity.CheckValidity(time.Now(), 0); err != nil {
		return nil, err
	}

	signedData, err := pkcs7.NewSignedData(manifestBytes)
	if err != nil {
		return nil, signatureError(fmt.Errorf("create signed data: %w", err))
	}
	signedData.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA1)

	var parents []*x509.Certificate
	if identity.Intermediate != nil {
		parents = []*x509.Certificate{identity.Intermediate}
	}
	if err := signedData.AddSignerChain(identity.Certificate, identity.PrivateKey, parents, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, signatureError(fmt.Errorf("add signer chain: %w", err))
	}
	signedData.Detach()

	der, err := signedData.Finish()
	if err != nil {
		return nil, signatureError(fmt.Errorf("finish signature: %w", err))
	}
	return der, nil
}

// Verify checks a detached signature against manifest bytes. Certificate
// chain trust is anchored at the provided roots; nil roots verifies only the
// signature itself against the embedded signer certificate.
func Verify(manifestBytes, signatureDER []byte, roots *x509.CertPool) error {
	parsed, err := pkcs7.Parse(signatureDER)
	if err != nil {
		return signatureError(fmt.Errorf("parse signature: %w", err))
	}
	parsed.Content = manifestBytes
	if roots != nil {
		if err := parsed.VerifyWithChain(roots); err != nil {
			return signatureError(fmt.Errorf("verify signature chain: %w", err))
		}
		return nil
	}
	if err := parsed.Verify(); err != nil {
		return signatureError(fmt.Errorf("verify signature: %w", err))
	}
	return nil
}

func signatureError(cause error) error {
	return coreerrors.Classify(
		coreerrors.ErrSignatureFailure, cause,
		coreerrors.CategorySigning,
		"signature_failed",
		"signing failed; the bundle was not produced",
		false,
	)
}
