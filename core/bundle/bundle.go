// Package bundle serializes a signed pass into the flat zip layout the
// wallet unpacker expects. Output is deterministic: fixed entry timestamps
// and sorted entry order, so identical inputs yield byte-identical archives.
package bundle

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/MrDemonWolf/linkden-sub002/core/assets"
	coreerrors "github.com/MrDemonWolf/linkden-sub002/core/errors"
	"github.com/MrDemonWolf/linkden-sub002/core/manifest"
)

const (
	// ManifestFileName and SignatureFileName are fixed by the platform.
	ManifestFileName  = "manifest.json"
	SignatureFileName = "signature"

	// ContentType is the HTTP content type for a finished bundle.
	ContentType = "application/vnd.apple.pkpass"
)

// Zip entry timestamps are pinned so archive bytes depend only on content.
var fixedTimestamp = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

type member struct {
	name string
	data []byte
}

// Pack assembles the final archive from the exact bytes produced upstream:
// the serialized descriptor, every asset, the signed manifest bytes, and the
// raw DER signature. No member is re-encoded here.
func Pack(descriptorBytes []byte, set assets.Set, manifestBytes, signatureBytes []byte) ([]byte, error) {
	if err := checkMembers(descriptorBytes, set, manifestBytes, signatureBytes); err != nil {
		return nil, err
	}

	members := make([]member, 0, len(set)+3)
	members = append(members,
		member{name: manifest.DescriptorFileName, data: descriptorBytes},
		member{name: ManifestFileName, data: manifestBytes},
		member{name: SignatureFileName, data: signatureBytes},
	)
	for name, data := range set {
		members = append(members, member{name: name, data: data})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].name < members[j].name })

	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	for _, entry := range members {
		header := &zip.FileHeader{
			Name:     entry.name,
			Method:   zip.Deflate,
			Modified: fixedTimestamp,
		}
		header.SetMode(0o644)
		entryWriter, err := writer.CreateHeader(header)
		if err != nil {
			return nil, packagingError(fmt.Errorf("create zip entry %s: %w", entry.name, err))
		}
		if _, err := entryWriter.Write(entry.data); err != nil {
			return nil, packagingError(fmt.Errorf("write zip entry %s: %w", entry.name, err))
		}
	}
	if err := writer.Close(); err != nil {
		return nil, packagingError(fmt.Errorf("close zip: %w", err))
	}
	return buffer.Bytes(), nil
}

// checkMembers re-validates the bundle invariant at pack time even though
// upstream stages already guarantee it.
func checkMembers(descriptorBytes []byte, set assets.Set, manifestBytes, signatureBytes []byte) error {
	if len(descriptorBytes) == 0 {
		return packagingError(fmt.Errorf("descriptor bytes are empty"))
	}
	if len(manifestBytes) == 0 {
		return packagingError(fmt.Errorf("manifest bytes are empty"))
	}
	if len(signatureBytes) == 0 {
		return packagingError(fmt.Errorf("signature bytes are empty"))
	}
	if err := set.Validate(); err != nil {
		return packagingError(err)
	}
	for name, data := range set {
		if len(data) == 0 {
			return packagingError(fmt.Errorf("asset %s is empty", name))
		}
	}
	return nil
}

func packagingError(cause error) error {
	return coreerrors.Classify(
		coreerrors.ErrPackaging, cause,
		coreerrors.CategoryPackaging,
		"bundle_pack_failed",
		"a required bundle member was missing or unwritable at pack time",
		false,
	)
}
