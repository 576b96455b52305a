// Package manifest binds bundle contents to the signature: every file that
// ships in the archive is digested here, and the serialized manifest is the
// exact byte sequence the signer consumes.
package manifest

import (
	"fmt"
	"strings"

	"github.com/MrDemonWolf/linkden-sub002/core/assets"
	"github.com/MrDemonWolf/linkden-sub002/core/canon"
	"github.com/MrDemonWolf/linkden-sub002/core/descriptor"
)

// DescriptorFileName is the descriptor's name inside the bundle.
const DescriptorFileName = "pass.json"

// Manifest maps bundle member names to hex SHA-1 digests. The key set is
// exactly the files placed in the archive, excluding the manifest and
// signature themselves.
type Manifest map[string]string

// Build serializes the descriptor to canonical bytes and digests it together
// with every asset. The serialized descriptor is returned so the packager
// embeds the same bytes that were digested, with no re-serialization.
func Build(pass descriptor.PassDescriptor, set assets.Set) ([]byte, Manifest, error) {
	descriptorBytes, err := canon.MarshalCanonical(pass)
	if err != nil {
		return nil, nil, fmt.Errorf("serialize descriptor: %w", err)
	}

	entries := make(Manifest, len(set)+1)
	entries[DescriptorFileName] = canon.SHA1Hex(descriptorBytes)
	for name, data := range set {
		entries[name] = canon.SHA1Hex(data)
	}
	return descriptorBytes, entries, nil
}

// Canonical returns the manifest.json byte form: canonical JSON with sorted
// keys. These bytes are both signed and shipped; they must stay identical.
func (m Manifest) Canonical() ([]byte, error) {
	return canon.MarshalCanonical(map[string]string(m))
}

// Verify checks every manifest entry against the given file contents and
// reports entries that are missing or mismatched. Used by the bundle reader
// and tests to prove the digest round trip.
func (m Manifest) Verify(files map[string][]byte) error {
	var problems []string
	for name, expected := range m {
		data, ok := files[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: missing", name))
			continue
		}
		if actual := canon.SHA1Hex(data); !strings.EqualFold(actual, expected) {
			problems = append(problems, fmt.Sprintf("%s: digest mismatch", name))
		}
	}
	for name := range files {
		if _, ok := m[name]; !ok {
			problems = append(problems, fmt.Sprintf("%s: undeclared", name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("manifest verification failed: %s", strings.Join(problems, "; "))
	}
	return nil
}
