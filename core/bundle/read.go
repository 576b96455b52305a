package bundle

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/MrDemonWolf/linkden-sub002/core/manifest"
)

// maxEntryBytes caps one archive member on read. Pass bundles are small;
// anything larger is malformed.
const maxEntryBytes = int64(16 * 1024 * 1024)

// Contents is a parsed pass bundle, split into the pieces verification
// needs: the signed manifest bytes, the signature, and every digested file.
type Contents struct {
	Descriptor    []byte
	ManifestBytes []byte
	Manifest      manifest.Manifest
	Signature     []byte
	// Files holds every member covered by the manifest, keyed by name.
	Files map[string][]byte
}

// Read parses archive bytes back into bundle contents. It enforces the flat
// layout and the presence of the manifest and signature members.
func Read(archiveBytes []byte) (Contents, error) {
	reader, err := zip.NewReader(bytes.NewReader(archiveBytes), int64(len(archiveBytes)))
	if err != nil {
		return Contents{}, fmt.Errorf("open bundle: %w", err)
	}

	files := make(map[string][]byte, len(reader.File))
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			return Contents{}, fmt.Errorf("bundle contains directory entry %s", entry.Name)
		}
		data, err := readEntry(entry)
		if err != nil {
			return Contents{}, fmt.Errorf("read bundle entry %s: %w", entry.Name, err)
		}
		files[entry.Name] = data
	}

	manifestBytes, ok := files[ManifestFileName]
	if !ok {
		return Contents{}, fmt.Errorf("bundle missing %s", ManifestFileName)
	}
	signature, ok := files[SignatureFileName]
	if !ok {
		return Contents{}, fmt.Errorf("bundle missing %s", SignatureFileName)
	}
	descriptorBytes, ok := files[manifest.DescriptorFileName]
	if !ok {
		return Contents{}, fmt.Errorf("bundle missing %s", manifest.DescriptorFileName)
	}

	var entries manifest.Manifest
	if err := json.Unmarshal(manifestBytes, &entries); err != nil {
		return Contents{}, fmt.Errorf("parse %s: %w", ManifestFileName, err)
	}

	delete(files, ManifestFileName)
	delete(files, SignatureFileName)

	return Contents{
		Descriptor:    descriptorBytes,
		ManifestBytes: manifestBytes,
		Manifest:      entries,
		Signature:     signature,
		Files:         files,
	}, nil
}

func readEntry(entry *zip.File) ([]byte, error) {
	reader, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()
	data, err := io.ReadAll(io.LimitReader(reader, maxEntryBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxEntryBytes {
		return nil, fmt.Errorf("entry too large")
	}
	return data, nil
}
