// Package assets resolves the image files a pass bundle embeds. Names are
// normalized into the fixed platform vocabulary and every payload is
// content-sniffed as PNG before it is accepted.
package assets

import (
	"bytes"
	"fmt"
	"image/png"

	coreerrors "github.com/MrDemonWolf/linkden-sub002/core/errors"
)

// Canonical asset file names recognized by the wallet unpacker.
const (
	NameIcon        = "icon.png"
	NameIcon2x      = "icon@2x.png"
	NameIcon3x      = "icon@3x.png"
	NameLogo        = "logo.png"
	NameLogo2x      = "logo@2x.png"
	NameLogo3x      = "logo@3x.png"
	NameStrip       = "strip.png"
	NameStrip2x     = "strip@2x.png"
	NameStrip3x     = "strip@3x.png"
	NameThumbnail   = "thumbnail.png"
	NameThumbnail2x = "thumbnail@2x.png"
	NameThumbnail3x = "thumbnail@3x.png"
)

var recognizedNames = map[string]struct{}{
	NameIcon: {}, NameIcon2x: {}, NameIcon3x: {},
	NameLogo: {}, NameLogo2x: {}, NameLogo3x: {},
	NameStrip: {}, NameStrip2x: {}, NameStrip3x: {},
	NameThumbnail: {}, NameThumbnail2x: {}, NameThumbnail3x: {},
}

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Set maps canonical file names to raw PNG bytes. Built once per build and
// read-only downstream.
type Set map[string][]byte

// Validate enforces the set invariants: the required icon pair is present
// and every name belongs to the platform vocabulary.
func (s Set) Validate() error {
	for _, required := range []string{NameIcon, NameIcon2x} {
		if len(s[required]) == 0 {
			return coreerrors.Classify(
				coreerrors.ErrAssetFetch,
				fmt.Errorf("required asset %s missing", required),
				coreerrors.CategoryAssetResolution,
				"required_asset_missing",
				"every pass needs icon.png and icon@2x.png",
				false,
			)
		}
	}
	for name := range s {
		if _, ok := recognizedNames[name]; !ok {
			return coreerrors.Classify(
				coreerrors.ErrAssetFetch,
				fmt.Errorf("unrecognized asset name %s", name),
				coreerrors.CategoryAssetResolution,
				"asset_name_unrecognized",
				"asset names must come from the fixed platform vocabulary",
				false,
			)
		}
	}
	return nil
}

// SniffPNG verifies that data is a decodable PNG by content, never by name.
func SniffPNG(name string, data []byte) error {
	if !bytes.HasPrefix(data, pngMagic) {
		return unsupportedFormat(name, fmt.Errorf("missing PNG signature"))
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return unsupportedFormat(name, err)
	}
	return nil
}

func unsupportedFormat(name string, cause error) error {
	return coreerrors.Classify(
		coreerrors.ErrUnsupportedImageFormat,
		fmt.Errorf("%s: %w", name, cause),
		coreerrors.CategoryAssetResolution,
		"asset_not_png",
		"pass images must be PNG; re-export the image and update the reference",
		false,
	)
}
