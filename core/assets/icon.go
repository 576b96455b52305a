package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

// Default icon renditions for configs that never uploaded one. Rendered once
// per process; png.Encode is deterministic for a fixed image, so the bundled
// fallback never perturbs bundle fingerprints.
var (
	defaultIconOnce sync.Once
	defaultIcon1x   []byte
	defaultIcon2x   []byte
)

var defaultIconFill = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}

// DefaultIcon returns the bundled icon.png and icon@2x.png payloads.
// Callers must not mutate the returned slices.
func DefaultIcon() ([]byte, []byte) {
	defaultIconOnce.Do(func() {
		defaultIcon1x = renderSquare(29)
		defaultIcon2x = renderSquare(58)
	})
	return defaultIcon1x, defaultIcon2x
}

func renderSquare(side int) []byte {
	canvas := image.NewRGBA(image.Rect(0, 0, side, side))
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			canvas.SetRGBA(x, y, defaultIconFill)
		}
	}
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, canvas); err != nil {
		// Encoding an in-memory RGBA image cannot fail; treat it as such.
		panic(err)
	}
	return buffer.Bytes()
}
