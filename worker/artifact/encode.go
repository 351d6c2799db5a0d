package artifact

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Normalize decodes the provider's raw artifact, resizes it to the task's
// requested dimensions when they were given, and re-encodes as PNG. The
// provider only supports a handful of fixed sizes, so exact target
// dimensions are produced here.
func Normalize(data []byte, targetWidth, targetHeight *int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}

	switch {
	case targetWidth != nil && targetHeight != nil:
		bounds := img.Bounds()
		if bounds.Dx() != *targetWidth || bounds.Dy() != *targetHeight {
			img = imaging.Fill(img, *targetWidth, *targetHeight, imaging.Center, imaging.Lanczos)
		}
	case targetWidth != nil:
		img = imaging.Resize(img, *targetWidth, 0, imaging.Lanczos)
	case targetHeight != nil:
		img = imaging.Resize(img, 0, *targetHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}

	return buf.Bytes(), nil
}
