package thumbs

import (
	"bytes"

	"github.com/disintegration/imaging"
)

// renderThumbnail decodes an image file and produces a center-cropped square
// thumbnail of maxDim pixels, encoded as PNG. Square tiles always fill their
// grid bounds.
func renderThumbnail(path string, maxDim int) ([]byte, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	thumb := imaging.Fill(img, maxDim, maxDim, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
