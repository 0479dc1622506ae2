package thumbnail

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// ThumbnailSize is the bounding width in pixels for document preview
// thumbnails. Height scales proportionally.
const ThumbnailSize = 300

// Generate decodes an uploaded image and returns a JPEG thumbnail resized to
// ThumbnailSize width. Only image content types should be passed in; the
// decode error for anything else propagates.
func Generate(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("thumbnail: decode image: %w", err)
	}

	thumb := imaging.Resize(img, ThumbnailSize, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("thumbnail: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
