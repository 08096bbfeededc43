package chromedp

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
)

// thumbnail resizes a capture-resolution JPEG down to the small screenshot
// size with aspect-fill semantics: scale to cover, crop centered. Letterbox
// bars would look broken in the gallery grid.
func thumbnail(large []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(large))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	small := imaging.Fill(img, indexer.ThumbWidth, indexer.ThumbHeight, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, small, imaging.JPEG, imaging.JPEGQuality(indexer.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
