// Package imageprep turns an uploaded photo into the JPEG bytes sent to the vision
// services.
package imageprep

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var ErrEmpty = errors.New("empty image")

type Preparer struct {
	// MaxDim bounds the longer side; 0 keeps the original size.
	MaxDim  int
	Quality int
}

func New(maxDim, quality int) *Preparer {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &Preparer{MaxDim: maxDim, Quality: quality}
}

// Prepare decodes data (JPEG, PNG, GIF, BMP, TIFF or WebP), applies the EXIF orientation,
// shrinks it to fit MaxDim and re-encodes it as JPEG.
func (p *Preparer) Prepare(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if p.MaxDim > 0 {
		b := img.Bounds()
		if b.Dx() > p.MaxDim || b.Dy() > p.MaxDim {
			img = imaging.Fit(img, p.MaxDim, p.MaxDim, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.Quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
