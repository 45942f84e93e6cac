package imageproxy

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	_ "image/png" // Register PNG decoder

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// MaxSourcePixels bounds the declared width*height of a source image. The
// header is checked before decoding, so a small file declaring huge
// dimensions is rejected without allocating its pixel buffer.
const MaxSourcePixels = 100_000_000

// Transcoder defines the interface for turning source bytes into a response image.
type Transcoder interface {
	// Transcode decodes data, corrects orientation, applies t, and returns JPEG bytes.
	Transcode(data []byte, t Transform) ([]byte, error)
}

// ImageTranscoder implements Transcoder using the imaging library.
type ImageTranscoder struct{}

// NewTranscoder creates a new ImageTranscoder instance.
func NewTranscoder() Transcoder {
	return &ImageTranscoder{}
}

// Transcode decodes the source, applies its EXIF orientation, scales it down
// to t.Width preserving aspect ratio, and encodes it as JPEG at t.Quality.
// Sources already at or below t.Width keep their size.
func (p *ImageTranscoder) Transcode(data []byte, t Transform) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrDecodeFailed)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: width %d quality %d", err, t.Width, t.Quality)
	}

	if err := checkDimensions(data); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	img = resizeDown(img, t.Width)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(t.Quality)); err != nil {
		return nil, fmt.Errorf("%w: failed to encode JPEG: %v", ErrTranscodeFailed, err)
	}

	return buf.Bytes(), nil
}

// resizeDown scales img to maxWidth, keeping its aspect ratio. Images that
// are not wider than maxWidth are returned unchanged.
func resizeDown(img image.Image, maxWidth int) image.Image {
	if maxWidth <= 0 || img.Bounds().Dx() <= maxWidth {
		return img
	}
	// Height 0 lets imaging derive it from the aspect ratio.
	return imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
}

// checkDimensions reads only the image header and rejects sources whose
// pixel count exceeds MaxSourcePixels.
func checkDimensions(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrDecodeFailed, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecodeFailed, cfg.Width, cfg.Height, MaxSourcePixels)
	}
	return nil
}
