package normalize

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxDimension bounds the longer image edge after normalization.
// Larger uploads are downscaled to keep model inference latency bounded.
const DefaultMaxDimension = 1920

// DecodeError reports that uploaded bytes could not be decoded as an image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Image is an upright RGB image ready for the model capabilities.
// The pixel buffer is always fully opaque NRGBA.
type Image struct {
	Pixels *image.NRGBA
	Width  int
	Height int
	Format string // source format as reported by the decoder ("jpeg", "png", ...)
}

// EncodePNG serializes the normalized pixels as PNG for transport to a
// capability endpoint.
func (img *Image) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img.Pixels); err != nil {
		return nil, fmt.Errorf("encode normalized image: %w", err)
	}
	return buf.Bytes(), nil
}

// Config holds configuration for the image normalizer.
type Config struct {
	MaxDimension int // longer-edge cap in pixels (default: 1920)
}

// DefaultConfig returns the default normalizer configuration.
func DefaultConfig() Config {
	return Config{MaxDimension: DefaultMaxDimension}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxDimension <= 0 {
		return fmt.Errorf("max dimension must be positive, got %d", c.MaxDimension)
	}
	return nil
}

// Normalizer converts raw uploaded bytes into upright, bounded RGB images.
type Normalizer struct {
	config Config
}

// New creates a Normalizer with the given configuration.
func New(config Config) (*Normalizer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid normalizer config: %w", err)
	}
	return &Normalizer{config: config}, nil
}

// Normalize decodes raw image bytes, applies the EXIF orientation, converts
// to opaque RGB and caps the longer edge at the configured maximum.
// Returns *DecodeError when the bytes are not a decodable image.
func (n *Normalizer) Normalize(raw []byte) (*Image, error) {
	if len(raw) == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("empty input")}
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	img = applyOrientation(img, readOrientation(raw))
	rgba := flattenToRGB(img)
	rgba = boundDimensions(rgba, n.config.MaxDimension)

	b := rgba.Bounds()
	return &Image{
		Pixels: rgba,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
	}, nil
}

// flattenToRGB clones into NRGBA and composites any transparency onto a
// white background so downstream models never see an alpha channel.
func flattenToRGB(img image.Image) *image.NRGBA {
	rgba := imaging.Clone(img)
	if rgba.Opaque() {
		return rgba
	}
	background := imaging.New(rgba.Bounds().Dx(), rgba.Bounds().Dy(), color.White)
	return imaging.Overlay(background, rgba, image.Pt(0, 0), 1.0)
}

// boundDimensions downscales so the longer edge equals maxDim, preserving
// aspect ratio. Images at or under the cap pass through untouched.
func boundDimensions(img *image.NRGBA, maxDim int) *image.NRGBA {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	longer := width
	if height > longer {
		longer = height
	}
	if longer <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(longer)
	if width >= height {
		return imaging.Resize(img, maxDim, roundDim(float64(height)*scale), imaging.Lanczos)
	}
	return imaging.Resize(img, roundDim(float64(width)*scale), maxDim, imaging.Lanczos)
}

func roundDim(v float64) int {
	d := int(math.Round(v))
	if d < 1 {
		return 1
	}
	return d
}
