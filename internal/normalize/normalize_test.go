package normalize

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNormalize_InvalidBytes(t *testing.T) {
	n, err := New(DefaultConfig())
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "empty", raw: nil},
		{name: "garbage", raw: []byte("definitely not an image")},
		{name: "truncated png header", raw: []byte{0x89, 0x50, 0x4E, 0x47}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.raw)
			require.Error(t, err)
			var decodeErr *DecodeError
			assert.ErrorAs(t, err, &decodeErr)
		})
	}
}

func TestNormalize_CapsLongerEdge(t *testing.T) {
	n, err := New(Config{MaxDimension: 100})
	require.NoError(t, err)

	img, err := n.Normalize(encodePNG(t, solidImage(400, 200, color.White)))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Width)
	assert.Equal(t, 50, img.Height)

	// Portrait input caps the height instead.
	img, err = n.Normalize(encodePNG(t, solidImage(200, 400, color.White)))
	require.NoError(t, err)
	assert.Equal(t, 50, img.Width)
	assert.Equal(t, 100, img.Height)
}

func TestNormalize_NeverUpscales(t *testing.T) {
	n, err := New(DefaultConfig())
	require.NoError(t, err)

	img, err := n.Normalize(encodePNG(t, solidImage(320, 240, color.White)))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Width)
	assert.Equal(t, 240, img.Height)
}

func TestNormalize_AlphaCompositesOntoWhite(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	// Fully transparent image should come out white, not black.
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 255, G: 0, B: 0, A: 0})
		}
	}

	n, err := New(DefaultConfig())
	require.NoError(t, err)
	img, err := n.Normalize(encodePNG(t, src))
	require.NoError(t, err)

	require.True(t, img.Pixels.Opaque())
	r, g, b, _ := img.Pixels.At(4, 4).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0xffff), b)
}

func TestNormalize_GrayscaleConvertsToRGB(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			gray.SetGray(x, y, color.Gray{Y: 128})
		}
	}

	n, err := New(DefaultConfig())
	require.NoError(t, err)
	img, err := n.Normalize(encodePNG(t, gray))
	require.NoError(t, err)

	assert.Equal(t, 16, img.Width)
	assert.Equal(t, 16, img.Height)
	assert.True(t, img.Pixels.Opaque())
}

func TestNormalize_PreservesAspectRatio(t *testing.T) {
	n, err := New(Config{MaxDimension: 300})
	require.NoError(t, err)

	img, err := n.Normalize(encodePNG(t, solidImage(900, 600, color.White)))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Width)
	assert.Equal(t, 200, img.Height)
}

func TestEncodePNG_RoundTrips(t *testing.T) {
	n, err := New(DefaultConfig())
	require.NoError(t, err)
	img, err := n.Normalize(encodePNG(t, solidImage(10, 10, color.NRGBA{R: 10, G: 20, B: 30, A: 255})))
	require.NoError(t, err)

	data, err := img.EncodePNG()
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 10, decoded.Bounds().Dx())
}

func TestReadOrientation_NoEXIF(t *testing.T) {
	// PNG carries no EXIF block; orientation must default to upright.
	raw := encodePNG(t, solidImage(4, 4, color.White))
	assert.Equal(t, orientationUpright, readOrientation(raw))
}

func TestApplyOrientation(t *testing.T) {
	// 2x1 strip: red on the left, blue on the right.
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{B: 255, A: 255})

	redAt := func(t *testing.T, img image.Image, x, y int) {
		t.Helper()
		r, _, b, _ := img.At(x, y).RGBA()
		assert.Equal(t, uint32(0xffff), r)
		assert.Equal(t, uint32(0), b)
	}

	tests := []struct {
		name        string
		orientation int
		wantW       int
		wantH       int
		check       func(t *testing.T, img image.Image)
	}{
		{
			name: "upright unchanged", orientation: orientationUpright, wantW: 2, wantH: 1,
			check: func(t *testing.T, img image.Image) { redAt(t, img, 0, 0) },
		},
		{
			name: "horizontal flip", orientation: orientationFlipH, wantW: 2, wantH: 1,
			check: func(t *testing.T, img image.Image) { redAt(t, img, 1, 0) },
		},
		{
			name: "rotate 180", orientation: orientationRotate180, wantW: 2, wantH: 1,
			check: func(t *testing.T, img image.Image) { redAt(t, img, 1, 0) },
		},
		{
			name: "vertical flip", orientation: orientationFlipV, wantW: 2, wantH: 1,
			check: func(t *testing.T, img image.Image) { redAt(t, img, 0, 0) },
		},
		{
			name: "transpose swaps axes", orientation: orientationTranspose, wantW: 1, wantH: 2,
		},
		{
			name: "rotate 90 cw", orientation: orientationRotate90CW, wantW: 1, wantH: 2,
			check: func(t *testing.T, img image.Image) { redAt(t, img, 0, 0) },
		},
		{
			name: "transverse swaps axes", orientation: orientationTransverse, wantW: 1, wantH: 2,
		},
		{
			name: "rotate 270 cw", orientation: orientationRotate270CW, wantW: 1, wantH: 2,
			check: func(t *testing.T, img image.Image) { redAt(t, img, 0, 1) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := applyOrientation(src, tt.orientation)
			b := out.Bounds()
			assert.Equal(t, tt.wantW, b.Dx())
			assert.Equal(t, tt.wantH, b.Dy())
			if tt.check != nil {
				tt.check(t, out)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{MaxDimension: 0}.Validate())
	assert.Error(t, Config{MaxDimension: -1}.Validate())

	_, err := New(Config{MaxDimension: -10})
	assert.Error(t, err)
}
