package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inkPixels counts pixels noticeably darker than the white background.
func inkPixels(img image.Image) int {
	bounds := img.Bounds()
	count := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r < 0x8000 && g < 0x8000 && b < 0x8000 {
				count++
			}
		}
	}
	return count
}

func TestRenderDocument_Dimensions(t *testing.T) {
	config := DefaultDocumentConfig()
	config.Lines = []string{"Sample Line"}

	img, err := RenderDocument(config)
	require.NoError(t, err)
	assert.Equal(t, IDCardSize.Width, img.Bounds().Dx())
	assert.Equal(t, IDCardSize.Height, img.Bounds().Dy())
}

func TestRenderDocument_DrawsText(t *testing.T) {
	config := DefaultDocumentConfig()
	config.Lines = []string{"Name: Priya Sharma", "Roll No: 21CS045"}

	img, err := RenderDocument(config)
	require.NoError(t, err)
	assert.Positive(t, inkPixels(img), "rendered document should contain dark text pixels")
}

func TestRenderDocument_Rotation(t *testing.T) {
	config := DefaultDocumentConfig()
	config.Lines = []string{"Rotated Card"}
	config.Rotation = 45

	img, err := RenderDocument(config)
	require.NoError(t, err)

	// A 45-degree rotation grows the bounding box beyond the original.
	assert.Greater(t, img.Bounds().Dx(), IDCardSize.Width)
	assert.Greater(t, img.Bounds().Dy(), IDCardSize.Height)
}

func TestCollegeIDImage(t *testing.T) {
	img, err := CollegeIDImage("Priya Sharma", "21CS045")
	require.NoError(t, err)
	assert.Equal(t, IDCardSize.Width, img.Bounds().Dx())
	assert.Positive(t, inkPixels(img))
}

func TestCertificateImage(t *testing.T) {
	img, err := CertificateImage("Rahul Verma", "Advanced Python")
	require.NoError(t, err)
	assert.Equal(t, CertificateSize.Width, img.Bounds().Dx())
	assert.Positive(t, inkPixels(img))
}

func TestCollegeIDPNG_Decodes(t *testing.T) {
	data := CollegeIDPNG(t, "Priya Sharma", "21CS045")

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, IDCardSize.Width, img.Bounds().Dx())
}

func TestSaveDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards", "id.png")
	img, err := CollegeIDImage("Asha Patel", "22EC010")
	require.NoError(t, err)

	SaveDocument(t, img, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestRenderDocument_CustomColors(t *testing.T) {
	config := DefaultDocumentConfig()
	config.Lines = []string{"Scanned Card"}
	config.Background = color.RGBA{248, 248, 248, 255}
	config.Foreground = color.RGBA{32, 32, 32, 255}

	img, err := RenderDocument(config)
	require.NoError(t, err)

	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(248<<8|248), r)
	assert.Equal(t, uint32(248<<8|248), g)
	assert.Equal(t, uint32(248<<8|248), b)
}
