// Package testutil renders synthetic student documents and runs fake model
// backends so pipeline, server and integration tests share realistic inputs
// without real model servers or scanned documents.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DocumentSize represents document pixel dimensions.
type DocumentSize struct {
	Width  int
	Height int
}

var (
	// Common synthetic document sizes.
	IDCardSize      = DocumentSize{640, 400}
	CertificateSize = DocumentSize{800, 600}
)

// DocumentConfig holds configuration for rendering a synthetic document.
type DocumentConfig struct {
	Lines      []string
	Size       DocumentSize
	Background color.Color
	Foreground color.Color
	FontFace   font.Face
	Rotation   float64 // rotation in degrees
}

// DefaultDocumentConfig returns a default configuration for synthetic documents.
func DefaultDocumentConfig() DocumentConfig {
	return DocumentConfig{
		Size:       IDCardSize,
		Background: color.White,
		Foreground: color.Black,
		FontFace:   basicfont.Face7x13,
		Rotation:   0,
	}
}

// RenderDocument draws the configured text lines centered on a document image.
func RenderDocument(config DocumentConfig) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, config.Size.Width, config.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{config.Background}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{config.Foreground},
		Face: config.FontFace,
	}

	// Double-spaced lines read closer to a printed card than tight text.
	lineHeight := config.FontFace.Metrics().Height.Ceil() * 2
	startY := (config.Size.Height - len(config.Lines)*lineHeight) / 2
	for i, line := range config.Lines {
		y := startY + (i+1)*lineHeight
		textWidth := font.MeasureString(config.FontFace, line).Ceil()
		x := (config.Size.Width - textWidth) / 2
		drawer.Dot = fixed.P(x, y)
		drawer.DrawString(line)
	}

	if config.Rotation != 0 {
		rotated := imaging.Rotate(img, config.Rotation, color.White)
		rgba := image.NewRGBA(rotated.Bounds())
		draw.Draw(rgba, rgba.Bounds(), rotated, rotated.Bounds().Min, draw.Src)
		return rgba, nil
	}

	return img, nil
}

// CollegeIDImage renders a synthetic student identity card.
func CollegeIDImage(name, rollNumber string) (*image.RGBA, error) {
	config := DefaultDocumentConfig()
	config.Lines = []string{
		"NATIONAL INSTITUTE OF TECHNOLOGY",
		"STUDENT IDENTITY CARD",
		"Name: " + name,
		"Roll No: " + rollNumber,
		"Department of Computer Science",
	}
	return RenderDocument(config)
}

// CertificateImage renders a synthetic course completion certificate.
func CertificateImage(name, skill string) (*image.RGBA, error) {
	config := DefaultDocumentConfig()
	config.Size = CertificateSize
	config.Lines = []string{
		"CERTIFICATE OF COMPLETION",
		"This certifies that",
		name,
		"has successfully completed",
		skill,
	}
	return RenderDocument(config)
}

// CollegeIDPNG renders a student identity card and returns it PNG-encoded.
func CollegeIDPNG(t *testing.T, name, rollNumber string) []byte {
	t.Helper()

	img, err := CollegeIDImage(name, rollNumber)
	require.NoError(t, err, "Failed to render college ID for %s", name)
	return EncodePNG(t, img)
}

// CertificatePNG renders a certificate and returns it PNG-encoded.
func CertificatePNG(t *testing.T, name, skill string) []byte {
	t.Helper()

	img, err := CertificateImage(name, skill)
	require.NoError(t, err, "Failed to render certificate for %s", name)
	return EncodePNG(t, img)
}

// EncodePNG encodes an image as PNG.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img), "Failed to encode PNG image")
	return buf.Bytes()
}

// SaveDocument writes a rendered document to the given path as PNG.
func SaveDocument(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}
