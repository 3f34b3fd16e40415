// Package docfile prepares uploaded document bytes for normalization.
// PDFs are reduced to their first-page image; anything else passes through
// untouched and is judged by the image decoder downstream.
package docfile

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	_ "golang.org/x/image/tiff"

	"github.com/veridoc-io/veridoc/internal/normalize"
)

const pdfMagic = "%PDF-"

// IsPDF reports whether raw starts with the PDF file signature.
func IsPDF(raw []byte) bool {
	return bytes.HasPrefix(raw, []byte(pdfMagic))
}

// Prepare returns image bytes ready for normalization. Non-PDF input is
// returned unchanged. For PDFs the largest image on the first page is
// extracted; a corrupt or imageless PDF fails with *normalize.DecodeError so
// callers treat it like any other unreadable upload.
func Prepare(raw []byte) ([]byte, error) {
	if !IsPDF(raw) {
		return raw, nil
	}
	return firstPageImage(raw)
}

func firstPageImage(raw []byte) ([]byte, error) {
	tempDir, err := os.MkdirTemp("", "veridoc-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	inFile := filepath.Join(tempDir, "document.pdf")
	if err := os.WriteFile(inFile, raw, 0o600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}
	outDir := filepath.Join(tempDir, "images")
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("create extraction directory: %w", err)
	}

	if err := api.ExtractImagesFile(inFile, outDir, []string{"1"}, nil); err != nil {
		return nil, &normalize.DecodeError{Err: fmt.Errorf("extract images from pdf: %w", err)}
	}

	best, err := largestImageFile(outDir)
	if err != nil {
		return nil, err
	}
	if best == "" {
		return nil, &normalize.DecodeError{Err: errors.New("pdf first page contains no images")}
	}

	data, err := os.ReadFile(best) //nolint:gosec // G304: path comes from our own temp dir walk
	if err != nil {
		return nil, fmt.Errorf("read extracted image: %w", err)
	}
	return data, nil
}

// largestImageFile picks the extracted image with the largest pixel area.
// Scanned documents embed the page as one big raster; smaller images are
// logos or decorations.
func largestImageFile(dir string) (string, error) {
	var (
		bestPath string
		bestArea int
	)
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		area, err := imageArea(path)
		if err != nil {
			// Skip extraction artifacts that are not decodable images.
			return nil
		}
		if area > bestArea {
			bestPath = path
			bestArea = area
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan extracted images: %w", err)
	}
	return bestPath, nil
}

func imageArea(path string) (int, error) {
	file, err := os.Open(path) //nolint:gosec // G304: path comes from our own temp dir walk
	if err != nil {
		return 0, err
	}
	defer func() { _ = file.Close() }()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, err
	}
	return cfg.Width * cfg.Height, nil
}
