package server

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/veridoc-io/veridoc/internal/pipeline"
	"github.com/veridoc-io/veridoc/internal/scoring"
)

// stubVerifier is a canned pipeline implementation for handler tests.
type stubVerifier struct {
	outcome *pipeline.Outcome
	err     error
	calls   int
	lastReq pipeline.Request
}

func (v *stubVerifier) Verify(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error) {
	v.calls++
	v.lastReq = req
	if v.err != nil {
		return nil, v.err
	}
	return v.outcome, nil
}

// newTestServer builds a server around a stub verifier with no store and no
// cache.
func newTestServer(v verifier) *Server {
	return New(Config{
		Host:        "localhost",
		Port:        8080,
		CORSOrigin:  "*",
		MaxUploadMB: 20,
		CaptionURL:  "http://caption.test",
		OCRURL:      "http://ocr.test",
	}, v, nil, nil)
}

// approvedOutcome returns a canned high-confidence outcome.
func approvedOutcome() *pipeline.Outcome {
	return &pipeline.Outcome{
		IsValid:  true,
		Decision: scoring.DecisionAutoApprove,
		Scores: scoring.Scores{
			Overall: 0.92,
			Components: map[scoring.Component]float64{
				scoring.ComponentImageType: 0.95,
				scoring.ComponentNameMatch: 0.9,
				scoring.ComponentRollMatch: 1.0,
				scoring.ComponentOCR:       0.88,
			},
		},
		Message: "verified successfully",
	}
}

// createTestDocument encodes a small gradient PNG to upload in tests.
func createTestDocument(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := byte(x % 256)
			g := byte(y % 256)
			img.Set(x, y, color.RGBA{r, g, 0, 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// createVerifyRequest builds a multipart verification request with a
// document file and claim fields.
func createVerifyRequest(target string, document []byte, fields map[string]string) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if document != nil {
		part, err := writer.CreateFormFile("document", "document.png")
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(document); err != nil {
			return nil, err
		}
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}
