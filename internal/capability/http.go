package capability

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/veridoc-io/veridoc/internal/normalize"
)

// Backend API paths.
const (
	captionPath = "/v1/caption"
	ocrPath     = "/v1/ocr"
)

// HTTPCaptioner talks to a captioning model server.
// Request:  POST {base}/v1/caption {"image": <base64 PNG>, "prompt": "..."}
// Response: {"caption": "..."}
type HTTPCaptioner struct {
	baseURL string
	client  *http.Client
}

// NewHTTPCaptioner creates a captioning client for the given base URL.
func NewHTTPCaptioner(baseURL string) *HTTPCaptioner {
	return &HTTPCaptioner{baseURL: baseURL, client: http.DefaultClient}
}

// Caption sends the image and prompt to the captioning backend and returns
// its free-text answer. Any transport or backend failure is reported as
// *ModelUnavailableError for the classification stage.
func (c *HTTPCaptioner) Caption(ctx context.Context, img *normalize.Image, prompt string) (string, error) {
	payload := struct {
		Image  string `json:"image"`
		Prompt string `json:"prompt"`
	}{Prompt: prompt}

	encoded, err := encodeImage(img)
	if err != nil {
		return "", &ModelUnavailableError{Stage: StageClassification, Err: err}
	}
	payload.Image = encoded

	var parsed struct {
		Caption string `json:"caption"`
	}
	if err := postJSON(ctx, c.client, c.baseURL+captionPath, payload, &parsed); err != nil {
		return "", &ModelUnavailableError{Stage: StageClassification, Err: err}
	}
	return parsed.Caption, nil
}

// HTTPExtractor talks to an OCR model server.
// Request:  POST {base}/v1/ocr {"image": <base64 PNG>}
// Response: {"regions": [{"text": "...", "confidence": 0.97, "box": {"x":..,"y":..,"w":..,"h":..}}]}
type HTTPExtractor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExtractor creates an OCR client for the given base URL.
func NewHTTPExtractor(baseURL string) *HTTPExtractor {
	return &HTTPExtractor{baseURL: baseURL, client: http.DefaultClient}
}

// ExtractRegions sends the image to the OCR backend and returns the detected
// regions. Any transport or backend failure is reported as
// *ModelUnavailableError for the extraction stage.
func (x *HTTPExtractor) ExtractRegions(ctx context.Context, img *normalize.Image) ([]Region, error) {
	payload := struct {
		Image string `json:"image"`
	}{}

	encoded, err := encodeImage(img)
	if err != nil {
		return nil, &ModelUnavailableError{Stage: StageExtraction, Err: err}
	}
	payload.Image = encoded

	var parsed struct {
		Regions []Region `json:"regions"`
	}
	if err := postJSON(ctx, x.client, x.baseURL+ocrPath, payload, &parsed); err != nil {
		return nil, &ModelUnavailableError{Stage: StageExtraction, Err: err}
	}
	return parsed.Regions, nil
}

func encodeImage(img *normalize.Image) (string, error) {
	data, err := img.EncodePNG()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func postJSON(ctx context.Context, client *http.Client, url string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend %s returned status %d: %s", url, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}
