package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/veridoc-io/veridoc/internal/capability"
)

// FakeModelBackend imitates the caption and OCR model servers over real HTTP.
// Tests configure its answers and point capability clients at URL(), so the
// full wire path (encode, POST, decode, error mapping) is exercised.
type FakeModelBackend struct {
	server *httptest.Server

	mu           sync.Mutex
	caption      string
	regions      []capability.Region
	unavailable  bool
	captionCalls int
	ocrCalls     int
}

// NewFakeModelBackend starts a backend serving the caption and OCR endpoints.
func NewFakeModelBackend() *FakeModelBackend {
	b := &FakeModelBackend{}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/caption", b.handleCaption)
	mux.HandleFunc("/v1/ocr", b.handleOCR)
	b.server = httptest.NewServer(mux)
	return b
}

// URL returns the backend base URL.
func (b *FakeModelBackend) URL() string { return b.server.URL }

// Close shuts the backend down.
func (b *FakeModelBackend) Close() { b.server.Close() }

// SetCaption sets the answer for caption requests.
func (b *FakeModelBackend) SetCaption(caption string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.caption = caption
}

// SetRegions sets the answer for OCR requests.
func (b *FakeModelBackend) SetRegions(regions []capability.Region) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regions = regions
}

// SetUnavailable makes both endpoints answer 503 until reset.
func (b *FakeModelBackend) SetUnavailable(unavailable bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unavailable = unavailable
}

// CaptionCalls reports how many caption requests arrived.
func (b *FakeModelBackend) CaptionCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.captionCalls
}

// OCRCalls reports how many OCR requests arrived.
func (b *FakeModelBackend) OCRCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ocrCalls
}

func (b *FakeModelBackend) handleCaption(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.captionCalls++
	caption := b.caption
	unavailable := b.unavailable
	b.mu.Unlock()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if unavailable {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Image  string `json:"image"`
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Image == "" {
		http.Error(w, "missing image", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"caption": caption})
}

func (b *FakeModelBackend) handleOCR(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.ocrCalls++
	regions := b.regions
	unavailable := b.unavailable
	b.mu.Unlock()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if unavailable {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Image == "" {
		http.Error(w, "missing image", http.StatusBadRequest)
		return
	}

	if regions == nil {
		regions = []capability.Region{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string][]capability.Region{"regions": regions})
}

// WordRegions builds one OCR region per word, laid out left to right on a
// single line, all with the same confidence.
func WordRegions(confidence float64, words ...string) []capability.Region {
	regions := make([]capability.Region, len(words))
	x := 10
	for i, word := range words {
		w := 12 * len(word)
		regions[i] = capability.Region{
			Text:       word,
			Confidence: confidence,
			Box:        capability.Box{X: x, Y: 20, W: w, H: 18},
		}
		x += w + 8
	}
	return regions
}
