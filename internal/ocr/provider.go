// Package ocr is the thin client for the OCR stage's external provider
// (spec.md §1 Non-goal: OCR is delegated, never parsed in-process). It
// exchanges a gazette's fileUrl for the text the analyzer consumes,
// grounded on internal/ai/ollama.go's minimal JSON-over-HTTP backend
// shape — a single request/response pair against one configured host.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Provider is the OCR-stage plug point: given a PDF URL, return its
// extracted text.
type Provider interface {
	Transcribe(ctx context.Context, fileURL string) (string, error)
}

// HTTPProvider calls a remote OCR service over HTTP POST.
type HTTPProvider struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPProvider constructs a client against baseURL with a generous
// timeout (OCR jobs run far longer than a typical crawl request).
func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{BaseURL: baseURL, Client: &http.Client{Timeout: 2 * time.Minute}}
}

type transcribeRequest struct {
	FileURL string `json:"fileUrl"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe implements Provider.
func (p *HTTPProvider) Transcribe(ctx context.Context, fileURL string) (string, error) {
	reqBody, err := json.Marshal(transcribeRequest{FileURL: fileURL})
	if err != nil {
		return "", fmt.Errorf("marshal ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/transcribe", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr provider returned status %d", resp.StatusCode)
	}

	var parsed transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	return parsed.Text, nil
}
