package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTranscribeReturnsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req transcribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.FileURL != "https://example.com/g.pdf" {
			t.Errorf("fileUrl = %q, want https://example.com/g.pdf", req.FileURL)
		}
		json.NewEncoder(w).Encode(transcribeResponse{Text: "extracted text"})
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	text, err := p.Transcribe(context.Background(), "https://example.com/g.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "extracted text" {
		t.Errorf("text = %q, want %q", text, "extracted text")
	}
}

func TestTranscribeNonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	if _, err := p.Transcribe(context.Background(), "https://example.com/g.pdf"); err == nil {
		t.Fatal("expected an error for a non-200 provider response")
	}
}
