// Package ai is the local/hosted completion backend the "ai" analyzer
// (internal/analyzer) calls through its Client interface. Narrowed from
// the teacher's embedding+completion OllamaClient down to completion
// only — nothing in this domain does semantic/embedding search (the
// concurso analyzer classifies by pattern catalog, not vector
// similarity), so GenerateEmbedding and its pgvector-oriented callers
// are dropped; see DESIGN.md.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// OllamaClient talks to a local Ollama-compatible completion endpoint.
type OllamaClient struct {
	BaseURL  string
	GenModel string
}

// NewOllamaClient constructs a client, defaulting baseURL and genModel
// when unset.
func NewOllamaClient(baseURL, genModel string) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if genModel == "" {
		genModel = "llama3.2:latest"
	}
	return &OllamaClient{BaseURL: baseURL, GenModel: genModel}
}

// Complete implements analyzer.Client: a single non-streaming completion
// call over the configured generation model.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.GenerateCompletion(ctx, prompt, false)
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format,omitempty"` // For JSON mode
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *OllamaClient) GenerateCompletion(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	reqBody := generateRequest{
		Model:  c.GenModel,
		Prompt: prompt,
		Stream: false,
	}
	if jsonMode {
		reqBody.Format = "json"
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status: %d", resp.StatusCode)
	}

	var parsedResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsedResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return parsedResp.Response, nil
}
