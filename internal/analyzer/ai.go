package analyzer

import (
	"context"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

// Client is the pluggable completion backend an AI analyzer calls out
// to, grounded on the teacher's OllamaClient.GenerateCompletion shape —
// narrowed to the single method this analyzer needs so any local or
// hosted model client can satisfy it.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type aiAnalyzer struct {
	client Client
}

// NewAIAnalyzer constructs the AI analyzer plug point. A nil client
// means AI classification is not configured for this deployment; the
// analyzer then reports success with no findings rather than failing
// the run.
func NewAIAnalyzer(client Client) Analyzer { return aiAnalyzer{client: client} }

func (aiAnalyzer) Name() string { return "ai" }

func (a aiAnalyzer) Analyze(ctx context.Context, input OCRInput, _ AnalysisOptions) AnalysisResult {
	if a.client == nil {
		return AnalysisResult{Status: "success"}
	}

	prompt := buildClassificationPrompt(input.Text)
	response, err := a.client.Complete(ctx, prompt)
	if err != nil {
		return AnalysisResult{Status: "failure", Err: err}
	}
	if response == "" {
		return AnalysisResult{Status: "success"}
	}

	return AnalysisResult{
		Findings: []gazette.Finding{{Type: "ai:classification", Confidence: 0.75, Data: map[string]any{"response": response}}},
		Status:   "success",
	}
}

func buildClassificationPrompt(text string) string {
	return "Classify the following Brazilian municipal gazette excerpt as one of: " +
		"edital_abertura, edital_retificacao, convocacao, homologacao, prorrogacao, " +
		"cancelamento, resultado_parcial, gabarito, nao_classificado.\n\n" + text
}
