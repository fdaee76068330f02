package analyzer

import (
	"context"
	"strings"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

// administrativeKeywords are generic municipal-act keywords the keyword
// analyzer flags regardless of concurso classification — the kind of
// coarse signal a consumer uses to route a gazette to the right desk
// before any heavier analyzer runs.
var administrativeKeywords = []string{
	"licitação", "pregão", "contrato", "decreto", "portaria", "convênio", "dispensa de licitação",
}

type keywordAnalyzer struct{}

// NewKeywordAnalyzer constructs the coarse administrative-keyword pass.
func NewKeywordAnalyzer() Analyzer { return keywordAnalyzer{} }

func (keywordAnalyzer) Name() string { return "keyword" }

func (keywordAnalyzer) Analyze(_ context.Context, input OCRInput, _ AnalysisOptions) AnalysisResult {
	lower := strings.ToLower(input.Text)
	var findings []gazette.Finding
	for _, kw := range administrativeKeywords {
		idx := strings.Index(lower, strings.ToLower(kw))
		if idx < 0 {
			continue
		}
		findings = append(findings, gazette.Finding{
			Type:       "keyword:" + kw,
			Confidence: 0.6,
			Location:   &gazette.Location{Offset: idx},
			Context:    contextSnippet(input.Text, idx, len(kw)),
		})
	}
	return AnalysisResult{Findings: findings, Status: "success"}
}
