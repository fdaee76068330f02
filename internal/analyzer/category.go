package analyzer

import (
	"context"
	"strings"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

// categoryKeywords maps a broad municipal category to the keywords that
// signal it — a coarser cousin of the concurso catalog, used to route a
// gazette that never mentions a concurso at all.
var categoryKeywords = map[string][]string{
	"recursos_humanos": {"nomeação", "exoneração", "nomeia", "quadro de pessoal"},
	"licitacao":        {"licitação", "pregão", "tomada de preços", "dispensa de licitação"},
	"legislativo":      {"lei nº", "lei complementar", "projeto de lei"},
	"orcamento":        {"orçamento", "crédito adicional", "dotação orçamentária"},
}

type categoryAnalyzer struct{}

// NewCategoryAnalyzer constructs the broad-category classifier.
func NewCategoryAnalyzer() Analyzer { return categoryAnalyzer{} }

func (categoryAnalyzer) Name() string { return "category" }

func (categoryAnalyzer) Analyze(_ context.Context, input OCRInput, _ AnalysisOptions) AnalysisResult {
	lower := strings.ToLower(input.Text)
	var findings []gazette.Finding
	for category, keywords := range categoryKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				findings = append(findings, gazette.Finding{Type: "category:" + category, Confidence: 1.0})
				break
			}
		}
	}
	return AnalysisResult{Findings: findings, Status: "success"}
}
