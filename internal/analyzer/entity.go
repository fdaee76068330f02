package analyzer

import (
	"context"
	"regexp"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

var (
	cnpjPattern  = regexp.MustCompile(`\b\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}\b`)
	cpfPattern   = regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b`)
	moneyPattern = regexp.MustCompile(`(?i)r\$\s*[\d.,]+`)
)

type entityAnalyzer struct{}

// NewEntityAnalyzer constructs the generic entity-extraction analyzer:
// CNPJ/CPF registration numbers and monetary amounts, independent of
// document classification.
func NewEntityAnalyzer() Analyzer { return entityAnalyzer{} }

func (entityAnalyzer) Name() string { return "entity" }

func (entityAnalyzer) Analyze(_ context.Context, input OCRInput, _ AnalysisOptions) AnalysisResult {
	var findings []gazette.Finding
	findings = append(findings, entityFindings(input.Text, "entity:cnpj", cnpjPattern)...)
	findings = append(findings, entityFindings(input.Text, "entity:cpf", cpfPattern)...)
	findings = append(findings, entityFindings(input.Text, "entity:money", moneyPattern)...)
	return AnalysisResult{Findings: findings, Status: "success"}
}

func entityFindings(text, typeTag string, re *regexp.Regexp) []gazette.Finding {
	var out []gazette.Finding
	for _, loc := range re.FindAllStringIndex(text, -1) {
		value := text[loc[0]:loc[1]]
		out = append(out, gazette.Finding{
			Type:       typeTag,
			Confidence: 0.8,
			Data:       map[string]any{"value": value},
			Location:   &gazette.Location{Offset: loc[0]},
			Context:    contextSnippet(text, loc[0], loc[1]-loc[0]),
		})
	}
	return out
}
