// Package analyzer's orchestrator (§4.E.5/§4.E.6) runs a configurable
// set of analyzers in priority order over one OCR'd document, enforcing
// a per-analyzer timeout, merging and deduplicating their findings, and
// computing the aggregate summary. Grounded on the teacher's
// internal/ingest/pipeline.go run loop (per-item work isolated so one
// failure never halts the batch) generalized from "ingest one source"
// to "run one analyzer".
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

// OCRInput is the orchestrator's input: OCR'd text plus the metadata
// every analyzer may use to contextualize a finding.
type OCRInput struct {
	OCRJobID       string
	Text           string
	TerritoryID    string
	Date           string
	SpiderID       string
	EditionNumber  int
	IsExtraEdition bool
}

// AnalysisOptions carries per-run context analyzers may consult.
type AnalysisOptions struct {
	Now time.Time
}

// AnalysisResult is what one analyzer returns for one document.
type AnalysisResult struct {
	Findings []gazette.Finding
	Status   string // "success" | "failure"
	Err      error
}

// Analyzer is the §4.E.5 plug point: keyword, entity, concurso, AI, and
// category analyzers all implement this.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, input OCRInput, opts AnalysisOptions) AnalysisResult
}

// Orchestrator runs a fixed, ordered set of analyzers and merges their
// output into one GazetteAnalysis.
type Orchestrator struct {
	analyzers []Analyzer
	timeout   time.Duration
}

// DefaultPerAnalyzerTimeout bounds a single analyzer's run (§4.E.5).
const DefaultPerAnalyzerTimeout = 10 * time.Second

// highConfidenceThreshold is the summary's bar for "high confidence".
const highConfidenceThreshold = 0.8

// NewOrchestrator constructs an Orchestrator running analyzers in the
// given priority order.
func NewOrchestrator(analyzers []Analyzer, perAnalyzerTimeout time.Duration) *Orchestrator {
	if perAnalyzerTimeout <= 0 {
		perAnalyzerTimeout = DefaultPerAnalyzerTimeout
	}
	return &Orchestrator{analyzers: analyzers, timeout: perAnalyzerTimeout}
}

// DefaultAnalyzers is the §4.E.5 keyword/entity/concurso/AI/category set
// in priority order. aiClient plugs into the AI analyzer; pass nil to
// run without AI classification (the analyzer then reports success with
// no findings rather than failing the run).
func DefaultAnalyzers(aiClient Client) []Analyzer {
	return []Analyzer{
		NewKeywordAnalyzer(),
		NewEntityAnalyzer(),
		NewConcursoAnalyzer(),
		NewAIAnalyzer(aiClient),
		NewCategoryAnalyzer(),
	}
}

// Run implements §4.E.5/§4.E.6: an empty-text input is the orchestrator's
// own failure and short-circuits to a single synthetic, error-carrying
// GazetteAnalysis; otherwise every analyzer runs under its own timeout
// and a failing analyzer only loses its own findings.
func (o *Orchestrator) Run(ctx context.Context, input OCRInput) gazette.GazetteAnalysis {
	if input.Text == "" {
		return gazette.GazetteAnalysis{
			OCRJobID: input.OCRJobID,
			Error:    "empty ocr text: nothing to analyze",
		}
	}

	seen := make(map[string]bool)
	var merged []gazette.Finding

	for _, an := range o.analyzers {
		result := o.runOne(ctx, an, input)
		if result.Status != "success" {
			log.Printf("[analyzer] %s failed: %v", an.Name(), result.Err)
			continue
		}
		for _, f := range result.Findings {
			key := dedupeKey(f)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, f)
		}
	}

	return gazette.GazetteAnalysis{
		OCRJobID: input.OCRJobID,
		Text:     input.Text,
		Findings: merged,
		Summary:  summarize(merged),
	}
}

// runOne isolates one analyzer's run behind its own timeout and a panic
// recovery, turning either into a failure result rather than letting it
// take down the whole orchestration.
func (o *Orchestrator) runOne(ctx context.Context, an Analyzer, input OCRInput) (result AnalysisResult) {
	runCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	done := make(chan AnalysisResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- AnalysisResult{Status: "failure", Err: fmt.Errorf("panic in analyzer %s: %v", an.Name(), r)}
			}
		}()
		done <- an.Analyze(runCtx, input, AnalysisOptions{Now: time.Now()})
	}()

	select {
	case res := <-done:
		if res.Status == "" {
			res.Status = "success"
		}
		return res
	case <-runCtx.Done():
		return AnalysisResult{Status: "failure", Err: fmt.Errorf("analyzer %s: %w", an.Name(), runCtx.Err())}
	}
}

// dedupeKey identifies "identical" findings (§4.E.5): same type, same
// location, same data.
func dedupeKey(f gazette.Finding) string {
	loc := "nil"
	if f.Location != nil {
		loc = fmt.Sprintf("%d:%d:%d", f.Location.Page, f.Location.Line, f.Location.Offset)
	}
	data, _ := json.Marshal(f.Data)
	return f.Type + "|" + loc + "|" + string(data)
}

func summarize(findings []gazette.Finding) gazette.AnalysisSummary {
	s := gazette.AnalysisSummary{FindingsByType: make(map[string]int)}
	categorySet := make(map[string]bool)
	keywordSet := make(map[string]bool)

	for _, f := range findings {
		s.TotalFindings++
		s.FindingsByType[f.Type]++
		if f.Confidence >= highConfidenceThreshold {
			s.HighConfidenceFindings++
		}
		switch {
		case len(f.Type) > len("category:") && f.Type[:len("category:")] == "category:":
			categorySet[f.Type[len("category:"):]] = true
		case len(f.Type) > len("keyword:") && f.Type[:len("keyword:")] == "keyword:":
			keywordSet[f.Type[len("keyword:"):]] = true
		}
	}

	for c := range categorySet {
		s.Categories = append(s.Categories, c)
	}
	for k := range keywordSet {
		s.Keywords = append(s.Keywords, k)
	}
	return s
}
