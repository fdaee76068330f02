package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

type stubAnalyzer struct {
	name    string
	result  AnalysisResult
	delay   time.Duration
	panics  bool
}

func (s stubAnalyzer) Name() string { return s.name }

func (s stubAnalyzer) Analyze(ctx context.Context, _ OCRInput, _ AnalysisOptions) AnalysisResult {
	if s.panics {
		panic("boom")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return AnalysisResult{Status: "failure", Err: ctx.Err()}
		}
	}
	return s.result
}

func TestOrchestratorEmptyTextIsSyntheticFailure(t *testing.T) {
	o := NewOrchestrator(DefaultAnalyzers(nil), 0)
	result := o.Run(context.Background(), OCRInput{OCRJobID: "job-1", Text: ""})
	if result.Error == "" {
		t.Fatalf("expected a surfaced error for empty input")
	}
	if len(result.Findings) != 0 {
		t.Errorf("expected no findings, got %d", len(result.Findings))
	}
}

func TestOrchestratorOneAnalyzerFailureDoesNotHaltOthers(t *testing.T) {
	analyzers := []Analyzer{
		stubAnalyzer{name: "broken", result: AnalysisResult{Status: "failure", Err: errors.New("boom")}},
		stubAnalyzer{name: "ok", result: AnalysisResult{
			Findings: []gazette.Finding{{Type: "ok:finding", Confidence: 0.9}},
			Status:   "success",
		}},
	}
	o := NewOrchestrator(analyzers, time.Second)
	result := o.Run(context.Background(), OCRInput{Text: "some ocr text"})
	if len(result.Findings) != 1 {
		t.Fatalf("expected 1 surviving finding, got %d", len(result.Findings))
	}
	if result.Summary.HighConfidenceFindings != 1 {
		t.Errorf("expected 1 high-confidence finding counted in summary")
	}
}

func TestOrchestratorPanicIsolatedAsFailure(t *testing.T) {
	analyzers := []Analyzer{stubAnalyzer{name: "panicky", panics: true}}
	o := NewOrchestrator(analyzers, time.Second)
	result := o.Run(context.Background(), OCRInput{Text: "text"})
	if len(result.Findings) != 0 {
		t.Errorf("expected no findings when the only analyzer panics")
	}
	if result.Error != "" {
		t.Errorf("a per-analyzer panic must not become an orchestrator-level error")
	}
}

func TestOrchestratorTimeoutFailsSlowAnalyzer(t *testing.T) {
	analyzers := []Analyzer{stubAnalyzer{name: "slow", delay: 50 * time.Millisecond}}
	o := NewOrchestrator(analyzers, 5*time.Millisecond)
	result := o.Run(context.Background(), OCRInput{Text: "text"})
	if len(result.Findings) != 0 {
		t.Errorf("expected no findings from a timed-out analyzer")
	}
}

func TestOrchestratorDeduplicatesIdenticalFindings(t *testing.T) {
	finding := gazette.Finding{Type: "dup", Confidence: 0.5}
	analyzers := []Analyzer{
		stubAnalyzer{name: "a", result: AnalysisResult{Findings: []gazette.Finding{finding}, Status: "success"}},
		stubAnalyzer{name: "b", result: AnalysisResult{Findings: []gazette.Finding{finding}, Status: "success"}},
	}
	o := NewOrchestrator(analyzers, time.Second)
	result := o.Run(context.Background(), OCRInput{Text: "text"})
	if len(result.Findings) != 1 {
		t.Errorf("expected identical findings to be deduplicated, got %d", len(result.Findings))
	}
}
