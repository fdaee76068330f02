package analyzer

import (
	"context"
	"math"
	"sort"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

const classificationThreshold = 0.5

// titleWindowFraction is the leading fraction of the document searched
// for a title-pattern override (§4.E.2 step 6).
const titleWindowFraction = 0.2

// docTypeScore is one document-type pattern's computed result (§4.E.2)
// before classification.
type docTypeScore struct {
	pattern    DocTypePattern
	confidence float64
	location   *gazette.Location
	context    string
}

// scoreDocType runs the full §4.E.2 proximity-and-regex pipeline for one
// catalog entry against text.
func scoreDocType(text string, spans []wordSpan, p DocTypePattern) docTypeScore {
	occurrences := locateKeywords(text, p.Keywords, spans)

	var (
		keywordHits int
		multiplier  float64
		loc         *gazette.Location
		snippet     string
	)

	if p.Proximity.Required {
		distinct, span, window := bestCluster(occurrences, p.Proximity.MaxDistance)
		if distinct < p.MinKeywordsTogether {
			multiplier = 0
		} else {
			keywordHits = distinct
			base := proximityBand(span)
			multiplier = base
			if p.Proximity.BoostNearby {
				multiplier = base * boostFactor(span)
			}
			if len(window) > 0 {
				loc = &gazette.Location{Offset: window[0].charOffset}
				snippet = window[0].context
			}
		}
	} else {
		seen := make(map[string]bool, len(occurrences))
		for _, occ := range occurrences {
			seen[occ.keyword] = true
		}
		keywordHits = len(seen)
		multiplier = 1.0
		if len(occurrences) > 0 {
			loc = &gazette.Location{Offset: occurrences[0].charOffset}
			snippet = occurrences[0].context
		}
	}

	totalRegexes := len(p.Regexes)
	regexMatchRatio := 0.0
	if totalRegexes > 0 {
		regexMatchRatio = float64(countRegexMatches(text, p.Regexes)) / float64(totalRegexes)
	}
	exclusionMatches := countRegexMatches(text, p.Exclusions)

	confidence := p.Weight * (0.6*regexMatchRatio + 0.4*math.Min(float64(keywordHits), 2)/2) * multiplier
	confidence -= 0.2 * float64(exclusionMatches)
	confidence = clamp01(confidence)

	if title, ok := titleOverride(text, p.DocType); ok {
		confidence = math.Max(confidence, title)
	}

	return docTypeScore{pattern: p, confidence: confidence, location: loc, context: snippet}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// titleOverride reports the title pattern's base confidence when doc
// matches a title pattern for docType within the first 20% of text.
func titleOverride(text string, docType gazette.DocType) (float64, bool) {
	window := text[:int(float64(len(text))*titleWindowFraction)]
	for _, tp := range titleCatalog {
		if tp.DocType != docType {
			continue
		}
		if tp.Regex.MatchString(window) {
			return tp.BaseConfidence, true
		}
	}
	return 0, false
}

// classify implements §4.E.3: per-tag best score, then primary-tag
// tie-break (priority, then confidence, then lexicographic tag), falling
// back to nao_classificado when no tag clears the threshold.
func classify(scores []docTypeScore) (primary gazette.DocType, confidence float64) {
	if len(scores) == 0 {
		return gazette.DocNaoClassificado, 0
	}

	eligible := make([]docTypeScore, 0, len(scores))
	best := scores[0].confidence
	for _, s := range scores {
		if s.confidence > best {
			best = s.confidence
		}
		if s.confidence >= classificationThreshold {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) == 0 {
		return gazette.DocNaoClassificado, best
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.pattern.Priority.rank() != b.pattern.Priority.rank() {
			return a.pattern.Priority.rank() > b.pattern.Priority.rank()
		}
		if a.confidence != b.confidence {
			return a.confidence > b.confidence
		}
		return a.pattern.DocType < b.pattern.DocType
	})
	return eligible[0].pattern.DocType, eligible[0].confidence
}

// Analyze runs the full concurso pipeline against text and returns every
// finding above the classification threshold plus the nao_classificado
// fallback finding when nothing qualifies.
func Analyze(text string) []gazette.ConcursoFinding {
	spans := tokenizeWords(text)

	scores := make([]docTypeScore, 0, len(docTypeCatalog))
	for _, p := range docTypeCatalog {
		scores = append(scores, scoreDocType(text, spans, p))
	}
	applyResultadoParcialSuppression(scores)

	var data *gazette.ConcursoData
	if hasExtractableEvidence(scores) {
		extracted := extractConcursoData(text)
		data = &extracted
	}

	primaryType, primaryConfidence := classify(scores)

	findings := make([]gazette.ConcursoFinding, 0, len(scores)+1)
	for _, s := range scores {
		if s.confidence < classificationThreshold {
			continue
		}
		findings = append(findings, gazette.ConcursoFinding{
			Finding: gazette.Finding{
				Type:       string(s.pattern.DocType),
				Confidence: s.confidence,
				Location:   s.location,
				Context:    s.context,
			},
			DocType: s.pattern.DocType,
			Data:    data,
		})
	}

	if primaryType == gazette.DocNaoClassificado {
		findings = append(findings, gazette.ConcursoFinding{
			Finding: gazette.Finding{Type: string(gazette.DocNaoClassificado), Confidence: primaryConfidence},
			DocType: gazette.DocNaoClassificado,
		})
	}

	return findings
}

// applyResultadoParcialSuppression is the Open Question decision: a
// resultado_parcial finding is dropped when a same-document homologacao
// finding clears the classification threshold.
func applyResultadoParcialSuppression(scores []docTypeScore) {
	var homologacaoScore float64
	for _, s := range scores {
		if s.pattern.DocType == gazette.DocHomologacao {
			homologacaoScore = s.confidence
		}
	}
	if homologacaoScore < classificationThreshold {
		return
	}
	for i := range scores {
		if scores[i].pattern.DocType == gazette.DocResultadoParcial {
			scores[i].confidence = 0
		}
	}
}

func hasExtractableEvidence(scores []docTypeScore) bool {
	for _, s := range scores {
		if s.pattern.DocType != gazette.DocNaoClassificado && s.confidence >= classificationThreshold {
			return true
		}
	}
	return false
}

// concursoAnalyzer adapts Analyze to the orchestrator's Analyzer
// interface (§4.E.5): one of the pluggable analyzers run in priority
// order alongside keyword/entity/AI/category.
type concursoAnalyzer struct{}

// NewConcursoAnalyzer constructs the concurso pattern-catalog analyzer.
func NewConcursoAnalyzer() Analyzer { return concursoAnalyzer{} }

func (concursoAnalyzer) Name() string { return "concurso" }

func (concursoAnalyzer) Analyze(_ context.Context, input OCRInput, _ AnalysisOptions) AnalysisResult {
	findings := Analyze(input.Text)
	out := make([]gazette.Finding, 0, len(findings))
	for _, f := range findings {
		finding := f.Finding
		finding.Data = concursoDataToMap(f.Data)
		out = append(out, finding)
	}
	return AnalysisResult{Findings: out, Status: "success"}
}
