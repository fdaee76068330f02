// Package analyzer implements the concurso analyzer (§4.E): a fixed
// pattern catalog, a proximity-clustering scorer, structured-data
// extraction, and the multi-analyzer orchestrator that wraps all of it.
// Grounded on the teacher's internal/ingest/pdf_deadline_extractor.go
// (regex-scan + context-snippet + confidence scoring over raw text) and
// internal/ingest/status_engine.go (ordered-rule classification with
// explicit tie-break reasoning), generalized from "grant deadline
// detection" to "concurso document classification".
package analyzer

import (
	"regexp"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

// Priority is a document-type pattern's standing in the tie-break order
// (§4.E.3): primary beats secondary beats supporting.
type Priority string

const (
	PriorityPrimary    Priority = "primary"
	PrioritySecondary  Priority = "secondary"
	PrioritySupporting Priority = "supporting"
)

func (p Priority) rank() int {
	switch p {
	case PriorityPrimary:
		return 3
	case PrioritySecondary:
		return 2
	case PrioritySupporting:
		return 1
	default:
		return 0
	}
}

// ProximitySpec controls how a pattern's keywords must cluster (§4.E.2).
type ProximitySpec struct {
	Required    bool
	MaxDistance int // words
	BoostNearby bool
}

// DocTypePattern is one entry of the document-type catalog (§4.E.1).
type DocTypePattern struct {
	DocType             gazette.DocType
	Weight              float64 // base confidence, 0.85-0.95
	Priority            Priority
	Keywords            []string
	Regexes             []*regexp.Regexp
	Exclusions          []*regexp.Regexp
	Proximity           ProximitySpec
	MinKeywordsTogether int
}

// TitlePattern is one entry of the title catalog (§4.E.1): tested
// against ALL-CAPS headers and numbered section headings.
type TitlePattern struct {
	DocType        gazette.DocType
	Regex          *regexp.Regexp
	BaseConfidence float64
}

// docTypeCatalog is the fixed §4.E.1 document-type pattern catalog.
var docTypeCatalog = []DocTypePattern{
	{
		DocType:  gazette.DocEditalAbertura,
		Weight:   0.92,
		Priority: PriorityPrimary,
		Keywords: []string{"edital de abertura", "concurso público", "inscrições", "vagas"},
		Regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)edital\s+de\s+abertura`),
			regexp.MustCompile(`(?i)concurso\s+p[úu]blico`),
			regexp.MustCompile(`(?i)edital\s+n[º°o]?\.?\s*\d`),
		},
		Proximity:           ProximitySpec{Required: true, MaxDistance: 150, BoostNearby: true},
		MinKeywordsTogether: 2,
	},
	{
		DocType:  gazette.DocEditalRetificacao,
		Weight:   0.9,
		Priority: PriorityPrimary,
		Keywords: []string{"retificação", "edital", "errata"},
		Regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)edital\s+de\s+retifica[çc][ãa]o`),
			regexp.MustCompile(`(?i)errata`),
		},
		Proximity:           ProximitySpec{Required: true, MaxDistance: 100, BoostNearby: false},
		MinKeywordsTogether: 2,
	},
	{
		DocType:  gazette.DocConvocacao,
		Weight:   0.88,
		Priority: PrioritySecondary,
		Keywords: []string{"convocação", "candidatos", "convoca"},
		Regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)convoca[çc][ãa]o`),
			regexp.MustCompile(`(?i)convoca\s+os?\s+candidatos?`),
		},
		Proximity:           ProximitySpec{Required: true, MaxDistance: 100, BoostNearby: true},
		MinKeywordsTogether: 1,
	},
	{
		DocType:  gazette.DocHomologacao,
		Weight:   0.93,
		Priority: PriorityPrimary,
		Keywords: []string{"homologação", "resultado final", "classificação final"},
		Regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)homologa[çc][ãa]o`),
			regexp.MustCompile(`(?i)resultado\s+final`),
		},
		Proximity:           ProximitySpec{Required: true, MaxDistance: 150, BoostNearby: true},
		MinKeywordsTogether: 1,
	},
	{
		DocType:  gazette.DocProrrogacao,
		Weight:   0.87,
		Priority: PrioritySecondary,
		Keywords: []string{"prorrogação", "prazo", "prorroga"},
		Regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)prorroga[çc][ãa]o`),
			regexp.MustCompile(`(?i)prorroga\s+o\s+prazo`),
		},
		Proximity:           ProximitySpec{Required: true, MaxDistance: 100, BoostNearby: false},
		MinKeywordsTogether: 1,
	},
	{
		DocType:  gazette.DocCancelamento,
		Weight:   0.91,
		Priority: PrioritySecondary,
		Keywords: []string{"cancelamento", "cancela", "certame"},
		Regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)cancelamento`),
			regexp.MustCompile(`(?i)cancela\s+(o\s+)?(certame|concurso)`),
		},
		Proximity:           ProximitySpec{Required: true, MaxDistance: 100, BoostNearby: false},
		MinKeywordsTogether: 1,
	},
	{
		DocType:  gazette.DocResultadoParcial,
		Weight:   0.86,
		Priority: PrioritySupporting,
		Keywords: []string{"resultado parcial", "classificação parcial"},
		Regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)resultado\s+parcial`),
			regexp.MustCompile(`(?i)classifica[çc][ãa]o\s+parcial`),
		},
		Exclusions: []*regexp.Regexp{
			regexp.MustCompile(`(?i)homologa[çc][ãa]o`),
		},
		Proximity:           ProximitySpec{Required: true, MaxDistance: 100, BoostNearby: false},
		MinKeywordsTogether: 1,
	},
	{
		DocType:  gazette.DocGabarito,
		Weight:   0.85,
		Priority: PrioritySupporting,
		Keywords: []string{"gabarito", "gabarito preliminar", "gabarito oficial"},
		Regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)gabarito`),
		},
		Proximity:           ProximitySpec{Required: false, MaxDistance: 100, BoostNearby: false},
		MinKeywordsTogether: 1,
	},
}

// numberedHeadingPrefix optionally matches a leading ordinal/sequence
// number before a title keyword (e.g. "17ª CONVOCAÇÃO", "2º EDITAL DE
// ABERTURA", "3-CANCELAMENTO"), so numbered section headings still
// count as title matches (§4.E.1).
const numberedHeadingPrefix = `(?:\d+[ªºao]?\s*[-.:)]?\s*)?`

// titleCatalog is the fixed §4.E.1 title-pattern catalog: header-only
// matches yielding a high base confidence.
var titleCatalog = []TitlePattern{
	{DocType: gazette.DocEditalAbertura, Regex: regexp.MustCompile(`(?i)^\s*` + numberedHeadingPrefix + `EDITAL\s+DE\s+ABERTURA`), BaseConfidence: 0.9},
	{DocType: gazette.DocEditalRetificacao, Regex: regexp.MustCompile(`(?i)^\s*` + numberedHeadingPrefix + `EDITAL\s+DE\s+RETIFICA[ÇC][ÃA]O`), BaseConfidence: 0.88},
	{DocType: gazette.DocConvocacao, Regex: regexp.MustCompile(`(?i)^\s*` + numberedHeadingPrefix + `CONVOCA[ÇC][ÃA]O`), BaseConfidence: 0.86},
	{DocType: gazette.DocHomologacao, Regex: regexp.MustCompile(`(?i)^\s*` + numberedHeadingPrefix + `HOMOLOGA[ÇC][ÃA]O`), BaseConfidence: 0.9},
	{DocType: gazette.DocProrrogacao, Regex: regexp.MustCompile(`(?i)^\s*` + numberedHeadingPrefix + `PRORROGA[ÇC][ÃA]O\s+DE\s+PRAZO`), BaseConfidence: 0.87},
	{DocType: gazette.DocCancelamento, Regex: regexp.MustCompile(`(?i)^\s*` + numberedHeadingPrefix + `CANCELAMENTO`), BaseConfidence: 0.89},
	{DocType: gazette.DocResultadoParcial, Regex: regexp.MustCompile(`(?i)^\s*` + numberedHeadingPrefix + `RESULTADO\s+PARCIAL`), BaseConfidence: 0.85},
	{DocType: gazette.DocGabarito, Regex: regexp.MustCompile(`(?i)^\s*` + numberedHeadingPrefix + `GABARITO\s+(PRELIMINAR|OFICIAL)`), BaseConfidence: 0.85},
}

// extractionField names the ConcursoData fields the §4.E.4 extraction
// catalog populates.
type extractionField string

const (
	fieldEditalNumber          extractionField = "editalNumber"
	fieldVacancies             extractionField = "vacancies"
	fieldPosition              extractionField = "position"
	fieldSalary                extractionField = "salary"
	fieldRegistrationStart     extractionField = "registrationStart"
	fieldRegistrationEnd       extractionField = "registrationEnd"
	fieldExamDate              extractionField = "examDate"
	fieldRegistrationFee       extractionField = "registrationFee"
	fieldOrganizingInstitution extractionField = "organizingInstitution"
	fieldCities                extractionField = "cities"
	fieldIssuingAgency         extractionField = "issuingAgency"
)

// extractionPattern is one §4.E.1/§4.E.4 extraction-pattern family: an
// ordered list of regexes whose first group-1 capture wins.
type extractionPattern struct {
	field   extractionField
	regexes []*regexp.Regexp
}

var extractionCatalog = []extractionPattern{
	{
		field: fieldEditalNumber,
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)edital\s+n[º°o]?\.?\s*([\d./-]+)`),
		},
	},
	{
		field: fieldVacancies,
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(\d{1,4})\s+vagas?`),
		},
	},
	{
		field: fieldPosition,
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)cargo\s+(?:de\s+)?([\wÀ-ú][\wÀ-ú\s]*?)(?:,|\.|\n|$)`),
		},
	},
	{
		field: fieldSalary,
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)sal[áa]rio\s+(?:de\s+)?r\$\s*([\d.,]+)`),
		},
	},
	{
		field: fieldRegistrationStart,
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)inscri[çc][õo]es?[^0-9]{0,20}?(\d{2}/\d{2}/\d{4})\s*(?:a|at[ée]|-)`),
		},
	},
	{
		field: fieldRegistrationEnd,
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)inscri[çc][õo]es?.{0,40}?(?:a|at[ée])\s+(\d{2}/\d{2}/\d{4})`),
		},
	},
	{
		field: fieldExamDate,
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)prova\s+(?:ser[áa]\s+)?(?:realizada\s+)?(?:em|no\s+dia)\s+(\d{2}/\d{2}/\d{4})`),
		},
	},
	{
		field: fieldRegistrationFee,
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)taxa\s+de\s+inscri[çc][ãa]o[^0-9]{0,20}?r\$\s*([\d.,]+)`),
		},
	},
	{
		field: fieldOrganizingInstitution,
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)organizad[ao]\s+pel[ao]\s+([\wÀ-ú][\wÀ-ú.\s]*?)(?:,|\.|\n|$)`),
		},
	},
	{
		field: fieldCities,
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:munic[íi]pios?|cidades?)\s+de\s+([^.\n]+)`),
		},
	},
	{
		field: fieldIssuingAgency,
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)((?:prefeitura\s+municipal|secretaria)\s+[^.\n,]+)`),
		},
	},
}
