package gazette

// DocType enumerates the nine concurso-lifecycle document classifications.
type DocType string

const (
	DocEditalAbertura    DocType = "edital_abertura"
	DocEditalRetificacao DocType = "edital_retificacao"
	DocConvocacao        DocType = "convocacao"
	DocHomologacao       DocType = "homologacao"
	DocProrrogacao       DocType = "prorrogacao"
	DocCancelamento      DocType = "cancelamento"
	DocResultadoParcial  DocType = "resultado_parcial"
	DocGabarito          DocType = "gabarito"
	DocNaoClassificado   DocType = "nao_classificado"
)

// Location pinpoints where in the source text a Finding was observed.
type Location struct {
	Page   int `json:"page,omitempty"`
	Line   int `json:"line,omitempty"`
	Offset int `json:"offset"`
}

// Finding is a single classified observation about a passage of text.
type Finding struct {
	Type       string         `json:"type"`
	Confidence float64        `json:"confidence"`
	Data       map[string]any `json:"data,omitempty"`
	Location   *Location      `json:"location,omitempty"`
	Context    string         `json:"context,omitempty"`
}

// ConcursoData is the structured payload a ConcursoFinding may carry,
// populated by the extraction-pattern catalog (§4.E.4-equivalent).
type ConcursoData struct {
	EditalNumber         string   `json:"editalNumber,omitempty"`
	Vacancies            int      `json:"vacancies,omitempty"`
	Position             string   `json:"position,omitempty"`
	Salary               float64  `json:"salary,omitempty"`
	RegistrationStart    string   `json:"registrationStart,omitempty"`
	RegistrationEnd      string   `json:"registrationEnd,omitempty"`
	ExamDate             string   `json:"examDate,omitempty"`
	RegistrationFee      float64  `json:"registrationFee,omitempty"`
	OrganizingInstitution string  `json:"organizingInstitution,omitempty"`
	Cities               []string `json:"cities,omitempty"`
	IssuingAgency        string   `json:"issuingAgency,omitempty"`
}

// ConcursoFinding specializes Finding with a concurso DocType and optional
// structured data.
type ConcursoFinding struct {
	Finding
	DocType DocType       `json:"docType"`
	Data    *ConcursoData `json:"concursoData,omitempty"`
}

// AnalysisSummary aggregates a GazetteAnalysis's findings.
type AnalysisSummary struct {
	TotalFindings          int            `json:"totalFindings"`
	FindingsByType         map[string]int `json:"findingsByType"`
	HighConfidenceFindings int            `json:"highConfidenceFindings"`
	Categories             []string       `json:"categories"`
	Keywords               []string       `json:"keywords"`
}

// GazetteAnalysis bundles the OCR job reference, the extracted text, all
// findings produced by every analyzer that ran, and the aggregated
// summary.
type GazetteAnalysis struct {
	OCRJobID string            `json:"ocrJobId"`
	Text     string            `json:"text"`
	Findings []Finding         `json:"findings"`
	Summary  AnalysisSummary   `json:"summary"`
	Error    string            `json:"error,omitempty"`
}
