package analyzer

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

// extractConcursoData implements §4.E.4: for each extraction-pattern
// family, run its regexes in declared order and take the first group-1
// capture. Numbers use Brazilian locale; dates stay DD/MM/YYYY strings;
// city lists split on commas and "e"/"and" tokens.
func extractConcursoData(text string) gazette.ConcursoData {
	var data gazette.ConcursoData

	for _, ep := range extractionCatalog {
		value, ok := firstCapture(text, ep.regexes)
		if !ok {
			continue
		}
		switch ep.field {
		case fieldEditalNumber:
			data.EditalNumber = strings.TrimSpace(value)
		case fieldVacancies:
			data.Vacancies = parseIntBR(value)
		case fieldPosition:
			data.Position = strings.TrimSpace(value)
		case fieldSalary:
			data.Salary = parseFloatBR(value)
		case fieldRegistrationStart:
			data.RegistrationStart = strings.TrimSpace(value)
		case fieldRegistrationEnd:
			data.RegistrationEnd = strings.TrimSpace(value)
		case fieldExamDate:
			data.ExamDate = strings.TrimSpace(value)
		case fieldRegistrationFee:
			data.RegistrationFee = parseFloatBR(value)
		case fieldOrganizingInstitution:
			data.OrganizingInstitution = strings.TrimSpace(value)
		case fieldCities:
			data.Cities = parseCityList(value)
		case fieldIssuingAgency:
			data.IssuingAgency = strings.TrimSpace(value)
		}
	}

	return data
}

func firstCapture(text string, res []*regexp.Regexp) (string, bool) {
	for _, re := range res {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			return m[1], true
		}
	}
	return "", false
}

var brThousands = regexp.MustCompile(`\.`)

// parseIntBR parses a Brazilian-locale integer ("1.234" -> 1234).
func parseIntBR(s string) int {
	cleaned := brThousands.ReplaceAllString(strings.TrimSpace(s), "")
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}

// parseFloatBR parses a Brazilian-locale decimal ("1.234,56" -> 1234.56).
func parseFloatBR(s string) float64 {
	cleaned := brThousands.ReplaceAllString(strings.TrimSpace(s), "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}

var citySplitter = regexp.MustCompile(`,|\s+e\s+|\s+and\s+`)

func parseCityList(s string) []string {
	parts := citySplitter.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// concursoDataToMap round-trips ConcursoData through JSON so a
// *gazette.ConcursoData can live inside a generic gazette.Finding.Data
// map, letting every analyzer share the same Finding shape.
func concursoDataToMap(d *gazette.ConcursoData) map[string]any {
	if d == nil {
		return nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
