package validate

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

// Status is one city's overall validation outcome.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// CityResult is one city's validation outcome across all three
// validator families.
type CityResult struct {
	ID           string
	TerritoryID  string
	SpiderType   gazette.SpiderType
	Structural   []string
	Content      []string
	Performance  []string
	Elapsed      time.Duration
	RequestCount int
	GazetteCount int
	Err          error
	Status       Status
}

// PlatformRollup aggregates CityResults for one spiderType.
type PlatformRollup struct {
	Total  int
	Passed int
	Warned int
	Failed int
}

// Report is the §4.F aggregated validation report: a summary, per-
// platform rollups, and the full failure list.
type Report struct {
	Mode       Mode
	Total      int
	Passed     int
	Warned     int
	Failed     int
	ByPlatform map[gazette.SpiderType]PlatformRollup
	Results    []CityResult
	Failures   []CityResult
}

func buildReport(mode Mode, results []CityResult) Report {
	report := Report{Mode: mode, Results: results, ByPlatform: make(map[gazette.SpiderType]PlatformRollup)}

	for _, r := range results {
		report.Total++
		rollup := report.ByPlatform[r.SpiderType]
		rollup.Total++

		switch r.Status {
		case StatusPass:
			report.Passed++
			rollup.Passed++
		case StatusWarn:
			report.Warned++
			rollup.Warned++
		case StatusFail:
			report.Failed++
			rollup.Failed++
			report.Failures = append(report.Failures, r)
		}
		report.ByPlatform[r.SpiderType] = rollup
	}

	return report
}

// Format is one of the §4.F report output formats.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatCSV      Format = "csv"
	FormatConsole  Format = "console"
)

// Render emits the report in the requested format.
func (r Report) Render(format Format) (string, error) {
	switch format {
	case FormatJSON:
		return r.renderJSON()
	case FormatMarkdown:
		return r.renderMarkdown(), nil
	case FormatHTML:
		return r.renderHTML(), nil
	case FormatCSV:
		return r.renderCSV()
	case FormatConsole:
		return r.renderConsole(), nil
	default:
		return "", fmt.Errorf("validate: unknown report format %q", format)
	}
}

func (r Report) renderJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r Report) renderMarkdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Validation report (%s)\n\n", r.Mode)
	fmt.Fprintf(&b, "Total: %d · Passed: %d · Warned: %d · Failed: %d\n\n", r.Total, r.Passed, r.Warned, r.Failed)
	b.WriteString("| City | Type | Status | Gazettes | Requests |\n|---|---|---|---|---|\n")
	for _, res := range r.Results {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d |\n", res.ID, res.SpiderType, res.Status, res.GazetteCount, res.RequestCount)
	}
	return b.String()
}

func (r Report) renderHTML() string {
	var b strings.Builder
	b.WriteString("<table><thead><tr><th>City</th><th>Type</th><th>Status</th><th>Gazettes</th><th>Requests</th></tr></thead><tbody>")
	for _, res := range r.Results {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%d</td><td>%d</td></tr>", res.ID, res.SpiderType, res.Status, res.GazetteCount, res.RequestCount)
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

func (r Report) renderCSV() (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write([]string{"city", "spiderType", "status", "gazettes", "requests"}); err != nil {
		return "", err
	}
	for _, res := range r.Results {
		row := []string{res.ID, string(res.SpiderType), string(res.Status), fmt.Sprint(res.GazetteCount), fmt.Sprint(res.RequestCount)}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (r Report) renderConsole() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"City", "Type", "Status", "Gazettes", "Requests"})
	for _, res := range r.Results {
		t.AppendRow(table.Row{res.ID, res.SpiderType, res.Status, res.GazetteCount, res.RequestCount})
	}
	t.AppendFooter(table.Row{"", "", "total", r.Total, fmt.Sprintf("pass=%d warn=%d fail=%d", r.Passed, r.Warned, r.Failed)})
	return t.Render()
}
