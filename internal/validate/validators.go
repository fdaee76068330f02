package validate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

// scrapedAtRecency bounds how stale a record's scrapedAt may be before
// the content validator flags it.
const scrapedAtRecency = 24 * time.Hour

// headProbeTimeout and headProbeSampleSize implement the §4.F content
// validator's optional fileUrl HEAD probe.
const (
	headProbeTimeout     = 10 * time.Second
	headProbeSampleSize  = 3
)

// Performance thresholds (§4.F).
const (
	executionWarnThreshold = 60 * time.Second
	executionFailThreshold = 120 * time.Second
	efficiencyWarnPerGaz   = 5.0
	efficiencyFailPerGaz   = 10.0
)

// validateStructural checks one gazette's record schema and invariants
// against §3.
func validateStructural(g gazette.Gazette) []string {
	var issues []string
	if g.TerritoryID == "" {
		issues = append(issues, "fail: missing territoryId")
	}
	if g.Date == "" {
		issues = append(issues, "fail: missing date")
	} else if parsed, err := time.Parse("2006-01-02", g.Date); err != nil {
		issues = append(issues, fmt.Sprintf("fail: date %q is not YYYY-MM-DD", g.Date))
	} else if parsed.After(time.Now().UTC()) {
		issues = append(issues, fmt.Sprintf("fail: date %q is in the future", g.Date))
	}
	if g.FileURL == "" {
		issues = append(issues, "fail: missing fileUrl")
	} else if parsed, err := url.Parse(g.FileURL); err != nil || !parsed.IsAbs() {
		issues = append(issues, fmt.Sprintf("fail: fileUrl %q is not an absolute URL", g.FileURL))
	}
	if !g.Power.Valid() {
		issues = append(issues, fmt.Sprintf("fail: invalid power %q", g.Power))
	}
	return issues
}

// validateContent checks territory-id match, recency, and (optionally)
// that a sample of fileUrls resolve.
func validateContent(ctx context.Context, cfg gazette.SpiderConfig, gazettes []gazette.Gazette, probe bool) []string {
	var issues []string
	for _, g := range gazettes {
		if g.TerritoryID != cfg.TerritoryID {
			issues = append(issues, fmt.Sprintf("fail: territoryId %q does not match config %q", g.TerritoryID, cfg.TerritoryID))
		}
		if g.ScrapedAt.IsZero() || time.Since(g.ScrapedAt) > scrapedAtRecency {
			issues = append(issues, "warn: scrapedAt is stale or unset")
		}
	}

	if probe {
		issues = append(issues, probeFileURLs(ctx, gazettes)...)
	}
	return issues
}

func probeFileURLs(ctx context.Context, gazettes []gazette.Gazette) []string {
	var issues []string
	client := &http.Client{Timeout: headProbeTimeout}

	for i, g := range gazettes {
		if i >= headProbeSampleSize {
			break
		}
		probeCtx, cancel := context.WithTimeout(ctx, headProbeTimeout)
		req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, g.FileURL, nil)
		if err != nil {
			cancel()
			issues = append(issues, fmt.Sprintf("warn: could not build HEAD request for %s: %v", g.FileURL, err))
			continue
		}
		resp, err := client.Do(req)
		cancel()
		if err != nil {
			issues = append(issues, fmt.Sprintf("warn: HEAD probe failed for %s: %v", g.FileURL, err))
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			issues = append(issues, fmt.Sprintf("warn: HEAD probe for %s returned status %d", g.FileURL, resp.StatusCode))
		}
	}
	return issues
}

// validatePerformance checks execution time and request efficiency
// against the §4.F thresholds.
func validatePerformance(elapsed time.Duration, requestCount, gazetteCount int) []string {
	var issues []string

	switch {
	case elapsed >= executionFailThreshold:
		issues = append(issues, fmt.Sprintf("fail: execution time %s exceeded %s", elapsed, executionFailThreshold))
	case elapsed >= executionWarnThreshold:
		issues = append(issues, fmt.Sprintf("warn: execution time %s exceeded %s", elapsed, executionWarnThreshold))
	}

	if gazetteCount > 0 {
		efficiency := float64(requestCount) / float64(gazetteCount)
		switch {
		case efficiency >= efficiencyFailPerGaz:
			issues = append(issues, fmt.Sprintf("fail: request efficiency %.1f req/gazette exceeded %.0f", efficiency, efficiencyFailPerGaz))
		case efficiency >= efficiencyWarnPerGaz:
			issues = append(issues, fmt.Sprintf("warn: request efficiency %.1f req/gazette exceeded %.0f", efficiency, efficiencyWarnPerGaz))
		}
	}

	return issues
}
