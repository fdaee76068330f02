package gazette

import (
	"encoding/json"
	"fmt"
)

// PlatformConfig is the `config` field of a SpiderConfig: a tagged union
// discriminated by Kind, carrying exactly the fields the named adapter
// consumes. Unknown kinds fail to parse rather than silently zero-valuing
// every variant.
type PlatformConfig struct {
	Kind PlatformKind `json:"type"`

	CalendarJSON  *CalendarJSONConfig  `json:"calendarJson,omitempty"`
	FormPost      *FormPostConfig      `json:"formPost,omitempty"`
	PaginatedHTML *PaginatedHTMLConfig `json:"paginatedHtml,omitempty"`
	TenantSlug    *TenantSlugConfig    `json:"tenantSlug,omitempty"`
	BrowserRender *BrowserRenderConfig `json:"browserRender,omitempty"`
}

// PlatformKind names which of the five adapter-family config shapes this
// PlatformConfig carries.
type PlatformKind string

const (
	KindCalendarJSON  PlatformKind = "calendarJson"
	KindFormPost      PlatformKind = "formPost"
	KindPaginatedHTML PlatformKind = "paginatedHtml"
	KindTenantSlug    PlatformKind = "tenantSlug"
	KindBrowserRender PlatformKind = "browserRender"
)

// CalendarJSONConfig backs the month-walk JSON/calendar family
// (barco_digital, sigpub, dom_sc, siganet, dioenet).
type CalendarJSONConfig struct {
	BaseURL          string `json:"baseUrl"`
	CalendarPath     string `json:"calendarPath"` // e.g. "/api/calendario/{year}/{month}"
	TenantParam      string `json:"tenantParam,omitempty"`
	TenantValue      string `json:"tenantValue,omitempty"`
	ExtraEditionFlag string `json:"extraEditionFlag,omitempty"` // JSON field name, e.g. "tipo_edicao_id"
}

// FormPostConfig backs the single-request index family (aplus, diario-ba,
// administracao_publica, ptio).
type FormPostConfig struct {
	BaseURL      string            `json:"baseUrl"`
	EndpointPath string            `json:"endpointPath"`
	FormFields   map[string]string `json:"formFields,omitempty"`
	RowSelector  string            `json:"rowSelector"`
	DateSelector string            `json:"dateSelector"`
	LinkSelector string            `json:"linkSelector"`
}

// PaginatedHTMLConfig backs the paged-index, detail-follow family (doem,
// diof, instar, diario_oficial_br, modernizacao, atende-v2,
// municipio-online).
type PaginatedHTMLConfig struct {
	BaseURL        string `json:"baseUrl"`
	IndexPath      string `json:"indexPath"`
	NextSelector   string `json:"nextSelector"`
	EntrySelector  string `json:"entrySelector"`
	DateSelector   string `json:"dateSelector"`
	DetailFollow   bool   `json:"detailFollow"`
	PDFLinkSelector string `json:"pdfLinkSelector,omitempty"`
	MaxPages       int    `json:"maxPages,omitempty"`
}

// TenantSlugConfig backs the tenant-slug API family (dosp, amm-mt,
// adiarios_v1).
type TenantSlugConfig struct {
	BaseURL    string `json:"baseUrl"`
	TenantSlug string `json:"tenantSlug"`
	Journal    string `json:"journal,omitempty"`
	Section    string `json:"section,omitempty"`
}

// BrowserRenderConfig backs the remote-browser-rendered family
// (adiarios_v2).
type BrowserRenderConfig struct {
	RenderServiceURL string `json:"renderServiceUrl"`
	PageURL          string `json:"pageUrl"`
	TableSelector    string `json:"tableSelector"`
}

// UnmarshalJSON rejects unrecognized Kind values and requires the matching
// variant field to be present, so a malformed registry document fails to
// load loudly rather than producing a half-populated config.
func (p *PlatformConfig) UnmarshalJSON(data []byte) error {
	type shadow PlatformConfig
	var s shadow
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s.Kind {
	case KindCalendarJSON:
		if s.CalendarJSON == nil {
			return fmt.Errorf("platform config: type %q missing calendarJson body", s.Kind)
		}
	case KindFormPost:
		if s.FormPost == nil {
			return fmt.Errorf("platform config: type %q missing formPost body", s.Kind)
		}
	case KindPaginatedHTML:
		if s.PaginatedHTML == nil {
			return fmt.Errorf("platform config: type %q missing paginatedHtml body", s.Kind)
		}
	case KindTenantSlug:
		if s.TenantSlug == nil {
			return fmt.Errorf("platform config: type %q missing tenantSlug body", s.Kind)
		}
	case KindBrowserRender:
		if s.BrowserRender == nil {
			return fmt.Errorf("platform config: type %q missing browserRender body", s.Kind)
		}
	default:
		return fmt.Errorf("platform config: unknown variant type %q", s.Kind)
	}
	*p = PlatformConfig(s)
	return nil
}
