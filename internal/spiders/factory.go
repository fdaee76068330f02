package spiders

import (
	"fmt"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
	"github.com/diariomunicipal/gazette-pipeline/internal/httpfetch"
	"github.com/diariomunicipal/gazette-pipeline/internal/ratelimit"
)

// familyOf maps each of the ~20 enumerated spiderType tags to the one of
// five algorithm families that implements it (§4.A's policy table).
var familyOf = map[gazette.SpiderType]gazette.PlatformKind{
	gazette.SpiderBarcoDigital: gazette.KindCalendarJSON,
	gazette.SpiderSigpub:       gazette.KindCalendarJSON,
	gazette.SpiderDomSC:        gazette.KindCalendarJSON,
	gazette.SpiderSiganet:      gazette.KindCalendarJSON,
	gazette.SpiderDioenet:      gazette.KindCalendarJSON,

	gazette.SpiderAplus:                gazette.KindFormPost,
	gazette.SpiderDiarioBa:             gazette.KindFormPost,
	gazette.SpiderAdministracaoPublica: gazette.KindFormPost,
	gazette.SpiderPtio:                 gazette.KindFormPost,

	gazette.SpiderDoem:            gazette.KindPaginatedHTML,
	gazette.SpiderDiof:            gazette.KindPaginatedHTML,
	gazette.SpiderInstar:          gazette.KindPaginatedHTML,
	gazette.SpiderDiarioOficialBr: gazette.KindPaginatedHTML,
	gazette.SpiderModernizacao:    gazette.KindPaginatedHTML,
	gazette.SpiderAtendeV2:        gazette.KindPaginatedHTML,
	gazette.SpiderMunicipioOnline: gazette.KindPaginatedHTML,

	gazette.SpiderDosp:       gazette.KindTenantSlug,
	gazette.SpiderAmmMt:      gazette.KindTenantSlug,
	gazette.SpiderAdiariosV1: gazette.KindTenantSlug,

	gazette.SpiderAdiariosV2: gazette.KindBrowserRender,
}

// NewFactories builds the gazette.SpiderType -> gazette.Factory map the
// registry dispatches createSpider through, one entry per enumerated
// spiderType, all sharing fetcher and limiter. This directly replaces the
// teacher's StrategyFactory/GlobalStrategyFactory map-based registration
// (internal/ingest/strategies.go), generalized from "ingestion strategy"
// to "spider family".
func NewFactories(limiter *ratelimit.Limiter) map[gazette.SpiderType]gazette.Factory {
	fetcher := httpfetch.New(limiter)
	factories := make(map[gazette.SpiderType]gazette.Factory, len(familyOf))

	for spiderType, family := range familyOf {
		family := family
		factories[spiderType] = func(cfg gazette.SpiderConfig, dateRange gazette.DateRange) (gazette.Spider, error) {
			switch family {
			case gazette.KindCalendarJSON:
				return NewCalendarJSONSpider(cfg, dateRange, fetcher)
			case gazette.KindFormPost:
				return NewFormPostSpider(cfg, dateRange)
			case gazette.KindPaginatedHTML:
				return NewPaginatedHTMLSpider(cfg, dateRange, fetcher)
			case gazette.KindTenantSlug:
				return NewTenantSlugSpider(cfg, dateRange, fetcher)
			case gazette.KindBrowserRender:
				return NewBrowserRenderSpider(cfg, dateRange, fetcher)
			default:
				return nil, gazette.NewError("factory.create", gazette.ErrUnknownSpider,
					fmt.Errorf("no family mapped for spiderType %q", spiderType))
			}
		}
	}
	return factories
}
