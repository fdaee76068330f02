package gazette

import "context"

// SpiderType tags one of the ~20 enumerated publishing platforms.
type SpiderType string

const (
	SpiderDoem                 SpiderType = "doem"
	SpiderDosp                 SpiderType = "dosp"
	SpiderInstar               SpiderType = "instar"
	SpiderDiof                 SpiderType = "diof"
	SpiderAdiariosV1           SpiderType = "adiarios_v1"
	SpiderAdiariosV2           SpiderType = "adiarios_v2"
	SpiderSigpub               SpiderType = "sigpub"
	SpiderDomSC                SpiderType = "dom_sc"
	SpiderAmmMt                SpiderType = "amm-mt"
	SpiderDiarioBa             SpiderType = "diario-ba"
	SpiderBarcoDigital         SpiderType = "barco_digital"
	SpiderSiganet              SpiderType = "siganet"
	SpiderDiarioOficialBr      SpiderType = "diario_oficial_br"
	SpiderModernizacao         SpiderType = "modernizacao"
	SpiderAplus                SpiderType = "aplus"
	SpiderDioenet              SpiderType = "dioenet"
	SpiderAdministracaoPublica SpiderType = "administracao_publica"
	SpiderPtio                 SpiderType = "ptio"
	SpiderAtendeV2             SpiderType = "atende-v2"
	SpiderMunicipioOnline      SpiderType = "municipio-online"
)

// SpiderConfig is one registry entry: a stable city identifier bound to
// the adapter kind and platform-specific variant that discovers its
// gazettes.
type SpiderConfig struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	TerritoryID string         `json:"territoryId"`
	SpiderType  SpiderType     `json:"spiderType"`
	StartDate   string         `json:"startDate"`
	Config      PlatformConfig `json:"config"`
}

// Spider is the uniform contract every platform adapter implements.
// Construction must do no I/O; crawl is the sole blocking operation.
type Spider interface {
	Crawl(ctx context.Context) ([]Gazette, error)
	RequestCount() int
}

// Factory builds a Spider for one registry entry and date range. It
// returns a typed error, never panics, when spiderType is unimplemented.
type Factory func(cfg SpiderConfig, dateRange DateRange) (Spider, error)
