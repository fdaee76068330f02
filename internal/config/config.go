// Package config loads operational knobs (rate limits, timeouts, worker
// counts, dead-letter capacity) separately from the spider registry's
// per-city JSON documents. Grounded on the teacher's internal/ingest
// Registry: an embedded YAML document read via gopkg.in/yaml.v3, with
// os.ExpandEnv applied before unmarshaling so deployments can override
// values through the environment without touching the checked-in file.
package config

import (
	"embed"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/operational.yaml
var defaultsFS embed.FS

// RateLimitConfig is the per-host and default token-bucket rate (§5).
type RateLimitConfig struct {
	DefaultRPS float64            `yaml:"defaultRPS"`
	PerHost    map[string]float64 `yaml:"perHost"`
}

// CrawlConfig bounds one crawl executor attempt (§4.D).
type CrawlConfig struct {
	RequestDelayMs        int `yaml:"requestDelayMs"`
	MaxRetries             int `yaml:"maxRetries"`
	TimeoutPerCitySeconds  int `yaml:"timeoutPerCitySeconds"`
	BrowserTimeoutSeconds  int `yaml:"browserTimeoutSeconds"`
}

// RequestDelay is the minimum pause between requests on the same host.
func (c CrawlConfig) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// TimeoutPerCity is the per-city crawl deadline for non-browser adapters.
func (c CrawlConfig) TimeoutPerCity() time.Duration {
	return time.Duration(c.TimeoutPerCitySeconds) * time.Second
}

// BrowserTimeout is the per-city crawl deadline for the remote-browser
// adapter family (§4.A).
func (c CrawlConfig) BrowserTimeout() time.Duration {
	return time.Duration(c.BrowserTimeoutSeconds) * time.Second
}

// ValidationConfig carries the §4.F harness defaults.
type ValidationConfig struct {
	ParallelWorkers   int `yaml:"parallelWorkers"`
	SamplePercentage  int `yaml:"samplePercentage"`
	InterBatchDelayMs int `yaml:"interBatchDelayMs"`
}

// InterBatchDelay is the pause between validation chunk batches.
func (c ValidationConfig) InterBatchDelay() time.Duration {
	return time.Duration(c.InterBatchDelayMs) * time.Millisecond
}

// DeadLetterConfig bounds the in-memory dead-letter ring (§4.D).
type DeadLetterConfig struct {
	Capacity int `yaml:"capacity"`
}

// Config is the full set of operational knobs.
type Config struct {
	RateLimit  RateLimitConfig  `yaml:"rateLimit"`
	Crawl      CrawlConfig      `yaml:"crawl"`
	Validation ValidationConfig `yaml:"validation"`
	DeadLetter DeadLetterConfig `yaml:"deadLetter"`
	Verbose    bool             `yaml:"verbose"`
}

// Load reads the YAML document at path when one is given (a local
// override), and the embedded operational.yaml otherwise, expands
// ${VARS} from the environment, and unmarshals the result.
func Load(path string) (Config, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		return parse(data)
	}
	data, err := defaultsFS.ReadFile("defaults/operational.yaml")
	if err != nil {
		return Config{}, err
	}
	return parse(data)
}

// parse applies environment-variable expansion and unmarshals raw YAML
// bytes, split out of Load so tests can exercise env expansion without
// touching the embedded default.
func parse(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RateFor returns the configured rate for host, falling back to the
// configured default.
func (c Config) RateFor(host string) float64 {
	if rps, ok := c.RateLimit.PerHost[host]; ok {
		return rps
	}
	return c.RateLimit.DefaultRPS
}
