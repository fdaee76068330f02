package config

import (
	"os"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RateLimit.DefaultRPS != 5.0 {
		t.Errorf("defaultRPS = %v, want 5.0", cfg.RateLimit.DefaultRPS)
	}
	if cfg.RateFor("doem.org.br") != 3.0 {
		t.Errorf("doem.org.br override = %v, want 3.0", cfg.RateFor("doem.org.br"))
	}
	if cfg.RateFor("unknown.example.com") != 5.0 {
		t.Errorf("unlisted host should fall back to default rate")
	}
	if cfg.Crawl.MaxRetries != 3 {
		t.Errorf("maxRetries = %d, want 3", cfg.Crawl.MaxRetries)
	}
	if cfg.Validation.ParallelWorkers != 10 {
		t.Errorf("parallelWorkers = %d, want 10", cfg.Validation.ParallelWorkers)
	}
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	os.Setenv("GAZETTE_TEST_RATE", "7")
	defer os.Unsetenv("GAZETTE_TEST_RATE")

	cfg, err := parse([]byte(`
rateLimit:
  defaultRPS: ${GAZETTE_TEST_RATE}
  perHost: {}
crawl:
  requestDelayMs: 1
  maxRetries: 1
  timeoutPerCitySeconds: 1
  browserTimeoutSeconds: 1
validation:
  parallelWorkers: 1
  samplePercentage: 1
  interBatchDelayMs: 1
deadLetter:
  capacity: 1
verbose: false
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.RateLimit.DefaultRPS != 7 {
		t.Errorf("expected env-expanded defaultRPS 7, got %v", cfg.RateLimit.DefaultRPS)
	}
}
