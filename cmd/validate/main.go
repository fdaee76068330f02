package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/diariomunicipal/gazette-pipeline/internal/config"
	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
	"github.com/diariomunicipal/gazette-pipeline/internal/ratelimit"
	"github.com/diariomunicipal/gazette-pipeline/internal/registry"
	"github.com/diariomunicipal/gazette-pipeline/internal/spiders"
	"github.com/diariomunicipal/gazette-pipeline/internal/validate"
)

func main() {
	mode := flag.String("mode", string(validate.ModeFull), "full|sample|platform|single|regression")
	platform := flag.String("platform", "", "spiderType filter, for -mode=platform")
	cities := flag.String("cities", "", "comma-separated city ids, for -mode=single/regression")
	format := flag.String("format", string(validate.FormatConsole), "json|markdown|html|csv|console")
	citiesPath := flag.String("citiesConfig", "config/cities.json", "path to the spider registry JSON document")
	probe := flag.Bool("probe", false, "HEAD-probe a sample of fileUrls")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("OPERATIONAL_CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load operational config: %v\n", err)
		os.Exit(1)
	}

	limiter := ratelimit.New(cfg.RateLimit.PerHost)
	factories := spiders.NewFactories(limiter)
	reg, err := registry.Load(factories, *citiesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load spider registry from %s: %v\n", *citiesPath, err)
		os.Exit(1)
	}

	opts := validate.Options{
		Mode:            validate.Mode(*mode),
		Workers:         cfg.Validation.ParallelWorkers,
		SamplePercent:   cfg.Validation.SamplePercentage,
		InterBatchDelay: cfg.Validation.InterBatchDelay(),
		PlatformFilter:  gazette.SpiderType(*platform),
		CityIDs:         splitCSV(*cities),
		ProbeFileURLs:   *probe,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	report, err := validate.New(reg).Run(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "validation run failed: %v\n", err)
		os.Exit(1)
	}

	out, err := report.Render(validate.Format(*format))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to render report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out)

	if report.Failed > 0 {
		os.Exit(1)
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
