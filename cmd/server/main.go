package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/diariomunicipal/gazette-pipeline/internal/ai"
	"github.com/diariomunicipal/gazette-pipeline/internal/analyzer"
	"github.com/diariomunicipal/gazette-pipeline/internal/api"
	"github.com/diariomunicipal/gazette-pipeline/internal/config"
	"github.com/diariomunicipal/gazette-pipeline/internal/crawlexec"
	"github.com/diariomunicipal/gazette-pipeline/internal/dispatch"
	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
	"github.com/diariomunicipal/gazette-pipeline/internal/ocr"
	"github.com/diariomunicipal/gazette-pipeline/internal/queue"
	"github.com/diariomunicipal/gazette-pipeline/internal/ratelimit"
	"github.com/diariomunicipal/gazette-pipeline/internal/registry"
	"github.com/diariomunicipal/gazette-pipeline/internal/spiders"
	"github.com/diariomunicipal/gazette-pipeline/internal/store"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	cfg, err := config.Load(os.Getenv("OPERATIONAL_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load operational config: %v", err)
	}

	citiesPath := os.Getenv("CITIES_CONFIG_PATH")
	if citiesPath == "" {
		citiesPath = "config/cities.json"
	}

	limiter := ratelimit.New(cfg.RateLimit.PerHost)
	factories := spiders.NewFactories(limiter)
	reg, err := registry.Load(factories, citiesPath)
	if err != nil {
		log.Fatalf("failed to load spider registry from %s: %v", citiesPath, err)
	}
	log.Printf("loaded %d spider configurations from %s", reg.Stat().Total, citiesPath)

	crawlQueue := queue.NewInMemory(nil)
	ocrQueue := queue.NewInMemory(nil)
	webhookQueue := queue.NewInMemory(nil)
	deadLetter := queue.NewDeadLetterRing(cfg.DeadLetter.Capacity)

	var runRecorder dispatch.RunRecorder
	ctx := context.Background()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := store.Connect(ctx)
		if err != nil {
			log.Printf("[store] database unavailable, run bookkeeping disabled: %v", err)
		} else {
			defer pool.Close()
			if err := store.ApplyMigrations(ctx, pool); err != nil {
				log.Fatalf("store migration failed: %v", err)
			}
			runRecorder = store.New(pool)
		}
	} else {
		log.Printf("[store] DATABASE_URL not set, run bookkeeping disabled")
	}

	var dispatcherOpts []dispatch.Option
	if runRecorder != nil {
		dispatcherOpts = append(dispatcherOpts, dispatch.WithRunRecorder(runRecorder))
	}
	dispatcher := dispatch.New(reg, crawlQueue, dispatcherOpts...)

	executor := crawlexec.New(reg, ocrQueue, deadLetter)
	go runCrawlWorker(ctx, crawlQueue, executor)

	ollamaHost := os.Getenv("OLLAMA_HOST")
	if ollamaHost == "" {
		ollamaHost = "http://localhost:11434"
	}
	aiClient := ai.NewOllamaClient(ollamaHost, os.Getenv("OLLAMA_MODEL"))
	orchestrator := analyzer.NewOrchestrator(analyzer.DefaultAnalyzers(aiClient), 0)

	var ocrProvider ocr.Provider
	if ocrProviderURL := os.Getenv("OCR_PROVIDER_URL"); ocrProviderURL != "" {
		ocrProvider = ocr.NewHTTPProvider(ocrProviderURL)
	} else {
		log.Printf("[ocr] OCR_PROVIDER_URL not set, analyze stage disabled")
	}
	go runAnalyzeWorker(ctx, ocrQueue, webhookQueue, ocrProvider, orchestrator)

	srv := api.NewServer(dispatcher, crawlQueue, ocrQueue)
	log.Printf("gazette-pipeline dispatcher starting on port %s", port)
	if err := srv.Echo.Start(":" + port); err != nil {
		log.Fatal(err)
	}
}

// runCrawlWorker drains the crawl queue in-process and runs each message
// through the executor. A production deployment would instead run this
// loop in its own worker pool against a real broker; here it plays the
// same role the teacher's single-process ingest loop does for
// cmd/server — a always-on consumer over whatever Queue implementation
// was wired in.
func runCrawlWorker(ctx context.Context, q *queue.InMemory, executor *crawlexec.Executor) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		for _, raw := range q.Drain() {
			var msg gazette.CrawlMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Printf("[crawl-worker] discarding undecodable message: %v", err)
				continue
			}
			outcome := executor.ProcessMessage(ctx, msg)
			log.Printf("[crawl-worker] spiderId=%s state=%s attempts=%d gazettes=%d",
				msg.SpiderID, outcome.State, outcome.Attempts, outcome.Gazettes)
		}
	}
}

// runAnalyzeWorker drains the OCR queue, resolves each gazette's text
// through provider, and runs the orchestrator over the result, forwarding
// the findings to the webhook queue for the (external) delivery worker.
// A nil provider means the OCR stage is unconfigured for this deployment;
// the worker then drains and discards rather than blocking the queue.
func runAnalyzeWorker(ctx context.Context, ocrQueue, webhookQueue *queue.InMemory, provider ocr.Provider, orchestrator *analyzer.Orchestrator) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		for _, raw := range ocrQueue.Drain() {
			var msg gazette.OCRMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Printf("[analyze-worker] discarding undecodable message: %v", err)
				continue
			}
			if provider == nil {
				continue
			}

			text, err := provider.Transcribe(ctx, msg.Gazette.FileURL)
			if err != nil {
				log.Printf("[analyze-worker] spiderId=%s ocr transcription failed: %v", msg.SpiderID, err)
				continue
			}

			analysis := orchestrator.Run(ctx, analyzer.OCRInput{
				OCRJobID:       msg.Gazette.FileURL,
				Text:           text,
				TerritoryID:    msg.Gazette.TerritoryID,
				Date:           msg.Gazette.Date,
				SpiderID:       msg.SpiderID,
				IsExtraEdition: msg.Gazette.IsExtraEdition,
			})

			payload, err := json.Marshal(gazette.WebhookMessage{
				MessageID:    analysis.OCRJobID,
				Notification: analysis,
			})
			if err != nil {
				log.Printf("[analyze-worker] spiderId=%s failed to encode analysis: %v", msg.SpiderID, err)
				continue
			}
			if err := webhookQueue.Send(ctx, payload); err != nil {
				log.Printf("[analyze-worker] spiderId=%s failed to enqueue webhook message: %v", msg.SpiderID, err)
			}
		}
	}
}
