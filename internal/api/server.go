// Package api implements the dispatcher's HTTP surface (§6): an echo
// server exposing the seven routes the external caller and the
// dashboard's health check use. Grounded on the teacher's
// internal/api/server.go setup (echo.New + middleware.Logger/Recover/CORS,
// a thin Server struct wrapping the domain layer), stripped of the
// auth/job-polling routes that have no counterpart in this spec.
package api

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/diariomunicipal/gazette-pipeline/internal/dispatch"
	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
	"github.com/diariomunicipal/gazette-pipeline/internal/queue"
)

const serviceVersion = "1.0.0"

// depthReporter is implemented by queue backends that can report how many
// undrained messages are waiting (queue.InMemory does); a real broker
// client that doesn't implement it just reports depth as unknown.
type depthReporter interface {
	Len() int
}

// Server wires the dispatcher and its queues behind the §6 HTTP surface.
type Server struct {
	Echo *echo.Echo

	dispatcher *dispatch.Dispatcher
	crawlQueue queue.Queue
	ocrQueue   queue.Queue
	startedAt  time.Time
}

// NewServer constructs a Server ready to ListenAndServe.
func NewServer(d *dispatch.Dispatcher, crawlQueue, ocrQueue queue.Queue) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	var allowedOrigins []string
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			if o = strings.TrimSpace(o); o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:4200"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))

	s := &Server{
		Echo:       e,
		dispatcher: d,
		crawlQueue: crawlQueue,
		ocrQueue:   ocrQueue,
		startedAt:  time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/", s.handleRoot)
	s.Echo.POST("/crawl", s.handleCrawl)
	s.Echo.POST("/crawl/today-yesterday", s.handleCrawlTodayYesterday)
	s.Echo.POST("/crawl/cities", s.handleCrawl)
	s.Echo.GET("/spiders", s.handleSpiders)
	s.Echo.GET("/stats", s.handleStats)
	s.Echo.GET("/health/queue", s.handleHealthQueue)
}

func (s *Server) handleRoot(c echo.Context) error {
	stats := s.dispatcher.Stats()
	return c.JSON(http.StatusOK, map[string]any{
		"service":           "gazette-pipeline-dispatcher",
		"version":           serviceVersion,
		"spidersRegistered": stats.Total,
	})
}

// crawlRequestBody is the shared request shape for /crawl and
// /crawl/cities (§6: "{cities, startDate?, endDate?}").
type crawlRequestBody struct {
	Cities    []string `json:"cities"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
}

func (s *Server) handleCrawl(c echo.Context) error {
	var body crawlRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
	}

	result, err := s.dispatcher.SubmitCrawl(c.Request().Context(), dispatch.SubmitCrawlRequest{
		Cities: body.Cities, StartDate: body.StartDate, EndDate: body.EndDate,
	})
	if err != nil {
		return respondDispatchError(c, err)
	}
	return respondCrawlResult(c, result)
}

// crawlTodayYesterdayBody is the request shape for
// /crawl/today-yesterday (§6: "{platform?}").
type crawlTodayYesterdayBody struct {
	Platform string `json:"platform"`
}

func (s *Server) handleCrawlTodayYesterday(c echo.Context) error {
	var body crawlTodayYesterdayBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
	}

	result, err := s.dispatcher.SubmitTodayYesterday(c.Request().Context(), dispatch.SubmitTodayYesterdayRequest{
		PlatformFilter: gazette.SpiderType(body.Platform),
	})
	if err != nil {
		return respondDispatchError(c, err)
	}

	payload := crawlResultPayload(result)
	payload["estimatedTimeMinutes"] = estimatedMinutes(len(result.CityIDs))
	return c.JSON(statusFor(result.Status), payload)
}

func (s *Server) handleSpiders(c echo.Context) error {
	typeFilter := gazette.SpiderType(c.QueryParam("type"))
	spiders := s.dispatcher.ListSpiders(typeFilter)
	return c.JSON(http.StatusOK, map[string]any{
		"total":   len(spiders),
		"spiders": spiders,
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats := s.dispatcher.Stats()
	return c.JSON(http.StatusOK, map[string]any{
		"total":             stats.Total,
		"platforms":         stats.ByPlatform,
		"expectedProcessing": stats.EstimatedBatches,
	})
}

func (s *Server) handleHealthQueue(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":       "ok",
		"uptimeSeconds": int(time.Since(s.startedAt).Seconds()),
		"crawlQueueDepth": depthOf(s.crawlQueue),
		"ocrQueueDepth":   depthOf(s.ocrQueue),
	})
}

func depthOf(q queue.Queue) any {
	if reporter, ok := q.(depthReporter); ok {
		return reporter.Len()
	}
	return "unknown"
}

// estimatedMinutes mirrors the teacher's rough "N items / throughput"
// estimate shown on its background-job status payloads.
func estimatedMinutes(cities int) int {
	const citiesPerMinute = 20
	if cities == 0 {
		return 0
	}
	minutes := cities / citiesPerMinute
	if cities%citiesPerMinute != 0 {
		minutes++
	}
	return minutes
}

func statusFor(status queue.Status) int {
	switch status {
	case queue.StatusSuccess:
		return http.StatusOK
	case queue.StatusPartial:
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}

func crawlResultPayload(result dispatch.SubmitCrawlResult) map[string]any {
	payload := map[string]any{
		"success":       result.Status != queue.StatusFailure,
		"tasksEnqueued": result.Enqueued,
		"cities":        result.CityIDs,
	}
	if result.Failed > 0 {
		payload["failedCount"] = result.Failed
	}
	return payload
}

func respondCrawlResult(c echo.Context, result dispatch.SubmitCrawlResult) error {
	return c.JSON(statusFor(result.Status), crawlResultPayload(result))
}

func respondDispatchError(c echo.Context, err error) error {
	kind, _ := gazette.KindOf(err)
	status := http.StatusInternalServerError
	if kind == gazette.ErrInputInvalid || kind == gazette.ErrUnknownSpider {
		status = http.StatusBadRequest
	}
	return c.JSON(status, map[string]any{"success": false, "error": err.Error()})
}
