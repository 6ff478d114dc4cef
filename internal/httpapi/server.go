package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/shareef6907/BahrainNights-sub013/internal/auth"
	"github.com/shareef6907/BahrainNights-sub013/internal/db"
	"github.com/shareef6907/BahrainNights-sub013/internal/globaltime"
	"github.com/shareef6907/BahrainNights-sub013/internal/metrics"
	"github.com/shareef6907/BahrainNights-sub013/internal/pipeline"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

// SyncRunner runs one pipeline execution.
type SyncRunner interface {
	Run(ctx context.Context) (pipeline.Summary, error)
}

// Store is the read side the API serves from.
type Store interface {
	Ping(ctx context.Context) error
	ListEvents(ctx context.Context, f db.EventFilter) ([]db.EventRecord, int64, error)
	ListSyncRuns(ctx context.Context, limit int) ([]db.SyncRun, error)
	CountEventsByCountry(ctx context.Context, sourceName string) (map[string]int64, error)
}

type Options struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	SyncTimeout        time.Duration
	SourceName         string
	CORSAllowedOrigins []string
}

type Server struct {
	store      Store
	runner     SyncRunner
	authorizer *auth.CronAuthorizer
	guard      runGuard
	logger     zerolog.Logger
	opts       Options
}

func NewServer(store Store, runner SyncRunner, authorizer *auth.CronAuthorizer, logger zerolog.Logger, opts Options) *Server {
	if strings.TrimSpace(opts.Host) == "" {
		opts.Host = "0.0.0.0"
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	// A sync can take minutes; the write timeout has to cover it.
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = 5 * time.Minute
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = opts.SyncTimeout + 30*time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	return &Server{
		store:      store,
		runner:     runner,
		authorizer: authorizer,
		logger:     logger,
		opts:       opts,
	}
}

// Handler builds the echo instance with all routes and middleware.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	origins := s.opts.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       3600,
	}))
	e.Use(requestMetrics)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}
			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	cron := e.Group("/api/cron", s.requireCronAuth)
	cron.GET("/sync-events", s.handleSyncEvents)
	cron.POST("/sync-events", s.handleSyncEvents)

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/events", s.handleEvents)
	api.GET("/runs", s.handleRuns)
	api.GET("/stats", s.handleStats)

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	return e
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.store == nil || s.runner == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("eventsync server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("eventsync server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if v, ok := he.Message.(string); ok && strings.TrimSpace(v) != "" {
			message = v
		} else if text := http.StatusText(status); text != "" {
			message = text
		}
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		timer := metrics.NewTimer()
		err := next(c)

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		status := c.Response().Status
		var he *echo.HTTPError
		if err != nil && errors.As(err, &he) {
			status = he.Code
		}
		method := c.Request().Method
		metrics.APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		timer.ObserveDuration(metrics.APIRequestDuration.WithLabelValues(method, route))
		return err
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	database := "ok"
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("health check database ping failed")
		database = "unavailable"
	}
	running, startedAt := s.guard.status()

	data := map[string]any{
		"service":      "eventsync",
		"time":         globaltime.UTC(),
		"database":     database,
		"sync_running": running,
	}
	if running {
		data["sync_started_at"] = startedAt
	}
	return success(c, data)
}

func (s *Server) handleEvents(c echo.Context) error {
	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"page": err.Error()})
	}
	pageSize, err := parsePositiveInt(c.QueryParam("page_size"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"page_size": err.Error()})
	}
	country := strings.ToUpper(strings.TrimSpace(c.QueryParam("country")))
	if country != "" && len(country) != 2 {
		return failValidation(c, map[string]string{"country": "must be an ISO-3166 alpha-2 code"})
	}
	from := strings.TrimSpace(c.QueryParam("from"))
	if from != "" {
		if _, err := time.Parse(time.DateOnly, from); err != nil {
			return failValidation(c, map[string]string{"from": "must be YYYY-MM-DD"})
		}
	}

	filter := db.EventFilter{
		SourceName: s.opts.SourceName,
		Country:    country,
		Category:   strings.ToLower(strings.TrimSpace(c.QueryParam("category"))),
		FromDate:   from,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}
	items, total, err := s.store.ListEvents(c.Request().Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("query events failed")
		return internalError(c, "Failed to load events")
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return success(c, map[string]any{
		"items": items,
		"pagination": map[string]any{
			"page":        page,
			"page_size":   pageSize,
			"total_items": total,
			"total_pages": totalPages,
		},
	})
}

func (s *Server) handleRuns(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), 20, 1, 100)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	runs, err := s.store.ListSyncRuns(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query sync runs failed")
		return internalError(c, "Failed to load sync runs")
	}
	return success(c, map[string]any{"items": runs})
}

func (s *Server) handleStats(c echo.Context) error {
	counts, err := s.store.CountEventsByCountry(c.Request().Context(), s.opts.SourceName)
	if err != nil {
		s.logger.Error().Err(err).Msg("query event counts failed")
		return internalError(c, "Failed to load stats")
	}
	var total int64
	for _, n := range counts {
		total += n
	}

	data := map[string]any{
		"source":    s.opts.SourceName,
		"countries": counts,
		"total":     total,
	}
	runs, err := s.store.ListSyncRuns(c.Request().Context(), 1)
	if err != nil {
		s.logger.Error().Err(err).Msg("query latest sync run failed")
		return internalError(c, "Failed to load stats")
	}
	if len(runs) > 0 {
		data["last_run"] = runs[0]
	}
	return success(c, data)
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
