// Package server exposes the HTTP API for enqueueing links, searching,
// and inspecting queue and runtime state.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/musicofhel/link-forge-sub001/internal/metrics"
	"github.com/musicofhel/link-forge-sub001/internal/queue"
	"github.com/musicofhel/link-forge-sub001/internal/service"
)

const defaultSearchLimit = 10

// Server is the LinkForge HTTP API.
type Server struct {
	echo    *echo.Echo
	queue   *queue.Queue
	search  *service.Search
	metrics *metrics.Collector
}

// New creates the HTTP API over the given queue and retrieval engine.
func New(q *queue.Queue, search *service.Search, collector *metrics.Collector) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))

	s := &Server{echo: e, queue: q, search: search, metrics: collector}

	e.GET("/healthz", s.handleHealth)
	e.POST("/api/links", s.handleEnqueueLink)
	e.GET("/api/search", s.handleSearch)
	e.GET("/api/chunks", s.handleChunkSearch)
	e.GET("/api/queue/stats", s.handleQueueStats)
	e.GET("/api/metrics", s.handleMetrics)

	return s
}

// Start begins serving on addr, blocking until shutdown.
func (s *Server) Start(addr string) error {
	slog.Info("http api listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type enqueueRequest struct {
	URL string `json:"url"`
}

type enqueueResponse struct {
	JobID string `json:"job_id"`
	URL   string `json:"url"`
}

func (s *Server) handleEnqueueLink(c echo.Context) error {
	var req enqueueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	payload, err := queue.URLPayload(req.URL)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	jobID, err := s.queue.Enqueue(c.Request().Context(), payload)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to enqueue link")
	}

	return c.JSON(http.StatusAccepted, enqueueResponse{JobID: jobID, URL: payload.Key})
}

// parseLimit reads the limit query parameter with a default.
func parseLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return defaultSearchLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
	}
	return limit, nil
}

// searchError maps retrieval engine errors to HTTP status codes.
func searchError(err error) error {
	switch {
	case errors.Is(err, service.ErrEmptyQuery),
		errors.Is(err, service.ErrEmptyEmbedding),
		errors.Is(err, service.ErrInvalidLimit):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
}

func (s *Server) handleSearch(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}

	results, err := s.search.HybridSearch(c.Request().Context(), c.QueryParam("q"), nil, limit)
	if err != nil {
		return searchError(err)
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) handleChunkSearch(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}

	results, err := s.search.ChunkSearch(c.Request().Context(), c.QueryParam("q"), nil, limit)
	if err != nil {
		return searchError(err)
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) handleQueueStats(c echo.Context) error {
	stats, err := s.queue.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read queue stats")
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.metrics.Snapshot())
}
