// Package api exposes the HTTP interface for the trending archive service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github-trending-archive/internal/analytics"
	"github-trending-archive/internal/metrics"
	"github-trending-archive/internal/retry"
	"github-trending-archive/internal/trending"
)

const requestTimeout = 60 * time.Second

// Scraper triggers a controlled scrape run for one UTC day.
type Scraper interface {
	RunForDate(ctx context.Context, date time.Time) retry.Outcome
}

// Config controls server behavior.
type Config struct {
	Port int
}

// Server wires HTTP handlers to the analytics engine and retry controller.
type Server struct {
	router  chi.Router
	engine  *analytics.Engine
	scraper Scraper
	idGen   trending.IDGenerator
	clock   trending.Clock
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	engine *analytics.Engine,
	scraper Scraper,
	idGen trending.IDGenerator,
	clock trending.Clock,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:  engine,
		scraper: scraper,
		idGen:   idGen,
		clock:   clock,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/trending", s.getTrending)
		r.Get("/weekly", s.getWeekly)
		r.Get("/languages", s.getLanguages)
		r.Post("/scrape", s.triggerScrape)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.engine == nil || s.scraper == nil {
		s.writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// getTrending handles GET /v1/trending?date=YYYY-MM-DD. The date defaults to
// the current UTC day.
func (s *Server) getTrending(w http.ResponseWriter, r *http.Request) {
	date, err := s.dateParam(r, "date", s.clock.Now())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	views, err := s.engine.TrendingForDate(r.Context(), date)
	if err != nil {
		s.logger.Error("trending query failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load trending data")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"date":  trending.DateOf(date).Format(time.DateOnly),
		"repos": views,
	})
}

// getWeekly handles GET /v1/weekly?start=YYYY-MM-DD. The start must be a
// Monday; it defaults to the Monday of the current UTC week.
func (s *Server) getWeekly(w http.ResponseWriter, r *http.Request) {
	now := s.clock.Now()
	start, err := s.dateParam(r, "start", mondayOf(now))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.engine.WeeklyReport(r.Context(), start, now)
	if err != nil {
		if start.Weekday() != time.Monday {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("weekly rollup failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to build weekly report")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// getLanguages handles GET /v1/languages?start=YYYY-MM-DD&end=YYYY-MM-DD.
// Both bounds default to the current UTC day.
func (s *Server) getLanguages(w http.ResponseWriter, r *http.Request) {
	today := s.clock.Now()
	start, err := s.dateParam(r, "start", today)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := s.dateParam(r, "end", today)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if trending.DateOf(end).Before(trending.DateOf(start)) {
		s.writeError(w, http.StatusBadRequest, "end must not precede start")
		return
	}
	shares, err := s.engine.LanguageDistribution(r.Context(), start, end)
	if err != nil {
		s.logger.Error("language distribution failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to build language distribution")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"start":     trending.DateOf(start).Format(time.DateOnly),
		"end":       trending.DateOf(end).Format(time.DateOnly),
		"languages": shares,
	})
}

type scrapeRequest struct {
	Date string `json:"date"`
}

// triggerScrape handles POST /v1/scrape with an optional {"date": "YYYY-MM-DD"}
// body. The run executes synchronously; the response carries the controller
// outcome so operators see skips and confirmed gaps directly.
func (s *Server) triggerScrape(w http.ResponseWriter, r *http.Request) {
	var date time.Time
	if r.Body != nil && r.ContentLength != 0 {
		var req scrapeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if req.Date != "" {
			parsed, err := time.Parse(time.DateOnly, req.Date)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
				return
			}
			date = parsed
		}
	}

	outcome := s.scraper.RunForDate(r.Context(), date)
	status := http.StatusOK
	if !outcome.Success && outcome.Skipped != retry.SkipAlreadyHasData {
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, outcome)
}

// dateParam parses an optional YYYY-MM-DD query parameter, falling back to
// the given default.
func (s *Server) dateParam(r *http.Request, name string, def time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return trending.DateOf(def), nil
	}
	parsed, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD", name)
	}
	return parsed, nil
}

// mondayOf returns the Monday of the week containing t, at UTC midnight.
func mondayOf(t time.Time) time.Time {
	day := trending.DateOf(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
