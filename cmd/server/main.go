// Package main provides the HTTP service:
// - /health, /status, /metrics
// - /runs/latest and /runs/{id}: stored run reports as JSON
// - POST /runs: trigger a simulation for a date range
// - /stream: websocket day and run events
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"opening-trade-lab/internal/config"
	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/fixtures"
	"opening-trade-lab/internal/logging"
	"opening-trade-lab/internal/metrics"
	"opening-trade-lab/internal/observability"
	"opening-trade-lab/internal/orchestrator"
	"opening-trade-lab/internal/reporting"
	"opening-trade-lab/internal/storage"
	"opening-trade-lab/internal/stream"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// Server holds all components of the HTTP service.
type Server struct {
	orch     *orchestrator.Orchestrator
	hub      *stream.Hub
	registry *prometheus.Registry
	logger   zerolog.Logger

	// base context for background runs
	ctx context.Context
	wg  sync.WaitGroup

	// State
	mu         sync.Mutex
	started    time.Time
	running    bool
	lastRunID  string
	lastError  string
	lastRunEnd time.Time
	runs       int
}

func main() {
	configPath := flag.String("config", "", "Config file (YAML or JSON); env OTL_* overrides")
	sample := flag.Bool("sample", false, "Seed the bundled sample dataset at startup")
	dataPath := flag.String("data", "", "Intraday dataset file or directory to seed at startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Pretty).With().Str("component", "server").Logger()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := observability.NewMetrics("", registry)

	stores, err := orchestrator.OpenStores(ctx, cfg.Storage, m)
	if err != nil {
		logger.Fatal().Err(err).Msg("open stores")
	}
	defer stores.Close()

	srv := NewServer(ctx, stores, cfg, registry, m, logger)

	if ds, err := startupDataset(*dataPath, *sample); err != nil {
		logger.Fatal().Err(err).Msg("load dataset")
	} else if ds != nil {
		if _, err := srv.orch.Seed(ctx, ds); err != nil {
			logger.Fatal().Err(err).Msg("seed dataset")
		}
	}

	go srv.hub.Run(ctx)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
		defer done()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown")
		}
	}()

	logger.Info().Str("addr", cfg.HTTP.Addr).Bool("persistent", stores.Persistent).Msg("starting http server")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("http server")
	}

	srv.Wait()
	logger.Info().Msg("shutdown complete")
}

func startupDataset(path string, sample bool) (*fixtures.Dataset, error) {
	switch {
	case path != "":
		return fixtures.Load(path)
	case sample:
		return fixtures.Sample()
	default:
		return nil, nil
	}
}

// NewServer wires the orchestrator and stream hub. The hub must be started with Run.
func NewServer(ctx context.Context, stores *orchestrator.Stores, cfg *config.Config, registry *prometheus.Registry, m *observability.Metrics, logger zerolog.Logger) *Server {
	hub := stream.NewHub(logger, m)
	return &Server{
		orch: orchestrator.New(orchestrator.Options{
			Stores:   stores,
			Config:   cfg,
			Logger:   &logger,
			Metrics:  m,
			Observer: hub,
		}),
		hub:      hub,
		registry: registry,
		logger:   logger,
		ctx:      ctx,
		started:  time.Now(),
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.HandlerFor(s.registry))
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /runs/latest", s.handleReport)
	mux.HandleFunc("GET /runs/{id}", s.handleReport)
	mux.HandleFunc("POST /runs", s.handleStartRun)
	mux.Handle("GET /stream", s.hub)

	return mux
}

// Wait blocks until background runs have finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	Running       bool      `json:"running"`
	Runs          int       `json:"runs"`
	LastRunID     string    `json:"last_run_id,omitempty"`
	LastRunEnd    time.Time `json:"last_run_end,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	StreamClients int       `json:"stream_clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		Running:       s.running,
		Runs:          s.runs,
		LastRunID:     s.lastRunID,
		LastRunEnd:    s.lastRunEnd,
		LastError:     s.lastError,
		StreamClients: s.hub.Clients(),
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleReport serves the report of {id}, or of the latest run.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.orch.Report(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound), errors.Is(err, metrics.ErrNoResults):
			writeError(w, http.StatusNotFound, err)
		default:
			s.logger.Error().Err(err).Msg("generate report")
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := reporting.WriteJSON(w, doc); err != nil {
		s.logger.Error().Err(err).Msg("write report")
	}
}

// RunRequest is the body of POST /runs. Empty dates span every candidate date.
type RunRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
			return
		}
	}

	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.StartRun(from, to); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// StartRun launches a simulation in the background.
// Returns ErrRunInProgress if one is already active.
func (s *Server) StartRun(from, to time.Time) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result, err := s.orch.Run(s.ctx, nil, from, to)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.running = false
		s.runs++
		s.lastRunEnd = time.Now()
		if err != nil {
			s.lastError = err.Error()
			s.logger.Error().Err(err).Msg("run failed")
			return
		}
		s.lastError = ""
		s.lastRunID = result.Simulation.Run.RunID
		s.hub.PublishRun(result.Simulation.Run)
	}()
	return nil
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if fromStr != "" {
		if from, err = domain.ParseTradingDate(fromStr); err != nil {
			return from, to, fmt.Errorf("invalid from: %w", err)
		}
	}
	if toStr != "" {
		if to, err = domain.ParseTradingDate(toStr); err != nil {
			return from, to, fmt.Errorf("invalid to: %w", err)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, fmt.Errorf("to %s precedes from %s", toStr, fromStr)
	}
	return from, to, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
