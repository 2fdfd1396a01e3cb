package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"price-watcher/internal/app"
	"price-watcher/internal/config"
	"price-watcher/internal/state"
	"price-watcher/internal/types"
	"price-watcher/scheduler"
)

// APIResponse represents the response from the API
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Watcher is the part of the price watcher the API drives
type Watcher interface {
	Trigger() error
	Status() scheduler.Status
}

// Server exposes the watcher status over HTTP
type Server struct {
	logger  types.Logger
	config  *types.Config
	watcher Watcher
}

// NewServer creates a new API server
func NewServer(config *types.Config, logger types.Logger, watcher Watcher) *Server {
	return &Server{
		logger:  logger,
		config:  config,
		watcher: watcher,
	}
}

// Routes builds the router with CORS applied
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	apiV1.HandleFunc("/last-run", s.handleLastRun).Methods(http.MethodGet)
	apiV1.HandleFunc("/check", s.handleCheck).Methods(http.MethodPost)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	c := cors.New(cors.Options{
		AllowedOrigins: strings.Split(allowedOrigins, ","),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.send(w, http.StatusOK, APIResponse{Success: true, Data: map[string]string{"status": "healthy"}})
}

// handleState returns the persisted price snapshot
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	store, err := state.Load(s.config.StatePath)
	if err != nil {
		s.logger.Errorf("Failed to read state: %v", err)
		s.sendError(w, "Failed to read state", http.StatusInternalServerError)
		return
	}
	s.send(w, http.StatusOK, APIResponse{Success: true, Data: store})
}

// handleLastRun returns the outcome of the latest run
func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	s.send(w, http.StatusOK, APIResponse{Success: true, Data: s.watcher.Status()})
}

// handleCheck starts a price check unless one is running
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	err := s.watcher.Trigger()
	if errors.Is(err, scheduler.ErrRunInProgress) {
		s.sendError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Info("Price check triggered over API")
	s.send(w, http.StatusAccepted, APIResponse{Success: true, Data: map[string]string{"status": "started"}})
}

func (s *Server) send(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Errorf("Failed to encode response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	s.send(w, statusCode, APIResponse{Success: false, Error: message})
}

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		app.NewLogger("", false).Fatalf("Failed to load configuration: %v", err)
	}
	logger := app.NewLogger(cfg.LogLevel, false)

	application := app.New(cfg, logger, os.Stdin, os.Stdout)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := scheduler.NewPriceWatcher(cfg, logger, application.Runner)
	if err := watcher.Start(ctx); err != nil {
		logger.Fatalf("Failed to start watcher: %v", err)
	}

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           NewServer(cfg, logger, watcher).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Infof("Starting API server on port %s", cfg.APIPort)
	logger.Info("Available endpoints:")
	logger.Info("  GET  /health          - Health check")
	logger.Info("  GET  /api/v1/state    - Last known price per item")
	logger.Info("  GET  /api/v1/last-run - Outcome of the latest run")
	logger.Info("  POST /api/v1/check    - Start a price check now")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("API server failed: %v", err)
	}
	watcher.Stop()
}
