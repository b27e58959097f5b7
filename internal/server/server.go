package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/user/hours-bot-go/internal/store"
)

// Metrics for Prometheus
var (
	subscribersTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hours_bot_subscribers",
		Help: "Number of registered subscribers",
	})

	remindersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hours_bot_reminders_total",
		Help: "Total number of reminder sends",
	}, []string{"status"})

	confirmationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hours_bot_confirmations_total",
		Help: "Total number of recorded confirmations",
	})

	questionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hours_bot_questions_total",
		Help: "Total number of recorded questions",
	})

	sweepDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hours_bot_sweep_duration_seconds",
		Help:    "Duration of reminder sweeps in seconds",
		Buckets: prometheus.DefBuckets,
	})

	errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hours_bot_errors_total",
		Help: "Total number of errors",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(subscribersTotal)
	prometheus.MustRegister(remindersTotal)
	prometheus.MustRegister(confirmationsTotal)
	prometheus.MustRegister(questionsTotal)
	prometheus.MustRegister(sweepDurationSeconds)
	prometheus.MustRegister(errorsTotal)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Uptime string `json:"uptime"`
}

// Server handles HTTP requests for health checks and metrics
type Server struct {
	store     store.Store
	router    *http.ServeMux
	server    *http.Server
	startTime time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(store store.Store) *Server {
	s := &Server{
		store:     store,
		router:    http.NewServeMux(),
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening on the specified port
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Int("port", port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info().Msg("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// handleHealth reports store connectivity and uptime as JSON
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storeStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		storeStatus = fmt.Sprintf("unhealthy: %v", err)
	}

	uptime := time.Since(s.startTime).Round(time.Second).String()

	status := "healthy"
	if storeStatus != "healthy" {
		status = "unhealthy"
	}

	response := HealthResponse{
		Status: status,
		Store:  storeStatus,
		Uptime: uptime,
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode health response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// SetSubscribers updates the subscribers gauge
func SetSubscribers(count int) {
	subscribersTotal.Set(float64(count))
}

// RecordReminder records a reminder send metric
func RecordReminder(status string) {
	remindersTotal.WithLabelValues(status).Inc()
}

// RecordConfirmation records a confirmation metric
func RecordConfirmation() {
	confirmationsTotal.Inc()
}

// RecordQuestion records a question metric
func RecordQuestion() {
	questionsTotal.Inc()
}

// RecordSweepDuration records the duration of a reminder sweep
func RecordSweepDuration(duration time.Duration) {
	sweepDurationSeconds.Observe(duration.Seconds())
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
