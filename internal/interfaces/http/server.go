// Package http exposes the thin service surface: health, metrics, and JSON
// wrappers over the aggregator and the diagnosis orchestrator. All decisions
// live in the wrapped components.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/amzops/sellerpulse/internal/aggregator"
	"github.com/amzops/sellerpulse/internal/diagnosis"
)

// Server hosts the service endpoints.
type Server struct {
	router       *mux.Router
	aggregator   *aggregator.Aggregator
	orchestrator *diagnosis.Orchestrator
}

// NewServer wires the routes.
func NewServer(agg *aggregator.Aggregator, orch *diagnosis.Orchestrator) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		aggregator:   agg,
		orchestrator: orch,
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/aggregate", s.handleAggregate).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/diagnose", s.handleDiagnose).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/products/{asin}/{warehouse}/diagnosis", s.handleDiagnoseASIN).Methods(http.MethodGet)

	return s
}

// Handler returns the root handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving HTTP until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("HTTP server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type aggregateRequest struct {
	TargetDate string `json:"target_date,omitempty"` // YYYY-MM-DD, default yesterday
	Strategy   string `json:"strategy,omitempty"`    // replace | merge
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	if s.aggregator == nil {
		writeError(w, http.StatusServiceUnavailable, "aggregator not configured")
		return
	}

	var req aggregateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	opts := aggregator.RunOptions{Strategy: aggregator.Strategy(req.Strategy)}
	if req.TargetDate != "" {
		t, err := time.Parse("2006-01-02", req.TargetDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "target_date must be YYYY-MM-DD")
			return
		}
		opts.TargetDate = t
	}

	summary, err := s.aggregator.Run(r.Context(), opts)
	if err != nil {
		log.Error().Err(err).Msg("Aggregation run failed")
		writeError(w, http.StatusInternalServerError, "aggregation failed")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	var input diagnosis.ProductAnalysisData
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.orchestrator.Analyze(r.Context(), input)
	s.writeDiagnosis(w, result, err)
}

func (s *Server) handleDiagnoseASIN(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := s.orchestrator.AnalyzeASIN(r.Context(), vars["asin"], vars["warehouse"])
	s.writeDiagnosis(w, result, err)
}

func (s *Server) writeDiagnosis(w http.ResponseWriter, result *diagnosis.Result, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, diagnosis.ErrValidation):
		// The error report is still a renderable artifact.
		if result != nil {
			writeJSON(w, http.StatusUnprocessableEntity, result)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Error().Err(err).Msg("Diagnosis failed")
		writeError(w, http.StatusBadGateway, "diagnosis failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
