// Command paldcore-server is the thin HTTP surface over the PALD core: the
// orchestrator's /process operation, prerequisite-readiness endpoints, and
// the standard /healthz, /readyz, /metrics trio.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/paldcore/paldcore/internal/config"
	apperrors "github.com/paldcore/paldcore/internal/errors"
	"github.com/paldcore/paldcore/pkg/artifact"
	"github.com/paldcore/paldcore/pkg/bias"
	"github.com/paldcore/paldcore/pkg/metrics"
	"github.com/paldcore/paldcore/pkg/orchestrator"
	"github.com/paldcore/paldcore/pkg/pald"
	"github.com/paldcore/paldcore/pkg/prerequisite"
	"github.com/paldcore/paldcore/pkg/schema"
	sharedhttp "github.com/paldcore/paldcore/pkg/shared/http"
)

func main() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	log := zapr.NewLogger(zapLogger)

	cfg, err := loadConfig(log)
	if err != nil {
		log.Error(err, "configuration invalid, refusing to start")
		os.Exit(1)
	}

	srv := newServer(cfg, log)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go srv.runQueueWorker(workerCtx)

	httpServer := &http.Server{
		Addr:              listenAddr(),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("paldcore-server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "server stopped unexpectedly")
			os.Exit(1)
		}
	}()

	waitForShutdown(httpServer, log)
	stopWorker()
}

// runQueueWorker drains the deferred bias queue on the configured interval
// and ages out terminal jobs and artifacts past the retention window.
func (s *server) runQueueWorker(ctx context.Context) {
	interval := s.cfg.Bias.QueueProcessingInterval.Std()
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results := s.biasManager.ProcessBatch(s.cfg.Bias.JobBatchSize)
			if len(results) > 0 {
				s.log.Info("processed bias job batch", "count", len(results))
			}

			cutoff := time.Now().AddDate(0, 0, -s.cfg.Privacy.DataRetentionDays)
			if removed := s.biasManager.Cleanup(cutoff); removed > 0 {
				s.log.Info("cleaned up terminal bias jobs", "count", removed)
			}
			if removed := s.store.Cleanup(cutoff); removed > 0 {
				s.log.Info("cleaned up retained artifacts", "count", removed)
			}
		}
	}
}

// loadConfig reads the configuration file named by PALDCORE_CONFIG_PATH, or
// falls back to the built-in defaults if unset. A failure to read, parse
// or validate the configuration is the one error this command propagates;
// everything downstream degrades instead of refusing to start.
func loadConfig(log logr.Logger) (*config.Config, error) {
	path := os.Getenv("PALDCORE_CONFIG_PATH")
	if path == "" {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	log.Info("configuration loaded", "path", path)
	return cfg, nil
}

func listenAddr() string {
	if addr := os.Getenv("PALDCORE_LISTEN_ADDR"); addr != "" {
		return addr
	}
	return ":8080"
}

// server wires every component the core needs behind the HTTP surface.
type server struct {
	cfg           *config.Config
	log           logr.Logger
	orchestrator  *orchestrator.Orchestrator
	biasManager   *bias.Manager
	prerequisites *prerequisite.Service
	store         *artifact.Store
	metrics       *metrics.Metrics
}

func newServer(cfg *config.Config, log logr.Logger) *server {
	reg := schema.NewRegistry(cfg.Schema.FilePath, cfg.Schema.CacheTTL.Std(), log)
	mgr := bias.NewManager()
	mgr.SetAnalysisTimeout(cfg.Bias.AnalysisTimeout.Std())
	store := artifact.NewStore()
	m := metrics.NewMetrics()
	mgr.SetMetrics(m)

	orch := orchestrator.New(reg, mgr, store, cfg, log)

	prereq := prerequisite.NewService(5 * time.Minute)
	prereq.SetMetrics(m)
	prereq.RegisterDefaultOperations()
	registerDefaultCheckers(prereq)

	return &server{
		cfg:           cfg,
		log:           log,
		orchestrator:  orch,
		biasManager:   mgr,
		prerequisites: prereq,
		store:         store,
		metrics:       m,
	}
}

// registerDefaultCheckers wires the concrete checkers this process can
// run without additional external configuration. Checkers needing a live
// collaborator (a database DSN, a service URL) are registered only when
// their configuration is present, and no consent-status checker is
// registered here; their absence does not prevent startup,
// matching the prerequisite validator's boundary-only failure model.
func registerDefaultCheckers(svc *prerequisite.Service) {
	if dsn := os.Getenv("PALDCORE_DATABASE_DSN"); dsn != "" {
		svc.Register(prerequisite.NewDatabaseConnectivityChecker(dsn, 5*time.Second))
	}
	if url := os.Getenv("PALDCORE_EXTERNAL_SERVICE_URL"); url != "" {
		svc.Register(prerequisite.NewExternalServiceConnectivityChecker("external_service_connectivity", url, 5*time.Second))
	}
	if url := os.Getenv("PALDCORE_DEPENDENT_SERVICE_URL"); url != "" {
		svc.Register(prerequisite.NewDependentServiceChecker("dependent_service", url, 5*time.Second, pald.KindRecommended))
	}
	svc.Register(prerequisite.NewSystemHealthChecker(nil))
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(sharedhttp.Handler(sharedhttp.FromEnvironment()))
	r.Use(s.metricsMiddleware)

	r.Post("/process", s.handleProcess)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/prerequisites/{operation}", s.handlePrerequisites)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.metrics.RequestsTotal.WithLabelValues(r.Method, r.URL.Path, fmt.Sprint(ww.Status())).Inc()
		s.metrics.RequestDurationSeconds.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// processRequest is the JSON wire shape of orchestrator.Request.
type processRequest struct {
	UserID            string                 `json:"user_id"`
	SessionID         string                 `json:"session_id"`
	DescriptionText   string                 `json:"description_text"`
	EmbodimentCaption string                 `json:"embodiment_caption,omitempty"`
	DeferBiasScan     *bool                  `json:"defer_bias_scan,omitempty"`
	ProcessingOptions map[string]interface{} `json:"processing_options,omitempty"`
}

// processResponse is the JSON wire shape of orchestrator.Response.
type processResponse struct {
	PALDLight          interface{}            `json:"pald_light"`
	PALDDiffSummary    string                 `json:"pald_diff_summary,omitempty"`
	DeferNotice        string                 `json:"defer_notice,omitempty"`
	ValidationErrors   []string               `json:"validation_errors"`
	ProcessingMetadata processingMetadataJSON `json:"processing_metadata"`
}

type processingMetadataJSON struct {
	ArtifactID           string    `json:"artifact_id"`
	ExtractionConfidence float64   `json:"extraction_confidence"`
	CompressedPrompt     string    `json:"compressed_prompt"`
	ProcessingTimestamp  time.Time `json:"processing_timestamp"`
	Error                bool      `json:"error,omitempty"`
}

func (s *server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.NewValidationError("malformed request body"))
		return
	}
	if req.UserID == "" {
		writeError(w, apperrors.NewValidationError("user_id is required"))
		return
	}

	resp := s.orchestrator.Process(orchestrator.Request{
		UserID:            req.UserID,
		SessionID:         req.SessionID,
		DescriptionText:   req.DescriptionText,
		EmbodimentCaption: req.EmbodimentCaption,
		DeferBiasScan:     req.DeferBiasScan,
		ProcessingOptions: req.ProcessingOptions,
	})

	writeJSON(w, http.StatusOK, processResponse{
		PALDLight:        resp.PALDLight,
		PALDDiffSummary:  resp.PALDDiffSummary,
		DeferNotice:      resp.DeferNotice,
		ValidationErrors: resp.ValidationErrors,
		ProcessingMetadata: processingMetadataJSON{
			ArtifactID:           resp.ProcessingMetadata.ArtifactID,
			ExtractionConfidence: resp.ProcessingMetadata.ExtractionConfidence,
			CompressedPrompt:     resp.ProcessingMetadata.CompressedPrompt,
			ProcessingTimestamp:  resp.ProcessingMetadata.ProcessingTimestamp,
			Error:                resp.ProcessingMetadata.Error,
		},
	})
}

// handleHealthz is a liveness probe: the process can answer HTTP at all.
func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz runs the "system_startup" prerequisite policy and reports
// 200 when ready, 503 otherwise.
func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	readiness := s.prerequisites.CheckOperationReadiness(r.Context(), "system_startup")
	status := http.StatusOK
	if !readiness.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, readiness)
}

// handlePrerequisites exposes check_operation_readiness for an arbitrary
// named operation, for the embedding application to gate its own
// operations before dispatch.
func (s *server) handlePrerequisites(w http.ResponseWriter, r *http.Request) {
	operation := chi.URLParam(r, "operation")
	readiness := s.prerequisites.CheckOperationReadiness(r.Context(), operation)
	writeJSON(w, http.StatusOK, readiness)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err *apperrors.AppError) {
	writeJSON(w, err.StatusCode, map[string]string{
		"error":      apperrors.SafeErrorMessage(err),
		"request_id": uuid.NewString(),
	})
}

func waitForShutdown(srv *http.Server, log logr.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "graceful shutdown failed")
	}
}
