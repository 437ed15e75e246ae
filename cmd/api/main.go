package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ledgerline/ingest/internal/api/handlers"
	"github.com/ledgerline/ingest/internal/api/middleware"
	"github.com/ledgerline/ingest/internal/classify"
	"github.com/ledgerline/ingest/internal/config"
	"github.com/ledgerline/ingest/internal/ingest"
	"github.com/ledgerline/ingest/internal/jobs"
	"github.com/ledgerline/ingest/internal/jobs/inmemory"
	"github.com/ledgerline/ingest/internal/llm"
	"github.com/ledgerline/ingest/internal/logger"
	"github.com/ledgerline/ingest/internal/pdfdoc"
	"github.com/ledgerline/ingest/internal/store"
)

func main() {
	cfg := config.Load()
	log := logger.New()

	ctx := context.Background()

	if cfg.LedgerAPIURL == "" {
		log.Fatal().Msg("LEDGER_API_URL is required")
	}
	records := store.NewClient(cfg.LedgerAPIURL, cfg.LedgerAPIToken)

	// Without a Gemini credential the service still runs: CSV statements are
	// classified by the offline rules, document uploads fail fast.
	var textModel classify.TextModel
	var visionModel ingest.VisionModel
	if cfg.HasGeminiCredential() {
		client, err := llm.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		textModel = client
		visionModel = client
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set - running with offline classification only")
	}

	classifier := classify.NewClassifier(textModel, log)
	renderer := pdfdoc.NewPopplerRenderer()
	svc := ingest.NewService(records, classifier, visionModel, renderer, cfg.DefaultCurrency, log)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job *jobs.IngestJob) (*ingest.Result, error) {
		log.Info().
			Str("job_id", job.JobID).
			Str("filename", job.Filename).
			Msg("Processing statement")

		result, err := svc.Ingest(ctx, job.Data, job.Filename, job.MediaType)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", job.JobID).
				Str("filename", job.Filename).
				Msg("Statement ingestion failed")
			return nil, err
		}

		log.Info().
			Str("job_id", job.JobID).
			Str("filename", job.Filename).
			Int("created", len(result.Created)).
			Int("duplicates", result.DuplicateCount).
			Msg("Statement ingestion completed")

		return result, nil
	}

	log.Info().Msg("Starting job worker")
	if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	// Initialize handlers
	statementsHandler := handlers.NewStatementsHandler(jobQueue, log)
	transactionsHandler := handlers.NewTransactionsHandler(records, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/statements", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			statementsHandler.Upload(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.ListTransactions(w, r)
		case http.MethodDelete:
			transactionsHandler.DeleteAllTransactions(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch r.Method {
		case http.MethodPatch:
			transactionsHandler.UpdateTransaction(w, r, id)
		case http.MethodDelete:
			transactionsHandler.DeleteTransaction(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.RequestID,
		middleware.CORS,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for the in-flight upload
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
