// Command server starts the AI Interview Coach HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/real"
	httpserver "github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/textextractor/tika"
	qdrantcli "github.com/fairyhunter13/ai-interview-coach/internal/adapter/vector/qdrant"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/websearch/firecrawl"
	"github.com/fairyhunter13/ai-interview-coach/internal/app"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

func main() {
	// Local development convenience; a missing .env file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, AI, and workflow instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Infra: DB pool and note store
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	noteRepo := postgres.NewNoteRepo(pool)
	if err := noteRepo.EnsureSchema(ctx); err != nil {
		slog.Error("db schema setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	// AI client with transport-level retries
	aicl := real.New(cfg)

	// Qdrant knowledge store (shared by retrieval and note embedding)
	qcli := qdrantcli.New(cfg.QdrantURL, cfg.QdrantAPIKey)
	knowledge := qdrantcli.NewKnowledgeStore(qcli, aicl, cfg.QdrantCollection)
	app.EnsureKnowledgeCollection(ctx, knowledge)

	// Web search fallback for quiz generation; nil when not configured so the
	// quiz service skips the fallback instead of erroring per lookup.
	var web domain.WebSearcher
	if fc := firecrawl.New(cfg.FirecrawlBaseURL, cfg.FirecrawlAPIKey); fc.Enabled() {
		web = fc
	} else {
		slog.Info("firecrawl not configured, quiz web fallback disabled")
	}

	policy, err := config.LoadDecisionPolicy(cfg.DecisionPolicyPath)
	if err != nil {
		slog.Error("decision policy load failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Resume document extraction (Apache Tika)
	extractor := tika.New(cfg.TikaURL)

	// Workflow services
	prepareSvc := usecase.NewPrepareService(aicl, knowledge, policy, cfg.ChatModel, cfg.MaxPromptTokens)
	turnSvc := usecase.NewTurnService(aicl, knowledge, policy)
	reportSvc := usecase.NewReportService(aicl)
	quizSvc := usecase.NewQuizService(aicl, knowledge, web, policy)
	knowledgeSvc := usecase.NewKnowledgeService(aicl, knowledge, noteRepo, cfg.EmbedChunkSize, cfg.EmbeddingsModel)
	resumeSvc := usecase.NewResumeService(aicl, extractor, cfg.ChatModel, cfg.MaxPromptTokens)

	dbCheck, qdrantCheck, tikaCheck := app.BuildReadinessChecks(cfg, pool)

	srv := httpserver.NewServer(cfg, prepareSvc, turnSvc, reportSvc, quizSvc, knowledgeSvc, resumeSvc, dbCheck, qdrantCheck, tikaCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
