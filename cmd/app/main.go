package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pinterest-ai-studio/internal/config"
	"pinterest-ai-studio/internal/infra/adapters/ai"
	pg "pinterest-ai-studio/internal/infra/db/postgres"
	"pinterest-ai-studio/internal/infra/imaging"
	"pinterest-ai-studio/internal/infra/logging"
	"pinterest-ai-studio/internal/infra/metrics"
	"pinterest-ai-studio/internal/infra/queue"
	red "pinterest-ai-studio/internal/infra/redis"
	"pinterest-ai-studio/internal/infra/sched"
	"pinterest-ai-studio/internal/infra/security"
	"pinterest-ai-studio/internal/infra/storage"
	"pinterest-ai-studio/internal/infra/web"
	"pinterest-ai-studio/internal/infra/worker"
	"pinterest-ai-studio/internal/usecase"
)

// Overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

const artifactURLPrefix = "/api/v1/files"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: noop AI clients, console logs")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Encryption ----
	encSvc, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	roleRepo := pg.NewRoleRepo(pool)
	keyRepo := pg.NewAPIKeyRepo(pool)
	promptRepo := pg.NewPromptTemplateRepo(pool)
	pinTmplRepo := pg.NewPinTemplateRepo(pool)
	jobRepo := pg.NewBulkJobRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Imaging + storage ----
	store, err := storage.NewArtifactStore(cfg.Storage.Root)
	if err != nil {
		logger.Fatal().Err(err).Msg("artifact store")
	}
	compositor, err := imaging.NewCompositor(cfg.Storage.FontPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("compositor")
	}
	embedder := imaging.NewEmbedder(logger)

	// ---- Task queue ----
	queueClient, err := queue.NewClient(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("queue client")
	}
	defer queueClient.Close()

	// ---- Use cases ----
	keyUC := usecase.NewAPIKeyUseCase(keyRepo, encSvc, logger)
	userUC := usecase.NewUserUseCase(userRepo, roleRepo, logger)
	promptUC := usecase.NewPromptUseCase(promptRepo, logger)
	tmplUC := usecase.NewTemplateUseCase(pinTmplRepo, logger)
	jobUC := usecase.NewJobUseCase(jobRepo, pinTmplRepo, keyUC, txManager, queueClient, store, logger)
	exportUC := usecase.NewExportUseCase(jobRepo, store, artifactURLPrefix, logger)
	policy := usecase.NewPolicyUseCase(userRepo, roleRepo, logger)

	// ---- Pipeline worker ----
	factory := ai.NewFactory(cfg.AI.ConcurrentLimit, cfg.AI.CallTimeout, cfg.Runtime.Dev)
	rowProc := worker.NewRowProcessor(jobRepo, compositor, embedder, store, logger)
	orch := worker.NewOrchestrator(jobRepo, pinTmplRepo, promptRepo, keyUC, factory, rowProc, locker, cfg.Worker.JobLockTTL, logger)
	queueServer := queue.NewServer(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB, cfg.Queue.Concurrency, orch, logger)
	queueServer.Start()
	defer queueServer.Shutdown()

	// ---- Stale job reaper ----
	reaper := sched.NewReaper(jobRepo, cfg.Worker.StaleJobAge, cfg.Worker.ReapInterval, logger)
	go reaper.Run(ctx)

	// ---- API server ----
	authMgr := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.SecureCookie, cfg.Auth.TokenTTL, cfg.Auth.RefreshTTL)
	srv := web.NewServer(userUC, keyUC, promptUC, tmplUC, jobUC, exportUC, policy, authMgr, store, cfg.Server.Timeout, logger)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", apiServer.Addr).Msg("api listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("api server stopped")
		}
	}()

	// ---- Metrics server ----
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}
	go func() {
		logger.Info().Str("addr", metricsServer.Addr).Msg("metrics listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("api shutdown")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("metrics shutdown")
	}
	cancel()
}
