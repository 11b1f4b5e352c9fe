package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tintbot/tintbot/internal/client"
	"github.com/tintbot/tintbot/internal/config"
	"github.com/tintbot/tintbot/internal/dispatch"
	"github.com/tintbot/tintbot/internal/integration"
	"github.com/tintbot/tintbot/internal/intent"
	"github.com/tintbot/tintbot/internal/lead"
	"github.com/tintbot/tintbot/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	db, err := sqlx.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open", zap.Error(err))
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := lead.EnsureSchema(pingCtx, db); err != nil {
		logger.Fatal("lead schema", zap.Error(err))
	}
	if err := client.EnsureSchema(pingCtx, db); err != nil {
		logger.Fatal("client schema", zap.Error(err))
	}

	// --- Tenant registry, cached when redis is configured ---
	var clientRepo client.Repo = client.NewRepo(db)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis url", zap.Error(err))
		}
		clientRepo = client.NewCachedRepo(clientRepo, redis.NewClient(opts), logger)
	}

	// --- Intent extraction: rules, or model with rule fallback ---
	var extractor lead.Extractor = intent.NewRules()
	backend := "rules"
	if cfg.OpenAIAPIKey != "" {
		extractor = intent.NewModelExtractor(
			intent.NewOpenAIBackend(cfg.OpenAIAPIKey, cfg.OpenAIModel), logger)
		backend = "openai"
	}

	// --- Lead module wiring ---
	leadRepo := lead.NewRepo(db)
	leadService := lead.NewService(leadRepo, extractor, backend, logger)
	leadHandler := lead.NewHandler(leadService, leadRepo, logger)

	// --- Integration adapters ---
	adapters := []integration.Adapter{
		integration.NewCRMAdapter(),
		integration.NewSchedulingAdapter(),
		integration.NewWebhookAdapter(),
	}
	if cfg.TelegramBotToken != "" {
		tg, err := integration.NewTelegramAdapter(cfg.TelegramBotToken)
		if err != nil {
			logger.Fatal("telegram adapter", zap.Error(err))
		}
		adapters = append(adapters, tg)
	} else {
		logger.Info("telegram token absent, notification channel disabled")
	}

	// --- Dispatcher ---
	dispatcher := dispatch.New(leadRepo, clientRepo, integration.NewRegistry(adapters...), logger, dispatch.Options{
		Interval:       cfg.DispatchInterval,
		ScoreThreshold: cfg.ScoreThreshold,
		MaxAge:         cfg.DispatchMaxAge,
		BatchSize:      cfg.DispatchBatchSize,
	})
	go dispatcher.Run(ctx)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Webhook-Secret"},
	}))

	lead.RegisterRoutes(r, leadHandler)
	client.RegisterRoutes(r, client.NewHandler(clientRepo, logger))
	dispatch.RegisterRoutes(r, dispatch.NewHandler(dispatcher, logger))
	webhook.RegisterRoutes(r, webhook.NewHandler(leadService, logger))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", zap.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server", zap.Error(err))
	}
}
