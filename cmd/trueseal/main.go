// trueseal es el servidor de validación de autenticidad de productos.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/trueseal/internal/cache"
	"github.com/dropDatabas3/trueseal/internal/config"
	"github.com/dropDatabas3/trueseal/internal/engine"
	"github.com/dropDatabas3/trueseal/internal/fraud"
	"github.com/dropDatabas3/trueseal/internal/http/controllers"
	mw "github.com/dropDatabas3/trueseal/internal/http/middlewares"
	"github.com/dropDatabas3/trueseal/internal/http/router"
	healthsvc "github.com/dropDatabas3/trueseal/internal/http/services/health"
	sealsvc "github.com/dropDatabas3/trueseal/internal/http/services/seal"
	"github.com/dropDatabas3/trueseal/internal/issuer"
	"github.com/dropDatabas3/trueseal/internal/metrics"
	"github.com/dropDatabas3/trueseal/internal/notify"
	"github.com/dropDatabas3/trueseal/internal/observability/logger"
	"github.com/dropDatabas3/trueseal/internal/rate"
	"github.com/dropDatabas3/trueseal/internal/reward"
	"github.com/dropDatabas3/trueseal/internal/store/core"
	"github.com/dropDatabas3/trueseal/internal/store/memory"
	"github.com/dropDatabas3/trueseal/internal/store/pg"
	"github.com/dropDatabas3/trueseal/internal/trust"
	"github.com/dropDatabas3/trueseal/internal/verifier"
)

func main() {
	// .env primero: el config loader lee overrides de entorno.
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", envOr("CONFIG_PATH", "config.yaml"), "ruta al config YAML")
	flag.Parse()

	if _, err := os.Stat(cfgPath); err != nil {
		// Sin archivo se corre con defaults + env (modo dev).
		cfgPath = ""
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic("config: " + err.Error())
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       envOr("LOG_LEVEL", "info"),
		ServiceName: "trueseal",
		Version:     os.Getenv("SERVICE_VERSION"),
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	if err := metrics.Register(nil); err != nil {
		log.Fatal("metrics registration failed", logger.Err(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Store ───
	var repo core.Repository
	switch cfg.Storage.Driver {
	case "postgres":
		st, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
			MaxConns:        cfg.Storage.Postgres.MaxOpenConns,
			MinConns:        cfg.Storage.Postgres.MinConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			log.Fatal("postgres init failed", logger.Err(err))
		}
		if err := st.Migrate(ctx); err != nil {
			log.Fatal("migrations failed", logger.Err(err))
		}
		repo = st
	default:
		log.Warn("using in-memory store: data will not survive restarts")
		repo = memory.New()
	}
	defer repo.Close()

	// ─── Cache ───
	cacheClient, err := cache.New(cache.Config{
		Kind:       cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		Password:   cfg.Cache.Redis.Password,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: config.Dur(cfg.Cache.Memory.DefaultTTL),
	})
	if err != nil {
		log.Fatal("cache init failed", logger.Err(err))
	}
	defer func() { _ = cacheClient.Close() }()

	// ─── Rate limit + velocity ───
	// Con redis ambos contadores son compartidos entre instancias; en memoria
	// solo valen para una instancia (suficiente en dev).
	var (
		limiter  rate.Limiter
		velocity rate.Counter
	)
	if raw, ok := cacheClient.(interface{ Raw() *rdb.Client }); ok {
		limiter = rate.NewRedisLimiter(raw.Raw(), "rl:", cfg.Rate.MaxRequests, config.Dur(cfg.Rate.Window))
		velocity = rate.NewRedisLimiter(raw.Raw(), "vel:", 0, config.Dur(cfg.Fraud.VelocityWindow))
	} else {
		limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, config.Dur(cfg.Rate.Window))
		velocity = rate.NewMemoryLimiter(0, config.Dur(cfg.Fraud.VelocityWindow))
	}

	// ─── Fraud ───
	scorer, err := fraud.NewWeightedScorer(fraud.Weights{
		Age:      cfg.Fraud.Weights.Age,
		Geo:      cfg.Fraud.Weights.Geo,
		Velocity: cfg.Fraud.Weights.Velocity,
		Trust:    cfg.Fraud.Weights.Trust,
		Offense:  cfg.Fraud.Weights.Offense,
	})
	if err != nil {
		log.Fatal("scorer init failed", logger.Err(err))
	}

	// ─── Trust lookup ───
	var trustLookup trust.Lookup = trust.NewStaticLookup(cfg.Channels)
	if cfg.Cache.Kind == "redis" {
		trustLookup = trust.NewCachedLookup(trustLookup, cacheClient, config.Dur(cfg.Cache.Memory.DefaultTTL))
	}

	// ─── Verifier externo ───
	var verifierClient verifier.Client
	if cfg.Verifier.Enabled {
		verifierClient = verifier.NewHTTPClient(cfg.Verifier.BaseURL, cfg.Verifier.APIKey, config.Dur(cfg.Verifier.Timeout))
	}

	// ─── Rewards ───
	dispatcher := reward.NewDispatcher(repo, reward.Amounts{
		Authentic:   cfg.Rewards.AuthenticPoints,
		Suspicious:  cfg.Rewards.SuspiciousPoints,
		Counterfeit: cfg.Rewards.CounterfeitPoints,
	})
	retryWorker := reward.NewRetryWorker(dispatcher, repo,
		config.Dur(cfg.Rewards.Retry.Interval), cfg.Rewards.Retry.MaxAttempts)
	go retryWorker.Run(ctx)

	// ─── Notifier SMTP (opcional) ───
	var notifier engine.Notifier
	if en := notify.NewEmailNotifier(notify.Config{
		Host: cfg.SMTP.Host,
		Port: cfg.SMTP.Port,
		User: cfg.SMTP.User,
		Pass: cfg.SMTP.Pass,
		From: cfg.SMTP.From,
		To:   cfg.SMTP.AlertsTo,
	}); en != nil {
		notifier = en
	}

	// ─── Engine ───
	eng := engine.New(repo, scorer, verifierClient, trustLookup, velocity, dispatcher, notifier, engine.Options{
		Policy: fraud.Policy{Low: cfg.Fraud.Thresholds.Low, High: cfg.Fraud.Thresholds.High},
		Normalizer: fraud.Normalizer{
			MaxTokenAge: config.Dur(cfg.Fraud.MaxTokenAge),
			GeoScaleKM:  cfg.Fraud.GeoScaleKM,
			VelocityCap: cfg.Fraud.VelocityCap,
			OffenseCap:  cfg.Fraud.OffenseCap,
		},
		OffenseWindow:    config.Dur(cfg.Fraud.OffenseWindow),
		VerifierEnabled:  cfg.Verifier.Enabled,
		VerifierFailOpen: !cfg.Verifier.FailClosed,
	})

	// ─── HTTP ───
	sealServices := sealsvc.New(sealsvc.Deps{
		Engine: eng,
		Issuer: issuer.New(repo),
		Repo:   repo,
	})
	healthDeps := healthsvc.Deps{
		StoreCheck: repo.Ping,
	}
	if cfg.Cache.Kind == "redis" {
		healthDeps.CacheCheck = cacheClient.Ping
	}
	ctrls := controllers.New(sealServices, healthsvc.NewHealthService(healthDeps))

	handler := router.New(router.Deps{
		Controllers:  ctrls,
		JWT:          mw.JWTConfig{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer},
		AdminKeyHash: cfg.Auth.AdminKeyHash,
		RateLimiter:  limiter,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  config.Dur(cfg.Server.ReadTimeout),
		WriteTimeout: config.Dur(cfg.Server.WriteTimeout),
	}

	go func() {
		log.Info("server listening",
			logger.String("addr", cfg.Server.Addr),
			logger.String("storage", cfg.Storage.Driver),
			logger.Bool("verifier_enabled", cfg.Verifier.Enabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", logger.Err(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", logger.Err(err))
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
