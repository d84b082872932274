package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/bakery-quote/internal/auth"
	"github.com/noah-isme/bakery-quote/internal/bom"
	"github.com/noah-isme/bakery-quote/internal/chat"
	"github.com/noah-isme/bakery-quote/internal/config"
	"github.com/noah-isme/bakery-quote/internal/fx"
	"github.com/noah-isme/bakery-quote/internal/health"
	"github.com/noah-isme/bakery-quote/internal/materials"
	"github.com/noah-isme/bakery-quote/internal/notify"
	"github.com/noah-isme/bakery-quote/internal/obs"
	"github.com/noah-isme/bakery-quote/internal/queue"
	"github.com/noah-isme/bakery-quote/internal/quote"
	"github.com/noah-isme/bakery-quote/internal/ratelimit"
	"github.com/noah-isme/bakery-quote/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "bakery")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", false)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "bakery-quote-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if envBool("DB_AUTO_MIGRATE", true) {
		if err := materials.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "bakery-quote-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if tracingEnabled {
		if err := redisotel.InstrumentTracing(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	store := materials.NewStore(pool)
	materialsHandler := &materials.Handler{Store: store}

	bomClient := &bom.Client{
		BaseURL:         cfg.BOMAPIURL,
		HTTP:            &http.Client{},
		EstimateTimeout: cfg.BOMEstimateTimeout,
		JobTypesTimeout: cfg.BOMJobTypesTimeout,
	}

	staticRates, err := fx.ParseStaticRates(cfg.FXStaticJSON)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse FX_RATES_JSON")
	}
	fxProvider := &fx.Provider{
		Live:      cfg.FXLive,
		Base:      cfg.FXBase,
		APIURL:    cfg.FXAPIURL,
		CachePath: cfg.FXCachePath,
		MaxAge:    cfg.FXCacheMaxAge,
		Static:    staticRates,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		Logger:    logger,
	}

	var mailer *notify.SMTPEmail
	smtp := notify.SMTPConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		User:       cfg.SMTPUser,
		Password:   cfg.SMTPPass,
		Sender:     cfg.SMTPFrom,
		SenderName: cfg.CompanyName,
		UseSSL:     cfg.SMTPSSL,
		UseTLS:     cfg.SMTPTLS,
	}
	if smtp.Configured() {
		mailer = notify.NewSMTPEmail(smtp)
	}

	var sheet *notify.SheetLog
	if cfg.SheetPath != "" {
		sheet = &notify.SheetLog{Path: cfg.SheetPath, Tab: cfg.SheetTab}
	}
	dispatcher := notify.Dispatcher{
		Sheet:      sheet,
		SenderName: cfg.CompanyName,
		Logger:     logger,
	}
	if mailer != nil {
		dispatcher.Email = mailer
	}

	enqueuer := queue.Enqueuer{R: redisClient, Prefix: cfg.QueueRedisPrefix}

	quoteSvc := quote.NewService(quote.Config{
		BOM:                 bomClient,
		Materials:           store,
		FX:                  fxProvider,
		Enqueue:             enqueuer,
		Dispatcher:          dispatcher,
		Logger:              logger,
		CompanyName:         cfg.CompanyName,
		BaseCurrency:        cfg.Currency,
		LaborRate:           cfg.LaborRate,
		MarkupPct:           cfg.MarkupPct,
		VATPct:              cfg.VATPct,
		ValidDays:           cfg.QuoteValidDays,
		TemplatePath:        cfg.TemplatePath,
		OutputDir:           cfg.OutputDir,
		DeliveryMaxAttempts: cfg.DeliveryMaxAttempts,
	})
	quoteHandler := quote.NewHandler(quoteSvc)

	authSvc, err := auth.NewService(auth.Config{
		PasswordHash: cfg.AdminPasswordHash,
		Secret:       cfg.AdminSecret,
		SessionTTL:   cfg.AdminSessionTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise admin auth")
	}
	authHandler := &auth.Handler{Svc: authSvc, SecureCookie: cfg.AppEnv == "production"}
	authMiddleware := auth.Middleware{Service: authSvc}

	chatClient := &chat.Client{
		BaseURL: cfg.ChatAPIURL,
		APIKey:  cfg.ChatAPIKey,
		Model:   cfg.ChatModel,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{},
			Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second),
			BaseBackoff: 500 * time.Millisecond,
			MaxAttempts: 3,
			Jitter:      0.2,
			Timeout:     cfg.ChatTimeout,
		},
	}
	chatSvc := chat.NewService(chat.Config{
		LLM:          chatClient,
		Quotes:       quoteSvc,
		Materials:    store,
		FX:           fxProvider,
		BaseCurrency: cfg.Currency,
		MarkupPct:    cfg.MarkupPct,
		VATPct:       cfg.VATPct,
		Logger:       logger,
	})
	chatHandler := chat.NewHandler(chatSvc)

	chatLimiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: cfg.QueueRedisPrefix + ":rl:chat"},
		Config: ratelimit.Config{
			Key:    ratelimit.ClientIP,
			Window: cfg.ChatRateLimitWindow,
			Max:    cfg.ChatRateLimitMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("chat rate limiter unavailable")
		},
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker: health.Probe{Pool: pool, Redis: redisClient, BOMURL: cfg.BOMAPIURL},
	}
	r.Get("/healthz", healthHandler.Live)
	r.Get("/healthz/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/job-types", quoteHandler.JobTypes)
		v.Post("/quotes", quoteHandler.Create)
		v.Post("/quotes/preview", quoteHandler.Preview)
		v.Get("/quotes/files/{filename}", quoteHandler.Download)

		v.With(chatLimiter.Middleware).Post("/chat", chatHandler.Respond)

		v.Route("/admin", func(a chi.Router) {
			a.Post("/login", authHandler.Login)
			a.Post("/logout", authHandler.Logout)
			a.Get("/session", authHandler.Session)

			a.Group(func(admin chi.Router) {
				admin.Use(authMiddleware.RequireAdmin)
				admin.Get("/materials", materialsHandler.List)
				admin.Get("/materials/{name}", materialsHandler.Get)
				admin.Patch("/materials/{name}", materialsHandler.UpdateCost)
			})
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}
