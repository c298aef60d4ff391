// cmd/notifier/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"warehouse-notify/internal/channels"
	"warehouse-notify/internal/common/config"
	"warehouse-notify/internal/common/database"
	"warehouse-notify/internal/common/logger"
	"warehouse-notify/internal/common/observability"
	"warehouse-notify/internal/common/ratelimit"
	"warehouse-notify/internal/models"
	"warehouse-notify/internal/pipeline/content"
	"warehouse-notify/internal/pipeline/dispatch"
	"warehouse-notify/internal/pipeline/processor"
	"warehouse-notify/internal/pipeline/resolver"
	"warehouse-notify/internal/pipeline/scheduler"
	"warehouse-notify/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification pipeline...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry (only needed for the shared rate limiter) ---
	var redisClient *database.RedisClient
	if cfg.RateLimit.Enabled && cfg.RateLimit.Backend == "redis" {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Init Elasticsearch with retry (optional audit sink) ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Channel Providers ---
	providers := make(map[models.Channel]channels.Provider)

	if cfg.Channels.Email.Enabled {
		email, err := channels.NewEmailProvider(ctx, cfg.Channels.Email.AWSRegion, cfg.Channels.Email.FromEmail)
		if err != nil {
			zapLog.Fatal("email provider init failed", zap.Error(err))
		}
		providers[models.ChannelEmail] = email
		zapLog.Info("email channel enabled", zap.String("from", cfg.Channels.Email.FromEmail))
	}

	if cfg.Channels.Push.Enabled {
		push, err := channels.NewPushProvider(ctx, cfg.Channels.Push.ProjectID, cfg.Channels.Push.CredentialsFile)
		if err != nil {
			zapLog.Fatal("push provider init failed", zap.Error(err))
		}
		providers[models.ChannelPush] = push
		zapLog.Info("push channel enabled", zap.String("project", cfg.Channels.Push.ProjectID))
	}

	sms, err := channels.NewSMSProvider(ctx, cfg.Channels.SMS, log)
	if err != nil {
		zapLog.Fatal("sms provider init failed", zap.Error(err))
	}
	if sms != nil {
		providers[models.ChannelSMS] = sms
	}

	// --- Rate Limiter ---
	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.RateLimit.Enabled {
		switch cfg.RateLimit.Backend {
		case "redis":
			limiter = ratelimit.NewRedisLimiter(redisClient.GetClient(), cfg.RateLimit.PerMinute, time.Minute)
		default:
			limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.PerMinute, time.Minute)
		}
		zapLog.Info("dispatch rate limiting enabled",
			zap.String("backend", cfg.RateLimit.Backend),
			zap.Int("perMinute", cfg.RateLimit.PerMinute),
		)
	}

	// --- Pipeline Wiring ---
	events := store.NewEventStore(pg.GetDB())
	contacts := store.NewContactDirectory(pg.GetDB())
	memberships := store.NewMembershipStore(pg.GetDB())

	dispatcher := dispatch.New(providers, contacts, limiter,
		config.GetDuration(cfg.Pipeline.DispatchTimeoutMs), log)
	proc := processor.New(
		events,
		resolver.New(memberships, log),
		content.NewBuilder(cfg.Pipeline.OccupancyThreshold),
		dispatcher,
		log,
	)

	var audit scheduler.AuditSink
	if esClient != nil {
		audit = store.NewAuditIndexer(esClient.Client, cfg.Database.Elasticsearch.AuditIndex)
	}

	sched := scheduler.New(events, proc, audit, obs, scheduler.Config{
		BatchSize:    cfg.Pipeline.BatchSize,
		RetryLimit:   cfg.Pipeline.RetryLimit,
		WorkerPool:   cfg.Pipeline.WorkerPool,
		PollInterval: config.GetDuration(cfg.Pipeline.PollIntervalMs),
	}, log)

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := pg.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.App.MetricsAddress))
		if err := http.ListenAndServe(cfg.App.MetricsAddress, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Run Until Shutdown ---
	sched.Run(ctx)

	zapLog.Info("Notification pipeline stopped gracefully")
}
