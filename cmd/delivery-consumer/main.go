// cmd/delivery-consumer/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"comms-delivery/internal/broker"
	"comms-delivery/internal/common/config"
	"comms-delivery/internal/common/database"
	"comms-delivery/internal/common/logger"
	"comms-delivery/internal/consumer"
	"comms-delivery/internal/directory"
	"comms-delivery/internal/repository"
	"comms-delivery/internal/workers/communication/deliver"
	"comms-delivery/internal/workers/communication/deliver/dispatch"
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

	zapLog.Info("Starting delivery consumer...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

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

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
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

	// --- Init RabbitMQ with retry ---
	conn := broker.NewConnection(cfg.RabbitMQ, log)
	err = retryWithBackoff(func() error {
		return conn.Connect(ctx)
	}, cfg.RabbitMQ.ConnectRetry, 2*time.Second, zapLog, "RabbitMQ connection")
	if err != nil {
		zapLog.Fatal("rabbitmq failed after retries", zap.Error(err))
	}
	defer conn.Close()
	zapLog.Info("RabbitMQ connected successfully")

	// --- Repositories and directory resolver ---
	messages := repository.NewMessageRepository(pg.DB)
	requests := repository.NewDeliveryRequestRepository(pg.DB)
	attempts := repository.NewDeliveryAttemptRepository(pg.DB)
	prefs := repository.NewCachedPreferenceStore(
		repository.NewChannelPreferenceRepository(pg.DB),
		redisClient.Client,
		config.GetDuration(cfg.Database.Redis.PreferenceTTLSecs*1000),
		log,
	)

	dirClient := directory.NewClient(cfg.Directory.BaseURL, config.GetDuration(cfg.Directory.TimeoutMS), log)
	resolver := directory.NewResolver(dirClient, log)

	// --- Channel dispatchers ---
	var dispatchers []dispatch.Dispatcher
	if cfg.Notifications.Email.Enabled {
		email, err := dispatch.NewEmailDispatcher(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.Email.FromEmail, log)
		if err != nil {
			zapLog.Fatal("email dispatcher init failed", zap.Error(err))
		}
		dispatchers = append(dispatchers, email)
	}
	if cfg.Notifications.SMS.Enabled {
		sms, err := dispatch.NewSMSDispatcher(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.SMS.SenderID, log)
		if err != nil {
			zapLog.Fatal("sms dispatcher init failed", zap.Error(err))
		}
		dispatchers = append(dispatchers, sms)
	}
	registry := dispatch.NewRegistry(dispatchers...)
	zapLog.Info("Channel dispatchers initialized", zap.Int("count", len(dispatchers)))

	// --- Metrics and pprof endpoint ---
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/debug/pprof/", http.DefaultServeMux)
		zapLog.Info("Metrics server listening", zap.String("addr", cfg.App.MetricsAddr))
		if err := http.ListenAndServe(cfg.App.MetricsAddr, mux); err != nil {
			zapLog.Error("metrics server stopped", zap.Error(err))
		}
	}()

	// --- Consumer loop ---
	scopes := consumer.NewScopeFactory(
		deliver.LoadConfig(),
		messages, requests, attempts, prefs,
		resolver, registry, log,
	)
	pub := broker.NewPublisher(conn, cfg.RabbitMQ, log)
	cons := consumer.New(conn, pub, cfg.RabbitMQ, scopes, log)

	if err := cons.Run(ctx); err != nil && ctx.Err() == nil {
		zapLog.Fatal("consumer stopped unexpectedly", zap.Error(err))
	}

	zapLog.Info("Shutdown signal received, delivery consumer stopped")
}
