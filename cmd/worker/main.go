package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/titledoctor/pipeline-service/internal/api"
	"github.com/titledoctor/pipeline-service/internal/domain/entity"
	"github.com/titledoctor/pipeline-service/internal/domain/port"
	"github.com/titledoctor/pipeline-service/internal/infra/config"
	"github.com/titledoctor/pipeline-service/internal/infra/gemini"
	"github.com/titledoctor/pipeline-service/internal/infra/metrics"
	"github.com/titledoctor/pipeline-service/internal/infra/postgres"
	"github.com/titledoctor/pipeline-service/internal/infra/rabbitmq"
	"github.com/titledoctor/pipeline-service/internal/infra/redisstore"
	"github.com/titledoctor/pipeline-service/internal/infra/resend"
	"github.com/titledoctor/pipeline-service/internal/infra/tracing"
	"github.com/titledoctor/pipeline-service/internal/infra/youtube"
	"github.com/titledoctor/pipeline-service/internal/usecase"
	"github.com/titledoctor/pipeline-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	fatalOnErr(err, "load config")
	fatalOnErr(cfg.Validate(), "validate config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting titledoctor-pipeline-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Job store
	var repo port.JobRepository
	var storePing func(context.Context) error
	switch cfg.StoreBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		fatalOnErr(rdb.Ping(ctx).Err(), "connect to redis")
		defer rdb.Close()
		repo = redisstore.NewJobStore(rdb)
		storePing = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	default:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		fatalOnErr(err, "connect to postgres")
		defer pool.Close()
		fatalOnErr(postgres.RunMigrations(ctx, pool), "run migrations")
		repo = postgres.NewJobRepository(pool)
		storePing = pool.Ping
	}

	// RabbitMQ
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create publisher")

	// External integrations
	directory := youtube.NewClient(youtube.ClientConfig{
		APIKey:     cfg.YouTubeAPIKey,
		RatePerSec: cfg.YouTubeAPIRate,
		Timeout:    cfg.ExternalCallTimeout,
	})
	generator := gemini.NewClient(gemini.ClientConfig{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.GeminiModel,
		Temperature: cfg.GeminiTemperature,
		Timeout:     cfg.ExternalCallTimeout,
	})
	mailer := resend.NewClient(resend.ClientConfig{
		APIKey:  cfg.ResendAPIKey,
		From:    cfg.ResendFromEmail,
		Timeout: cfg.ExternalCallTimeout,
	})

	// Stages
	submitUC := usecase.NewSubmitUseCase(repo, pub, log)
	resolveUC := usecase.NewResolveChannelUseCase(repo, pub, directory, log, cfg.ExternalCallTimeout)
	fetchUC := usecase.NewFetchVideosUseCase(repo, pub, directory, log, cfg.MaxVideos, cfg.ExternalCallTimeout)
	generateUC := usecase.NewGenerateTitlesUseCase(repo, pub, generator, log, cfg.ExternalCallTimeout)
	reportUC := usecase.NewSendReportUseCase(repo, pub, mailer, log, cfg.ExternalCallTimeout)
	failureUC := usecase.NewNotifyFailureUseCase(pub, mailer, log, cfg.ExternalCallTimeout)

	stages := []struct {
		queue    string
		bindings []string
		handler  rabbitmq.MessageHandler
	}{
		{"titledoctor.resolve", []string{entity.TopicChannelSubmit}, resolveUC.Execute},
		{"titledoctor.fetch", []string{entity.TopicChannelResolved}, fetchUC.Execute},
		{"titledoctor.generate", []string{entity.TopicVideosFetched}, generateUC.Execute},
		{"titledoctor.notify", []string{entity.TopicTitlesReady}, reportUC.Execute},
		{"titledoctor.failures", []string{
			entity.TopicChannelError,
			entity.TopicVideosError,
			entity.TopicTitlesError,
			entity.TopicEmailError,
			entity.TopicInternalError,
		}, failureUC.Execute},
	}

	consumers := make([]*rabbitmq.Consumer, 0, len(stages))
	for _, st := range stages {
		c, err := rabbitmq.NewConsumer(rmqConn, rabbitmq.ConsumerConfig{
			Queue:       st.queue,
			Bindings:    st.bindings,
			Exchange:    cfg.RabbitMQExchange,
			Prefetch:    cfg.RabbitMQPrefetch,
			WorkerCount: cfg.WorkerCount,
			BaseDelayMs: cfg.RetryBaseDelayMs,
		}, st.handler, log)
		fatalOnErr(err, "create consumer "+st.queue)
		consumers = append(consumers, c)
	}

	// Intake HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: api.NewServer(submitUC, repo, log).Handler(),
	}

	// Metrics server with readiness over the broker and job store
	ready := func(ctx context.Context) error {
		if rmqConn.IsClosed() {
			return fmt.Errorf("rabbitmq connection closed")
		}
		return storePing(ctx)
	}
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, ready, log)

	// Stale-job sweeper
	sweeper := usecase.NewSweeper(repo, pub, log, cfg.JobStaleAfter)
	sweepCron := sweeper.Start(ctx, cfg.SweepInterval)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range consumers {
		g.Go(func() error { return c.Start(gctx) })
	}
	g.Go(func() error {
		log.Info("intake server starting", zap.Int("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info("titledoctor-pipeline-service started")

	if err := g.Wait(); err != nil {
		log.Error("pipeline error", zap.Error(err))
	}

	// Shutdown
	sweepCron.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	for _, c := range consumers {
		c.Close()
	}
	log.Info("titledoctor-pipeline-service stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
