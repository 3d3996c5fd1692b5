package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Gelzieny/tube-link-scribe/internal/api"
	"github.com/Gelzieny/tube-link-scribe/internal/archive"
	"github.com/Gelzieny/tube-link-scribe/internal/auth"
	"github.com/Gelzieny/tube-link-scribe/internal/config"
	"github.com/Gelzieny/tube-link-scribe/internal/eventbus"
	"github.com/Gelzieny/tube-link-scribe/internal/i18n"
	"github.com/Gelzieny/tube-link-scribe/internal/metrics"
	"github.com/Gelzieny/tube-link-scribe/internal/mqttclient"
	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
	"github.com/Gelzieny/tube-link-scribe/internal/transcribe"
	"github.com/Gelzieny/tube-link-scribe/internal/youtube"
)

func runServe(parent context.Context, overrides config.Overrides) error {
	startTime := time.Now()

	// Config and logger
	cfg, log, err := setup(overrides)
	if err != nil {
		return err
	}
	log.Info().Str("version", version).Str("worker_mode", cfg.WorkerMode).Msg("tube-link-scribe starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	msgs := i18n.New(cfg.DefaultLocale)
	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTAudience)

	// Change notifications: SSE bus always, MQTT when a broker is configured
	bus := eventbus.New(1024)
	notifiers := scribe.Notifiers{bus}
	var mqttStatus api.ConnStatus
	if cfg.MQTTBrokerURL != "" {
		mqtt, err := mqttclient.Connect(mqttclient.Options{
			BrokerURL:   cfg.MQTTBrokerURL,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			Log:         log.With().Str("component", "mqtt").Logger(),
		})
		if err != nil {
			return fmt.Errorf("failed to connect to mqtt broker: %w", err)
		}
		defer mqtt.Close()
		notifiers = append(notifiers, mqtt)
		mqttStatus = mqtt
	} else {
		log.Info().Msg("MQTT_BROKER_URL not set, broker notifications disabled")
	}

	// Transcript archive
	archiveLog := log.With().Str("component", "archive").Logger()
	store, err := archive.New(cfg.S3, cfg.ArchiveDir, archiveLog)
	if err != nil {
		return fmt.Errorf("failed to initialize archive: %w", err)
	}
	var arch scribe.Archive
	archiveType := ""
	if store != nil {
		archiveType = store.Type()
		if cfg.ArchiveQueueSize > 0 {
			async := archive.NewAsync(store, cfg.ArchiveQueueSize, archiveLog)
			async.Start()
			defer async.Stop()
			arch = async
		} else {
			arch = store
		}
		archiveLog.Info().Str("type", archiveType).Msg("transcript archive enabled")
	}

	svc := scribe.NewService(scribe.Options{
		Repo:      db,
		Notifier:  notifiers,
		Archive:   arch,
		Messages:  msgs,
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		Log:       log.With().Str("component", "scribe").Logger(),
	})

	// Worker: always built so this instance can serve the function endpoint
	workerLog := log.With().Str("component", "worker").Logger()
	gateway := transcribe.NewGatewayClient(cfg.AIGatewayURL, cfg.AIAPIKey, cfg.AIModels, cfg.AITimeout)
	if cfg.AIAPIKey == "" {
		workerLog.Warn().Msg("AI_API_KEY not set, transcriptions will fail")
	}
	worker := transcribe.NewWorker(transcribe.WorkerOptions{
		Transcriber: gateway,
		Metadata:    youtube.NewOEmbedClient(cfg.OEmbedURL, 10*time.Second),
		Results:     svc,
		Messages:    msgs,
		Timeout:     cfg.WorkerTimeout,
		Log:         workerLog,
	})

	status := &workerStatus{queueSize: cfg.WorkerQueueSize}
	switch cfg.WorkerMode {
	case "remote":
		svc.SetDispatcher(transcribe.NewRemoteDispatcher(cfg.WorkerURL, cfg.WorkerTimeout))
		workerLog.Info().Str("url", cfg.WorkerURL).Msg("dispatching to remote worker")
	default:
		pool := transcribe.NewPool(transcribe.PoolOptions{
			Processor: worker,
			Workers:   cfg.Workers,
			QueueSize: cfg.WorkerQueueSize,
			Log:       workerLog,
		})
		pool.Start()
		defer pool.Stop()
		svc.SetDispatcher(pool)
		status.pool = pool
	}
	workerLog.Info().Strs("models", gateway.Models()).Msg("transcription worker ready")

	// Scrape-time gauges
	prometheus.MustRegister(metrics.NewCollector(db.Pool, liveStats{pool: status.pool, bus: bus}))

	// HTTP Server
	srv := api.NewServer(api.Options{
		Config:    cfg,
		Service:   svc,
		Verifier:  verifier,
		Messages:  msgs,
		DB:        db,
		MQTT:      mqttStatus,
		Worker:    status,
		Processor: worker,
		Events:    bus,
		Archive:   archiveType,
		Version:   version,
		StartTime: startTime,
		Log:       log.With().Str("component", "http").Logger(),
	})

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	var srvErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case srvErr = <-errCh:
		if srvErr != nil {
			log.Error().Err(srvErr).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("tube-link-scribe stopped")
	return srvErr
}

// workerStatus reports the dispatch path for the health check.
type workerStatus struct {
	pool      *transcribe.Pool
	queueSize int
}

func (w *workerStatus) Status() string {
	if w.pool == nil {
		return "remote"
	}
	if w.pool.Stats().Pending >= w.queueSize {
		return "queue_full"
	}
	return "ok"
}

// liveStats feeds the metrics collector.
type liveStats struct {
	pool *transcribe.Pool
	bus  *eventbus.EventBus
}

func (s liveStats) QueueDepth() int {
	if s.pool == nil {
		return 0
	}
	return s.pool.QueueDepth()
}

func (s liveStats) SubscriberCount() int { return s.bus.SubscriberCount() }
