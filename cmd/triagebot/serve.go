package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mqcontracts "triagebot/contracts/mq"
	"triagebot/internal/handler"
	"triagebot/internal/httpserver"
	"triagebot/internal/mqhandler"
	"triagebot/pkg/mq"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the MQ consumer and the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret is required to serve the API")
	}

	log.Info("Starting triagebot...",
		zap.String("env", envName),
		zap.String("store", cfg.Store.Driver),
		zap.String("dedup_backend", cfg.Dedup.Backend),
		zap.Bool("mq_enabled", cfg.MQ.Enabled),
		zap.Bool("summarizer_enabled", cfg.Summarizer.Enabled),
		zap.Bool("channel_digest_enabled", cfg.ChannelDigest.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize triagebot", zap.Error(err))
		return err
	}
	defer a.Close()

	var wg sync.WaitGroup

	// Reminder scheduler
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.scheduler.Run(ctx); err != nil {
			log.Error("Reminder scheduler failed", zap.Error(err))
			stop()
		}
	}()

	// Daily channel digest
	if a.digest != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.digest.Run(ctx); err != nil {
				log.Error("Channel digest job failed", zap.Error(err))
				stop()
			}
		}()
	}

	// MQ Consumer for message.received
	if a.publisher != nil {
		if err := a.publisher.EnsureDLQ(mqcontracts.RoutingKeyMessageReceived); err != nil {
			log.Error("Failed to declare DLQ", zap.Error(err))
			stop()
			wg.Wait()
			return err
		}

		consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Queue, mqcontracts.RoutingKeyMessageReceived, cfg.MQ.Prefetch, log)
		if err != nil {
			log.Error("Failed to init consumer", zap.Error(err))
			stop()
			wg.Wait()
			return err
		}
		defer consumer.Close()

		h := mqhandler.NewMessageReceivedHandler(a.pipeline, a.publisher, a.retryCounter(), cfg.MQ.MaxRetries, log)
		consumer.SetHandler(h.Handle)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.StartConsuming(ctx); err != nil {
				log.Error("Message consumer failed", zap.Error(err))
				stop()
			}
		}()
	}

	// HTTP Server
	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpserver.NewRouter(
		handler.NewTriageHandler(a.pipeline, a.repo, a.scheduler, log),
		a.repo,
		cfg.JWT.Secret,
		log,
	)
	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	log.Info("triagebot is fully initialized and running")

	// Graceful shutdown
	<-ctx.Done()
	log.Info("Shutting down triagebot gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	// 等待进行中的扫描和消息处理结束
	wg.Wait()

	log.Info("triagebot shutdown complete")
	return nil
}
