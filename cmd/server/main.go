package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lmrelay/internal/config"
	"lmrelay/internal/database"
	"lmrelay/internal/events"
	"lmrelay/internal/handlers"
	"lmrelay/internal/logger"
	"lmrelay/internal/metrics"
	"lmrelay/internal/router"
	"lmrelay/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var host, port string

	cmd := &cobra.Command{
		Use:           "lmrelay",
		Short:         "Basic LM Studio API",
		Long:          "lmrelay forwards prompts to a local LM Studio chat-completion endpoint and returns the reply.",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides HOST)")
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	// ──── Step 1: Logger ────
	log, closeLog, err := logger.New(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return errors.Wrap(err, "failed to set up logger")
	}
	defer closeLog()
	log.Info("starting Basic LM Studio API", zap.String("env", cfg.Env))

	// ──── Step 2: Exchange events (optional) ────
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "redis connection failed")
		}
		defer redisClient.Close()
		publisher = events.NewRedisPublisher(redisClient, cfg.EventsChannel)
		log.Info("exchange events enabled", zap.String("channel", cfg.EventsChannel))
	}

	// ──── Step 3: Relay ────
	m := metrics.New()
	lmstudio := services.NewLMStudioClient(cfg.LMStudioURL, cfg.ModelName, cfg.LMStudioTimeout)
	relay := services.NewRelayService(lmstudio, m, publisher, log)
	chatHandler := handlers.NewChatHandler(relay, log)
	log.Info("LM Studio upstream configured",
		zap.String("url", cfg.LMStudioURL),
		zap.String("model", cfg.ModelName),
		zap.Duration("timeout", cfg.LMStudioTimeout),
	)

	// ──── Step 4: HTTP Server ────
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(log, chatHandler, m.Handler()),
		ReadHeaderTimeout: 15 * time.Second,
		// Leaves room for a full upstream timeout.
		WriteTimeout: cfg.LMStudioTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "HTTP server failed")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "failed to gracefully shut down HTTP server")
		}
		return nil
	})

	err = g.Wait()
	// In-flight exchange events go out before Redis is closed.
	relay.Wait()
	if err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
