package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/muhammadolammi/atsresume/internal/analysis"
	"github.com/muhammadolammi/atsresume/internal/config"
	"github.com/muhammadolammi/atsresume/internal/events"
	"github.com/muhammadolammi/atsresume/internal/intake"
	"github.com/muhammadolammi/atsresume/internal/logging"
	"github.com/muhammadolammi/atsresume/internal/server"
	"github.com/muhammadolammi/atsresume/internal/session"
	"github.com/muhammadolammi/atsresume/internal/storage"
	"github.com/spf13/cobra"
	"github.com/streadway/amqp"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := events.NewHub(logger)
	sinks := []events.Sink{
		{Name: "websocket", Publisher: hub},
		{Name: "log", Publisher: events.LogPublisher{Logger: logger}},
	}
	if cfg.BrokerEnabled() {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("error connecting to RabbitMQ: %w", err)
		}
		defer conn.Close()
		pub, err := events.NewAMQPPublisher(conn, events.DefaultExchange)
		if err != nil {
			return err
		}
		sinks = append(sinks, events.Sink{Name: "amqp", Publisher: pub})
		logger.Info("Publishing session updates to RabbitMQ", "exchange", events.DefaultExchange)
	}

	var objects intake.ObjectStore
	if cfg.R2Enabled() {
		r2, err := storage.NewR2(ctx, storage.R2Config{
			AccountID: cfg.R2AccountID,
			Bucket:    cfg.R2Bucket,
			AccessKey: cfg.R2AccessKey,
			SecretKey: cfg.R2SecretKey,
		})
		if err != nil {
			return err
		}
		objects = r2
		logger.Info("R2 import enabled", "bucket", cfg.R2Bucket)
	}

	// No analysis backend ships with the service; submissions fail visibly.
	submitter := analysis.NewSubmitter(analysis.Unavailable{}, events.NewFanout(logger, sinks...), analysis.Config{
		Timeout:     cfg.AnalysisTimeout,
		Concurrency: cfg.AnalysisConcurrency,
		Logger:      logger,
	})

	registry := session.NewRegistry(session.RegistryConfig{
		IdleTimeout: cfg.SessionIdleTimeout,
		SweepSpec:   cfg.SessionSweepSpec,
		Logger:      logger,
	})
	registry.OnTeardown(func(id uuid.UUID) {
		if n := submitter.CancelSession(id); n > 0 {
			logging.WithSession(logger, id).Info("Cancelled pending submissions", "count", n)
		}
		hub.CloseSession(id)
	})
	if err := registry.Start(); err != nil {
		return err
	}
	defer registry.Stop()

	srv := server.NewServer(server.Deps{
		Registry: registry,
		Intake: intake.New(intake.Policy{
			MaxFiles:        cfg.IntakeMaxFiles,
			VerifyStructure: cfg.IntakeVerifyPDF,
		}, logger),
		Objects:   objects,
		Submitter: submitter,
		Hub:       hub,
		Logger:    logger,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
