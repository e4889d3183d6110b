package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/muhammadolammi/atsresume/internal/config"
	"github.com/muhammadolammi/atsresume/internal/events"
	"github.com/muhammadolammi/atsresume/internal/logging"
	"github.com/spf13/cobra"
	"github.com/streadway/amqp"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print session updates from RabbitMQ",
	Long:  "Consumes submission status updates from the session_updates exchange and prints one JSON object per line.",
	RunE:  runTail,
}

var (
	tailSession  string
	tailExchange string
)

func init() {
	tailCmd.Flags().StringVarP(&tailSession, "session", "s", "", "Session ID to follow (default: all sessions)")
	tailCmd.Flags().StringVar(&tailExchange, "exchange", events.DefaultExchange, "Exchange to consume from")

	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.BrokerEnabled() {
		return errors.New("RABBITMQ_URL is required")
	}
	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	sessionID := uuid.Nil
	if tailSession != "" {
		sessionID, err = uuid.Parse(tailSession)
		if err != nil {
			return fmt.Errorf("invalid session ID %q: %w", tailSession, err)
		}
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("error connecting to RabbitMQ: %w", err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(cmd.OutOrStdout())
	return events.Subscribe(ctx, conn, tailExchange, sessionID, logger, func(u events.Update) {
		if err := enc.Encode(u); err != nil {
			logger.Warn("failed to print update", "error", err)
		}
	})
}
