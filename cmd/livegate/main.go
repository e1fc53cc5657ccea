package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"livegate/internal/app"
	"livegate/internal/config"
)

var version = "dev"

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "livegate",
		Short: "Realtime interaction gateway for live broadcasts",
		Long: `livegate is the realtime interaction gateway for live broadcasts.

It accepts authenticated WebSocket connections from viewers, tracks who is
watching each channel, moderates comments, rate-limits message traffic, and
fans interaction events out to everyone watching the same channel.`,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildVersionCmd(),
	)

	return rootCmd
}

func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		Long: `Start the gateway server.

Configuration precedence is file > environment > defaults. Every setting has
an environment variable under the LIVEGATE_ prefix; the signing secret
(LIVEGATE_AUTH_SECRET or auth.secret) is the only required one.

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with environment configuration
  LIVEGATE_AUTH_SECRET=... livegate serve

  # Start with a config file
  livegate serve --config /etc/livegate/production.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("LIVEGATE_CONFIG"),
		"Path to YAML configuration file")

	return cmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the livegate version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("livegate %s\n", version)
		},
	}
}

func runServe(configPath string) error {
	cfg := config.LoadWithPrecedence(configPath)

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	// Block until an interrupt arrives, then drain gracefully.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received signal %v, shutting down", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	return application.Stop(shutdownCtx)
}
