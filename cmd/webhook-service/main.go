package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/igoorng/webhook/cmd/webhook-service/docs"
	"github.com/igoorng/webhook/internal/config"
	"github.com/igoorng/webhook/internal/constants"
	"github.com/igoorng/webhook/internal/logger"
	"github.com/igoorng/webhook/pkg/logging"
)

var (
	configFile string
)

//go:generate swag init --generalInfo main.go --dir ./,../../internal/api --parseDependency --output ./docs

// @title           Webhook Service API
// @version         1.0
// @description     Receives signed webhooks, stores them in a tiered file store and streams them live to the dashboard.

// @BasePath  /

// @schemes   http https

func main() {
	rootCmd := &cobra.Command{
		Use:   "webhook-service",
		Short: "Webhook receiver and live message console",
		Long:  "Webhook Service verifies, stores, archives and live-streams inbound webhook deliveries",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook service",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog()

			if configFile == "" {
				configFile = os.Getenv("CONFIG_FILE")
				if configFile == "" {
					earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
					return fmt.Errorf("config file is required")
				}
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				earlyLog.Error("Failed to load config: %v", err)
				return err
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				earlyLog.Error("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()
			if sl, ok := log.(*logger.SugaredLogger); ok {
				sl.SetServiceName(constants.ServiceName)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting Webhook Service", "data_dir", cfg.Storage.DataDir)

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				return err
			}

			if err := app.Run(ctx); err != nil {
				log.ErrorwCtx(ctx, "Application error", "error", err)
				return err
			}
			return nil
		},
	}
}
