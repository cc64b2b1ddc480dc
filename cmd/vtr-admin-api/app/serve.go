package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	registryapp "github.com/verinode/token-registry-server/internal/app"
	"github.com/verinode/token-registry-server/internal/config"
	"github.com/verinode/token-registry-server/internal/panicnotify"
	"github.com/verinode/token-registry-server/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the token registry admin API server",
	Long: `Start the admin API server to accept token registrations and queries.

The server requires a configuration file (--config) that specifies:
- Database connection parameters
- Credential validation settings (signing secret, realm)
- Worker cap and other operational settings

See examples/ directory for sample configurations.`,
	RunE: runServe,
}

// defaultGracefulTimeout bounds shutdown so a stuck request cannot hold the
// process open indefinitely.
const defaultGracefulTimeout = 30 * time.Second

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address"))
	if err != nil {
		slog.Error("Failed to bind address flag", "error", err)
		os.Exit(1)
	}
	err = viper.BindPFlag("config", serveCmd.Flags().Lookup("config"))
	if err != nil {
		slog.Error("Failed to bind config flag", "error", err)
		os.Exit(1)
	}

	// The server cannot start without a config file.
	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		slog.Error("Failed to mark config flag as required", "error", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Load and validate configuration (required)
	configPath := viper.GetString("config")
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration", "path", configPath)

	// An address given on the command line wins over the configuration file
	address := cfg.Server.GetAddress()
	if cmd.Flags().Changed("address") {
		address = viper.GetString("address")
	}

	// Initialize telemetry before the app so its providers can be injected
	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	appOpts := []registryapp.RegistryAppOptions{
		registryapp.WithConfig(cfg),
		registryapp.WithAddress(address),
		registryapp.WithMeterProvider(tel.MeterProvider()),
		registryapp.WithTracerProvider(tel.TracerProvider()),
	}
	if handler := tel.MetricsHandler(); handler != nil {
		appOpts = append(appOpts, registryapp.WithMetricsHandler(handler))
	}

	server, err := registryapp.NewRegistryApp(ctx, appOpts...)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	// Run the server on a supervised goroutine. The notifier signals if the
	// goroutine dies abnormally, so a panic can never leave the process
	// running without its listener.
	notifier := panicnotify.New()
	serverErr := make(chan error, 1)
	notifier.Go(func() {
		serverErr <- server.Start()
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		// A bind or accept failure is fatal, there is nothing to drain
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-notifier.Done():
		return fmt.Errorf("server worker exited abnormally")
	case sig := <-quit:
		slog.Info("Received shutdown signal", "signal", sig.String())
	}

	if err := server.Stop(defaultGracefulTimeout); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	return nil
}
