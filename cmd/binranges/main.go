// Package main provides the binranges CLI: single pipeline runs, local file
// validation, the scheduled server and database migrations.
package main

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

	"bin-ranges/internal/config"
	"bin-ranges/internal/logging"
)

// shutdownGrace bounds the wait for in-flight work after the first signal.
const shutdownGrace = 30 * time.Second

var (
	cfgFile string
	version = "dev"

	v       *viper.Viper
	rootCmd = &cobra.Command{
		Use:   "binranges",
		Short: "Acquire, verify and promote the BIN ranges reference file",
		Long: `binranges fetches the card scheme BIN ranges file from the operator's SFTP
server, stages it in S3, checks it against the promoted copy and promotes it
when it differs and passes the integrity checks.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
}

func main() {
	ctx, cancel := signalContext()
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext cancels on SIGINT or SIGTERM. A second signal, or a stalled
// shutdown, exits immediately.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			slog.Info("received signal, shutting down gracefully", "signal", sig)
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			slog.Error("received second signal, forcing immediate shutdown", "signal", sig)
			os.Exit(1)
		case <-time.After(shutdownGrace):
			slog.Error("graceful shutdown timed out, forcing exit", "timeout", shutdownGrace)
			os.Exit(1)
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	var err error
	v, err = config.New()
	if err != nil {
		return err
	}
	if err := config.ReadFile(v, cfgFile); err != nil {
		return err
	}

	flags := cmd.Root().PersistentFlags()
	_ = v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("logging.format", flags.Lookup("log-format"))

	slog.SetDefault(logging.New(v.GetString("logging.level"), v.GetString("logging.format"), os.Stderr))
	return nil
}

// loadConfig resolves the full pipeline configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
