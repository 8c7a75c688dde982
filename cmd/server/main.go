package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	router "github.com/dkeye/Candles/internal/adapters/http"
	"github.com/dkeye/Candles/internal/app"
	"github.com/dkeye/Candles/internal/config"
	"github.com/dkeye/Candles/internal/domain"
)

var rootCmd = &cobra.Command{
	Use:   "candles",
	Short: "Real-time room hub for the candle-lit tabletop table",
	RunE:  runServer,
}

var flagEnv string

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagEnv, "env", "", "config environment, selects config/config.<env>.yaml (default from CONFIG_ENV, then dev)")
	flags.Int("port", 3000, "HTTP listen port")
	flags.String("log-level", "info", "zerolog level (trace, debug, info, warn, error)")
	flags.String("mode", "release", "gin mode (debug or release)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute candles command")
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(flagEnv, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Err(err).Str("level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	policy, err := app.PolicyByName(cfg.Backpressure)
	if err != nil {
		return err
	}
	reg := app.NewRegistry()
	relay := app.NewRelay(reg, &domain.Roller{}, cfg.MaxDice)
	orch := app.NewOrchestrator(reg, relay, policy)

	r := router.SetupRouter(ctx, cfg, orch)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Candles server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
