package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"five-percent-bot-go/internal/alpaca"
	"five-percent-bot-go/internal/config"
	"five-percent-bot-go/internal/database"
	"five-percent-bot-go/internal/logger"
	"five-percent-bot-go/internal/marketdata"
	"five-percent-bot-go/internal/state"
	"five-percent-bot-go/internal/trader"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Daily five percent mean-reversion trader",
	Long: `Buys S&P 500 names that fell five percent over the lookback window and
sells positions that gained five percent from entry, at most once per trading day.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading cycle on a schedule until interrupted",
	RunE:  runLoop,
}

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run a single trading cycle and exit",
	RunE:  runOnce,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./configs", "Directory containing config.yml")
	rootCmd.AddCommand(runCmd, cycleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	log    *zap.Logger
	engine *trader.Engine
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return nil, fmt.Errorf("could not initialize logger: %w", err)
	}
	log.Info("Configuration loaded", zap.Bool("dry_run", cfg.Trading.DryRun))

	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	log.Info("Trade journal ready", zap.String("dsn", cfg.Database.DSN))

	store, err := state.NewStore(afero.NewOsFs(), cfg.State.Dir)
	if err != nil {
		return nil, err
	}

	account := alpaca.NewRestClient(&cfg.Alpaca, log)
	if equity, err := account.GetPortfolioValue(ctx); err != nil {
		if !cfg.Trading.DryRun {
			return nil, fmt.Errorf("failed to connect to Alpaca API: %w", err)
		}
		log.Warn("Alpaca API unavailable, continuing in dry run", zap.Error(err))
	} else {
		log.Info("Successfully connected to Alpaca API.", zap.Float64("equity", equity))
	}

	market := marketdata.NewYahooClient(&cfg.MarketData, log)

	engine, err := trader.NewEngine(log, &cfg, account, market, store, db)
	if err != nil {
		return nil, err
	}
	return &app{log: log, engine: engine}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runLoop(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	api := trader.NewAPIServer(a.engine, a.log)
	api.Start()

	a.engine.Run(ctx)
	a.log.Info("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := api.Stop(shutdownCtx); err != nil {
		a.log.Error("API server shutdown failed", zap.Error(err))
	}

	a.log.Info("Bot has been shut down.")
	return nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	executed, err := a.engine.RunCycle(ctx)
	if err != nil {
		return err
	}
	status := a.engine.Status()
	a.log.Info("Cycle finished",
		zap.Bool("executed", executed),
		zap.String("outcome", status.Outcome),
		zap.Int("holdings", status.Holdings))
	return nil
}
