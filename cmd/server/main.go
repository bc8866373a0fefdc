package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/simaogato/portfolio-engine/internal/adapter/marketdata"
	"github.com/simaogato/portfolio-engine/internal/adapter/repository/postgres"
	"github.com/simaogato/portfolio-engine/internal/domain"
	"github.com/simaogato/portfolio-engine/internal/usecase/exchange"
	"github.com/simaogato/portfolio-engine/internal/usecase/performance"
	"github.com/simaogato/portfolio-engine/internal/usecase/valuation"
)

const (
	defaultCurrencies      = "USD,EUR,GBP,CHF"
	defaultRefreshSchedule = "@every 1h"
	defaultHTTPTimeout     = 8 * time.Second
)

func main() {
	// Load a local .env when present (Docker and CI set real env vars).
	_ = godotenv.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if os.Getenv("LOG_PRETTY") != "" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// 1. Setup Database
	dbConnStr := os.Getenv("DB_CONN_STR")
	if dbConnStr == "" {
		// If explicit string is missing, build it from individual vars (Docker friendly)
		host := envOr("DB_HOST", "localhost")
		port := envOr("DB_PORT", "5432")
		user := envOr("DB_USER", "postgres")
		password := envOr("DB_PASSWORD", "postgres")
		dbname := envOr("DB_NAME", "portfolio")

		dbConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	}

	db, err := postgres.NewDB(dbConnStr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// 2. Initialize Repositories and Providers
	orderRepo := postgres.NewOrderRepository(db)
	yahoo := marketdata.NewYahooClient(defaultHTTPTimeout)

	// 3. Initialize Currency Converter and its scheduled refresher
	converter := exchange.NewConverter(nil, log)
	currencies := strings.Split(envOr("RATE_CURRENCIES", defaultCurrencies), ",")
	refresher := exchange.NewRefresher(yahoo, converter, currencies, log)

	schedule := envOr("RATE_REFRESH_SCHEDULE", defaultRefreshSchedule)
	if err := refresher.Start(context.Background(), schedule); err != nil {
		log.Fatal().Err(err).Msg("Failed to start rates refresher")
	}
	defer refresher.Stop()

	log.Info().
		Str("schedule", schedule).
		Strs("currencies", currencies).
		Msg("Performance engine ready")

	// 4. Log a startup snapshot over the full order history
	baseCurrency := envOr("BASE_CURRENCY", "USD")
	logStartupSnapshot(context.Background(), log, orderRepo, yahoo, converter, baseCurrency)

	waitForShutdown(log)
}

// logStartupSnapshot computes and logs an all-time portfolio snapshot, mostly
// as an end-to-end wiring check at boot
func logStartupSnapshot(
	ctx context.Context,
	log zerolog.Logger,
	orderRepo domain.OrderRepository,
	yahoo *marketdata.YahooClient,
	converter *exchange.Converter,
	baseCurrency string,
) {
	orders, err := orderRepo.List(ctx, domain.OrderFilter{})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list orders for startup snapshot")
		return
	}
	if len(orders) == 0 {
		return
	}

	valuator := valuation.NewService(yahoo, yahoo, converter, log)
	calculator := performance.NewCalculator(orders, valuator, converter, log)

	snapshot, err := calculator.GetCurrentPositions(ctx, time.Time{}, baseCurrency)
	if err != nil {
		log.Warn().Err(err).Msg("Startup snapshot failed")
		return
	}

	log.Info().
		Int("positions", len(snapshot.Positions)).
		Str("total_investment", snapshot.TotalInvestment.StringFixed(2)).
		Str("current_value", snapshot.CurrentValue.StringFixed(2)).
		Str("net_performance", snapshot.NetPerformance.StringFixed(2)).
		Bool("has_errors", snapshot.HasErrors).
		Msg("Startup snapshot")
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// waitForShutdown blocks until SIGTERM or SIGINT
func waitForShutdown(log zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")
}
