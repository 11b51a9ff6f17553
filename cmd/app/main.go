package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"CoinCast/internal/di"
	"CoinCast/internal/domain/models"
	"CoinCast/internal/forecast"
	internalrepo "CoinCast/internal/repository"
	"CoinCast/internal/service/cache"
	"CoinCast/internal/service/yahoo"
	"CoinCast/internal/usecase"
	"CoinCast/pkg/config"
	"CoinCast/pkg/logger"
	"CoinCast/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	symbol := flag.String("symbol", "", "one-shot mode: forecast this symbol and exit")
	model := flag.String("model", "LSTM", "one-shot mode: architecture (MLP, GRU, LSTM, CNN-LSTM)")
	interval := flag.String("interval", "1d", "one-shot mode: candle interval (1h, 1d, 1wk, 1mo)")
	steps := flag.Int("steps", 30, "one-shot mode: forecast horizon")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if *symbol != "" {
		if err := runOnce(cfg, *symbol, *model, *interval, *steps); err != nil {
			log.Fatalf("forecast failed: %v", err)
		}
		return
	}

	log.Printf("env=%s cache=%s port=%d", cfg.Environment, cfg.Cache.Backend, cfg.Server.Port)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

// runOnce trains if needed, forecasts once and prints a table. It skips
// the server, audit log and event bus entirely.
func runOnce(cfg *config.Config, symbol, model, interval string, steps int) error {
	l, err := logger.New(&logger.Config{Level: cfg.Logging.Level, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}

	ttl := cache.NewTTLCache()
	market := yahoo.NewClient(ttl, l,
		yahoo.WithBaseURL(cfg.MarketData.BaseURL),
		yahoo.WithTimeout(cfg.MarketData.Timeout),
		yahoo.WithTTLs(cfg.Cache.HistoryTTL, cfg.Cache.LiveTTL),
	)
	store, err := internalrepo.NewFileStore(cfg.Forecast.ModelDir, cfg.Forecast.ScalerDir)
	if err != nil {
		return err
	}
	trainer := forecast.NewTrainer(market, store, l)
	svc := usecase.NewForecastService(cfg, trainer, store, market, metrics.New(),
		internalrepo.NopForecastLog{}, internalrepo.NopEventPublisher{}, nil, l)

	res, err := svc.Forecast(context.Background(), &models.ForecastRequest{
		Symbol:   symbol,
		Model:    model,
		Interval: interval,
		Steps:    steps,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s %s forecast (%s candles, last close %.2f)\n",
		res.Ticker, res.Model, res.Interval, res.LastClose)
	for _, p := range res.Points {
		fmt.Printf("%s  %12.2f\n", p.Time.Format("2006-01-02 15:04"), p.Price)
	}
	return nil
}
