package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"whalescope/internal/db"
	"whalescope/internal/export"
	"whalescope/internal/logger"
	"whalescope/internal/market"
	"whalescope/internal/store"
	"whalescope/internal/trace"
)

func must(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "[Fatal error] %v\n", err)
		os.Exit(1)
	}
}

func main() {
	_ = godotenv.Load()

	var (
		startDate  = flag.String("start-date", "", "range start (YYYY-MM-DD), default 30 days ago")
		endDate    = flag.String("end-date", "", "range end (YYYY-MM-DD), default today")
		format     = flag.String("format", "json", "output format: json or csv")
		configPath = flag.String("config", "config.yaml", "path to config file")
	)
	flag.Parse()

	symbol := flag.Arg(0)
	if symbol == "" {
		fmt.Fprintln(os.Stderr, "usage: binancemarket [flags] SYMBOL")
		flag.PrintDefaults()
		os.Exit(2)
	}

	must(logger.Init())
	must(trace.Init())
	ctx := context.Background()
	defer trace.Shutdown(ctx)

	cfg := loadConfig(*configPath)

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Warn(ctx, "Database unavailable, signals will not be persisted", "error", err)
		database = nil
	} else {
		defer database.Close()
	}

	svc := market.WithObservability(market.NewService(cfg, database))
	report, err := svc.BinanceMarket(ctx, symbol, *startDate, *endDate)
	must(err)

	switch *format {
	case "csv":
		for _, res := range report.Results {
			must(export.WriteWhaleCSV(os.Stdout, res.WhalesCombined))
		}
	default:
		must(export.WriteJSON(os.Stdout, report))
	}
}

func loadConfig(path string) *store.Config {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store.DefaultConfig()
		}
		must(err)
	}
	return cfg
}
