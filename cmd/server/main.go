package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"whalescope/internal/datasource"
	"whalescope/internal/db"
	"whalescope/internal/logger"
	"whalescope/internal/market"
	"whalescope/internal/news"
	"whalescope/internal/server"
	"whalescope/internal/staking"
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

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	must(logger.Init())
	must(trace.Init())
	ctx := context.Background()
	defer trace.Shutdown(ctx)

	cfg, err := store.LoadConfig(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			must(err)
		}
		cfg = store.DefaultConfig()
	}

	database, err := db.Open(ctx, cfg.DBPath)
	must(err)
	defer database.Close()

	allium := datasource.NewAlliumClient(os.Getenv("ALLIUM_API_KEY"))
	stakingSvc := staking.NewService(allium, database, cfg)
	if key := os.Getenv("ETHERSCAN_API_KEY"); key != "" {
		stakingSvc = stakingSvc.WithEtherscan(datasource.NewEtherscanClient(key))
	}

	var newsSvc *news.Service
	if cfg.News.Enabled {
		newsSvc = news.NewService(news.ServiceConfigFrom(cfg), database)
	}

	marketSvc := market.NewService(cfg, database)
	reporter := market.WithObservability(marketSvc)
	srv := server.New(cfg, reporter, database, stakingSvc, newsSvc)
	srv = srv.WithCacheCleanup(marketSvc.Cache())
	if key := os.Getenv("LUNARCRUSH_API_KEY"); key != "" {
		srv = srv.WithSocialSync(news.NewSocialSync(datasource.NewLunarCrushClient(key), database))
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			must(err)
		}
	case <-sigc:
		logger.Info(ctx, "Shutting down")
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorWithErr(ctx, "Shutdown failed", err)
		}
	}
}
