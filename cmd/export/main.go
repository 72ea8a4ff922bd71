package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"whalescope/internal/db"
	"whalescope/internal/export"
	"whalescope/internal/logger"
	"whalescope/internal/store"
	"whalescope/internal/types"
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
		symbolsFlag = flag.String("symbols", "", "comma-separated symbols, default all persisted")
		startDate   = flag.String("start-date", "", "range start (YYYY-MM-DD)")
		endDate     = flag.String("end-date", "", "range end (YYYY-MM-DD)")
		table       = flag.String("table", "staking", "what to export: staking or whales")
		format      = flag.String("format", "csv", "output format: csv or json")
		limit       = flag.Int("limit", 100, "max whale signals per symbol")
		configPath  = flag.String("config", "config.yaml", "path to config file")
	)
	flag.Parse()

	must(logger.Init())
	ctx := context.Background()

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

	symbols := splitSymbols(*symbolsFlag)
	if len(symbols) == 0 {
		symbols, err = database.Symbols(ctx)
		must(err)
	}

	switch *table {
	case "whales":
		var signals []types.FlowSignal
		for _, sym := range symbols {
			rows, err := database.WhaleSignals(ctx, sym, *limit)
			must(err)
			signals = append(signals, rows...)
		}
		if *format == "json" {
			must(export.WriteJSON(os.Stdout, signals))
		} else {
			must(export.WriteWhaleCSV(os.Stdout, signals))
		}
	case "staking":
		rows, err := database.StakingRowsRange(ctx, symbols, *startDate, *endDate)
		must(err)
		if *format == "json" {
			must(export.WriteJSON(os.Stdout, rows))
		} else {
			must(export.WriteStakingCSV(os.Stdout, rows))
		}
	default:
		must(fmt.Errorf("unknown table %q, want staking or whales", *table))
	}
}

func splitSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}
