package market

import (
	"context"
	"os"
	"time"

	"whalescope/internal/datasource"
	"whalescope/internal/db"
	"whalescope/internal/insights"
	"whalescope/internal/staking"
	"whalescope/internal/store"
)

// Reporter produces the report payloads served by the CLIs and the HTTP API.
type Reporter interface {
	BitcoinReport(ctx context.Context, startDate, endDate string) (*Report, error)
	EthReport(ctx context.Context, startDate, endDate string) (*Report, error)
	BinanceMarket(ctx context.Context, symbol, startDate, endDate string) (*BinanceMarketReport, error)
}

// Service wires the upstream clients and the analytics into the three
// pipelines. The database is optional; with a nil *db.DB signals are not
// persisted and the ETH staking section is skipped.
type Service struct {
	cfg      *store.Config
	cache    *datasource.Cache
	binance  *datasource.BinanceClient
	gecko    *datasource.CoinGeckoClient
	cmc      *datasource.CMCClient
	staking  *staking.Service
	insights *insights.Service
	db       *db.DB
}

var _ Reporter = (*Service)(nil)

// NewService builds a Service with clients keyed from the environment.
func NewService(cfg *store.Config, database *db.DB) *Service {
	cache := datasource.NewCache(cfg.Cache.Dir, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	allium := datasource.NewAlliumClient(os.Getenv("ALLIUM_API_KEY"))
	stakingSvc := staking.NewService(allium, database, cfg)
	if key := os.Getenv("ETHERSCAN_API_KEY"); key != "" {
		stakingSvc = stakingSvc.WithEtherscan(datasource.NewEtherscanClient(key))
	}

	return &Service{
		cfg:      cfg,
		cache:    cache,
		binance:  datasource.NewBinanceClient(cache),
		gecko:    datasource.NewCoinGeckoClient(cache, os.Getenv("COINGECKO_API_KEY")),
		cmc:      datasource.NewCMCClient(cache, os.Getenv("CMC_API_KEY")),
		staking:  stakingSvc,
		insights: insights.NewService(cfg),
		db:       database,
	}
}

// Cache exposes the shared response cache so callers can schedule expiry
// cleanup.
func (s *Service) Cache() *datasource.Cache {
	return s.cache
}

// normalizeRange fills missing bounds with the trailing 30 days, UTC.
func normalizeRange(startDate, endDate string) (string, string) {
	now := time.Now().UTC()
	if endDate == "" {
		endDate = now.Format("2006-01-02")
	}
	if startDate == "" {
		startDate = now.AddDate(0, 0, -30).Format("2006-01-02")
	}
	return startDate, endDate
}
