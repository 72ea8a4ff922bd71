package market

import (
	"context"
	"time"

	"whalescope/internal/insights"
	"whalescope/internal/logger"
	"whalescope/internal/staking"
	"whalescope/internal/types"
	"whalescope/internal/whale"
)

// ETH circulating supply fallback; ETH has no max supply.
const ethFallbackCirculating = 120_000_000

// EthReport assembles the ETH payload. On top of the market sections it syncs
// Allium staking activity into SQLite and attaches the staking report built
// from the persisted rows. Staking failures are logged and leave the section
// empty rather than failing the whole report.
func (s *Service) EthReport(ctx context.Context, startDate, endDate string) (*Report, error) {
	startDate, endDate = normalizeRange(startDate, endDate)

	series, err := s.binance.FetchKlines(ctx, "ETH", startDate, endDate)
	if err != nil {
		logger.Warn(ctx, "ETH klines unavailable, continuing with empty history", "error", err)
	}

	ticker, err := s.binance.FetchTicker24h(ctx, "ETH")
	if err != nil {
		logger.Warn(ctx, "ETH 24h ticker unavailable", "error", err)
	}
	price := ticker.LastPrice
	change24h := ticker.PriceChangePercent
	volume24h := ticker.Volume * price

	stats := types.MarketStats{Price: price, Volume24h: volume24h}
	if coin, err := s.gecko.FetchCoin(ctx, "ethereum"); err == nil {
		stats.MarketCap = coin.MarketCap
		stats.FDV = coin.FDV
		stats.CurrentSupply = coin.CirculatingSupply
		stats.MaxSupply = coin.MaxSupply
	} else {
		logger.Warn(ctx, "CoinGecko unavailable, using fallback ETH supply", "error", err)
		stats.CurrentSupply = ethFallbackCirculating
		stats.MarketCap = price * ethFallbackCirculating
		stats.FDV = price * ethFallbackCirculating
	}

	inflowUSD, outflowUSD, err := s.binance.FetchFlowTotals(ctx, "ETH", startDate, endDate)
	if err != nil {
		logger.Warn(ctx, "ETH exchange flows unavailable", "error", err)
	}
	var inflows, outflows float64
	if price > 0 {
		inflows = inflowUSD / price
		outflows = outflowUSD / price
	}
	netFlow := inflows - outflows

	topFlows := whale.DetectTiered(series, "ETH", s.cfg.Detector.Lookback)
	if len(topFlows) == 0 {
		topFlows = []types.FlowSignal{placeholderSignal("ETH")}
	}
	s.persistSignals(ctx, topFlows)

	var stakingReport *staking.Report
	if s.db != nil {
		if err := s.staking.Sync(ctx, startDate, endDate); err != nil {
			logger.Warn(ctx, "Staking sync failed", "error", err)
		}
		stakingReport, err = staking.BuildReport(ctx, s.db, startDate, endDate)
		if err != nil {
			logger.Warn(ctx, "Staking report unavailable", "error", err)
			stakingReport = nil
		}
		if stakingReport != nil {
			chain, err := s.staking.ChainStats(ctx)
			if err != nil {
				logger.Warn(ctx, "Chain stats unavailable", "error", err)
			} else {
				stakingReport.Chain = chain
			}
		}
	}

	perf := performance(change24h, series.Close)

	table := insights.MarkdownTable(series)
	if s.db != nil {
		if rows, err := s.db.StakingRows(ctx, "ETH", 30); err == nil && len(rows) > 0 {
			table += "\n" + insights.StakingTable(rows)
		}
	}

	insight := s.insights.Generate(ctx, insights.Request{
		Symbol: "ETH",
		Table:  table,
		Context: map[string]any{
			"price":      price,
			"24h_change": change24h,
			"7d_change":  perf.Change7d,
			"30d_change": perf.Change30d,
			"net_flow":   netFlow,
			"date_range": map[string]string{"start": startDate, "end": endDate},
		},
	})

	return &Report{
		Type:         "result",
		Markets:      Markets{MarketStats: stats, Change24h: change24h},
		Yields:       perf,
		Inflows:      sanitize(inflows),
		Outflows:     sanitize(outflows),
		NetFlow:      sanitize(netFlow),
		TopFlows:     topFlows,
		Fees:         feeSeries(series),
		PriceHistory: series,
		Staking:      stakingReport,
		Insights:     insight,
		InsightsMode: insightsMode(insight),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}
