package market

import (
	"context"
	"time"

	"whalescope/internal/insights"
	"whalescope/internal/logger"
	"whalescope/internal/types"
	"whalescope/internal/whale"
)

// Fallback supply figures used when CoinGecko is unreachable.
const (
	btcFallbackCirculating = 19_700_000
	btcFallbackMax         = 21_000_000
)

// BitcoinReport assembles the full BTC payload: price history, fundamentals,
// exchange flows, whale signals, fee estimates, commentary and a one-line
// conclusion. Upstream failures degrade the affected section instead of
// failing the report.
func (s *Service) BitcoinReport(ctx context.Context, startDate, endDate string) (*Report, error) {
	startDate, endDate = normalizeRange(startDate, endDate)

	series, err := s.binance.FetchKlines(ctx, "BTC", startDate, endDate)
	if err != nil {
		logger.Warn(ctx, "BTC klines unavailable, continuing with empty history", "error", err)
	}

	ticker, err := s.binance.FetchTicker24h(ctx, "BTC")
	if err != nil {
		logger.Warn(ctx, "BTC 24h ticker unavailable", "error", err)
	}
	price := ticker.LastPrice
	change24h := ticker.PriceChangePercent
	volume24h := ticker.Volume * price

	stats := types.MarketStats{Price: price, Volume24h: volume24h}
	if coin, err := s.gecko.FetchCoin(ctx, "bitcoin"); err == nil {
		stats.MarketCap = coin.MarketCap
		stats.FDV = coin.FDV
		stats.CurrentSupply = coin.CirculatingSupply
		stats.MaxSupply = coin.MaxSupply
	} else {
		logger.Warn(ctx, "CoinGecko unavailable, using fallback BTC supply", "error", err)
		stats.CurrentSupply = btcFallbackCirculating
		stats.MaxSupply = btcFallbackMax
		stats.MarketCap = price * btcFallbackCirculating
		stats.FDV = price * btcFallbackMax
	}

	inflowUSD, outflowUSD, err := s.binance.FetchFlowTotals(ctx, "BTC", "", "")
	if err != nil {
		logger.Warn(ctx, "BTC exchange flows unavailable", "error", err)
	}
	var inflows, outflows float64
	if price > 0 {
		inflows = inflowUSD / price
		outflows = outflowUSD / price
	}
	netFlow := inflows - outflows

	topFlows := whale.DetectPriceDirection(series, "BTC",
		s.cfg.Detector.PriceMultiplier, s.cfg.Detector.PriceLookback, s.cfg.Detector.FallbackLastDays)
	if len(topFlows) == 0 {
		topFlows = []types.FlowSignal{placeholderSignal("BTC")}
	}
	s.persistSignals(ctx, topFlows)

	perf := performance(change24h, series.Close)
	support := minValue(series.Low)
	whaleTx := topFlows[0].InputUSD

	insight := s.insights.Generate(ctx, insights.Request{
		Symbol: "BTC",
		Table:  insights.MarkdownTable(series),
		Context: map[string]any{
			"price":      price,
			"24h_change": change24h,
			"7d_change":  perf.Change7d,
			"30d_change": perf.Change30d,
			"net_flow":   netFlow,
			"whale_tx":   whaleTx,
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
		Analysis:     TradingAdvice(price, change24h, netFlow, whaleTx, support, series.Close, "BTC"),
		Conclusion:   MarketConclusion(change24h, netFlow),
		Insights:     insight,
		InsightsMode: insightsMode(insight),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// placeholderSignal is emitted when a detector finds nothing at all, so the
// payload always carries at least one row for the whale table.
func placeholderSignal(symbol string) types.FlowSignal {
	return types.FlowSignal{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    types.StatusNone,
		Symbol:    symbol,
	}
}

func insightsMode(insight types.Insight) string {
	if insight.Source == "OpenAI" {
		return "pro"
	}
	return "basic"
}

func (s *Service) persistSignals(ctx context.Context, signals []types.FlowSignal) {
	if s.db == nil {
		return
	}
	if err := s.db.SaveWhaleSignals(ctx, signals); err != nil {
		logger.Warn(ctx, "Failed to persist whale signals", "error", err)
	}
}

func minValue(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
