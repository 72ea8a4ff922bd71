package market

import (
	"context"
	"math"
	"strings"

	"whalescope/internal/insights"
	"whalescope/internal/logger"
	"whalescope/internal/smartmoney"
	"whalescope/internal/types"
	"whalescope/internal/whale"
)

// BinanceMarket assembles the generic per-symbol payload: candles, whale
// table, daily exchange flows, smart-money phase and accumulation score,
// fundamentals from CoinMarketCap, and chart series for netflow, fees and
// taker pressure.
func (s *Service) BinanceMarket(ctx context.Context, symbol, startDate, endDate string) (*BinanceMarketReport, error) {
	symbol = strings.ToUpper(symbol)
	startDate, endDate = normalizeRange(startDate, endDate)

	series, err := s.binance.FetchKlines(ctx, symbol, startDate, endDate)
	if err != nil {
		logger.Warn(ctx, "Klines unavailable, continuing with empty history",
			"symbol", symbol, "error", err)
	}

	var price, lastVolume float64
	if n := series.Len(); n > 0 {
		price = series.Close[n-1]
		lastVolume = series.Volume[n-1]
	}

	whales := whale.DetectTiered(series, symbol, s.cfg.Detector.Lookback)
	if len(whales) > 0 {
		top := whales[0]
		logger.WhaleSignal(ctx, symbol, string(top.Status), top.NetFlow, top.Intensity,
			"signal_count", len(whales))
	}

	flows, err := s.binance.FetchDailyFlows(ctx, symbol, startDate, endDate)
	if err != nil {
		logger.Warn(ctx, "Daily flows unavailable", "symbol", symbol, "error", err)
	}
	netflow := types.Series{Dates: []string{}, Values: []float64{}}
	netflows := make([]float64, 0, len(flows))
	for _, row := range flows {
		netflow.Dates = append(netflow.Dates, row.Date)
		netflow.Values = append(netflow.Values, sanitize(row.NetFlowUSD))
		netflows = append(netflows, row.NetFlowUSD)
	}

	flowWhales := whale.DetectFlowAnomaly(flows, symbol,
		s.cfg.Detector.FlowMultiplier, s.cfg.Detector.FlowLookback)
	combined := whale.Merge(whales, flowWhales)
	s.persistSignals(ctx, combined)

	phase := smartmoney.Classify(netflows, series.Close)
	score := smartmoney.Score(netflows, series.Close, len(whales), s.weights())
	logger.PhaseChange(ctx, symbol, string(phase), score)

	stats := types.MarketStats{Price: price, Volume24h: lastVolume}
	if fund, err := s.cmc.FetchFundamentals(ctx, symbol); err == nil {
		stats.MarketCap = fund.MarketCap
		stats.FDV = fund.FDV
		stats.CurrentSupply = fund.CurrentSupply
		stats.MaxSupply = fund.MaxSupply
	} else {
		logger.Warn(ctx, "Fundamentals unavailable", "symbol", symbol, "error", err)
	}

	pressure, err := s.binance.FetchTakerPressure(ctx, symbol)
	if err != nil {
		logger.Warn(ctx, "Taker pressure unavailable", "symbol", symbol, "error", err)
		pressure = types.Series{Dates: []string{}, Values: []float64{}}
	}
	sanitizeSlice(pressure.Values)

	insight := s.insights.Generate(ctx, insights.Request{
		Symbol: symbol,
		Table:  insights.MarkdownTable(series),
		Context: map[string]any{
			"price":              price,
			"smart_money_phase":  string(phase),
			"accumulation_score": score,
			"whale_signals":      len(whales),
			"date_range":         map[string]string{"start": startDate, "end": endDate},
		},
	})

	report := &SymbolReport{
		Markets:           stats,
		Performance:       trailingPerformance(series.Close),
		Candles:           series,
		WhalesTable:       whale.TableRows(whales),
		WhalesCombined:    combined,
		Netflow:           netflow,
		Fees:              feeSeries(series),
		LiquidityPressure: pressure,
		SmartMoneyPhase:   phase,
		AccumulationScore: score,
		Insights:          insight,
	}

	return &BinanceMarketReport{Results: map[string]*SymbolReport{symbol: report}}, nil
}

func (s *Service) weights() smartmoney.Weights {
	return smartmoney.Weights{
		Slope: s.cfg.Score.SlopeWeight,
		Price: s.cfg.Score.PriceWeight,
		Whale: s.cfg.Score.WhaleWeight,
	}
}

// trailingPerformance computes 24h/7d/30d changes from the closes, rounded to
// two decimals. Returns nil when fewer than 30 closes are available, matching
// the payload contract where the block is simply absent.
func trailingPerformance(closes []float64) *types.Performance {
	n := len(closes)
	if n < 30 {
		return nil
	}
	p := &types.Performance{
		Change24h: round2((closes[n-1]/closes[n-2] - 1) * 100),
		Change7d:  round2((closes[n-1]/closes[n-7] - 1) * 100),
		Change30d: round2((closes[n-1]/closes[n-30] - 1) * 100),
	}
	sanitizePerformance(p)
	return p
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
