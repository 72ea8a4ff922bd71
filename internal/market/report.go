// Package market assembles the per-asset report payloads from the upstream
// data sources, the whale detectors and the smart-money analytics.
package market

import (
	"math"

	"whalescope/internal/staking"
	"whalescope/internal/types"
)

// Markets is the header block of a report: fundamentals plus the rolling 24h
// change from the exchange ticker.
type Markets struct {
	types.MarketStats
	Change24h float64 `json:"percent_change_24h"`
}

// Report is the full BTC/ETH payload written to stdout by the CLIs and served
// over HTTP. Field order and names match what the desktop UI consumes.
type Report struct {
	Type         string             `json:"type"` // always "result"
	Markets      Markets            `json:"markets"`
	Yields       types.Performance  `json:"yields"`
	Inflows      float64            `json:"inflows"`  // base-asset units
	Outflows     float64            `json:"outflows"` // base-asset units
	NetFlow      float64            `json:"net_flow"`
	TopFlows     []types.FlowSignal `json:"top_flows"`
	Fees         types.Series       `json:"fees"`
	PriceHistory types.CandleSeries `json:"price_history"`
	Analysis     string             `json:"analysis,omitempty"`
	Conclusion   string             `json:"conclusion,omitempty"`
	Staking      *staking.Report    `json:"staking,omitempty"`
	Insights     types.Insight      `json:"insights"`
	InsightsMode string             `json:"insights_mode"` // "pro" or "basic"
	Timestamp    string             `json:"timestamp"`
}

// SymbolReport is the per-symbol block of the generic Binance market payload.
type SymbolReport struct {
	Markets           types.MarketStats     `json:"markets"`
	Performance       *types.Performance    `json:"performance,omitempty"`
	Candles           types.CandleSeries    `json:"candles"`
	WhalesTable       []types.WhaleTableRow `json:"whales_table"`
	WhalesCombined    []types.FlowSignal    `json:"whales_combined"`
	Netflow           types.Series          `json:"netflow"`
	Fees              types.Series          `json:"fees"`
	LiquidityPressure types.Series          `json:"liquidity_pressure"`
	SmartMoneyPhase   types.Phase           `json:"smart_money_phase"`
	AccumulationScore int                   `json:"accumulation_score"`
	Insights          types.Insight         `json:"insights"`
}

// BinanceMarketReport wraps symbol reports keyed by ticker.
type BinanceMarketReport struct {
	Results map[string]*SymbolReport `json:"results"`
}

// sanitize replaces NaN and infinities with zero so the payload always
// encodes as valid JSON.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func sanitizeSlice(vals []float64) {
	for i, v := range vals {
		vals[i] = sanitize(v)
	}
}

func sanitizePerformance(p *types.Performance) {
	p.Change24h = sanitize(p.Change24h)
	p.Change7d = sanitize(p.Change7d)
	p.Change30d = sanitize(p.Change30d)
}

// feeSeries estimates network fees as a fixed fraction of daily volume.
func feeSeries(series types.CandleSeries) types.Series {
	values := make([]float64, 0, len(series.Volume))
	for _, v := range series.Volume {
		values = append(values, v*0.0001)
	}
	return types.Series{Dates: series.Dates, Values: values}
}

// performance computes trailing percent changes from the daily closes. The
// 7d and 30d windows are zero when the history is too short.
func performance(change24h float64, closes []float64) types.Performance {
	p := types.Performance{Change24h: change24h}
	n := len(closes)
	if n >= 7 && closes[n-7] != 0 {
		p.Change7d = (closes[n-1] - closes[n-7]) / closes[n-7] * 100
	}
	if n >= 30 && closes[n-30] != 0 {
		p.Change30d = (closes[n-1] - closes[n-30]) / closes[n-30] * 100
	}
	sanitizePerformance(&p)
	return p
}
