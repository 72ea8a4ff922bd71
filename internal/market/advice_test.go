package market

import (
	"strings"
	"testing"
)

func TestTradingAdviceDecliningAccumulation(t *testing.T) {
	closes := []float64{100, 101, 102, 103, 104, 105, 106, 107}
	advice := TradingAdvice(50000, -2.5, -1200, 0, 0, closes, "btc")

	if !strings.Contains(advice, "Price declining (-2.50% in 24h)") {
		t.Errorf("Expected declining segment, got %q", advice)
	}
	if !strings.Contains(advice, "Negative net flow (-1200.00 BTC) suggests accumulation") {
		t.Errorf("Expected accumulation segment, got %q", advice)
	}
	if strings.Contains(advice, "High whale activity") {
		t.Errorf("Did not expect whale segment for zero whale tx, got %q", advice)
	}
}

func TestTradingAdviceWhaleAndSupport(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 100, 100}
	advice := TradingAdvice(101, 1.0, 500, 250e6, 100, closes, "ETH")

	if !strings.Contains(advice, "High whale activity ($250.0M)") {
		t.Errorf("Expected whale segment, got %q", advice)
	}
	if !strings.Contains(advice, "Price near support ($100)") {
		t.Errorf("Expected support segment, got %q", advice)
	}
	if !strings.Contains(advice, "7d volatility: 0.00%") {
		t.Errorf("Expected zero volatility for flat closes, got %q", advice)
	}
}

func TestTradingAdviceEmptyCloses(t *testing.T) {
	advice := TradingAdvice(100, 0.5, 10, 0, 0, nil, "SOL")
	if strings.Contains(advice, "7d trend") || strings.Contains(advice, "volatility") {
		t.Errorf("Expected no trend segments without history, got %q", advice)
	}
}

func TestTradingAdviceMomentumSegments(t *testing.T) {
	// 31 rising closes: every delta positive, so RSI pins at 100.
	closes := make([]float64, 31)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	advice := TradingAdvice(130, 1.0, 500, 0, 0, closes, "ETH")

	if !strings.Contains(advice, "RSI(14) at 100.0: overbought") {
		t.Errorf("Expected overbought RSI segment, got %q", advice)
	}
	if !strings.Contains(advice, "Price above 30d average") {
		t.Errorf("Expected moving-average segment, got %q", advice)
	}
}

func TestTradingAdviceMomentumNeedsHistory(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	advice := TradingAdvice(100, 1.0, 500, 0, 0, closes, "ETH")

	if strings.Contains(advice, "RSI") || strings.Contains(advice, "30d average") {
		t.Errorf("Expected no momentum segments for short history, got %q", advice)
	}
}

func TestMarketConclusion(t *testing.T) {
	cases := []struct {
		change24h, netFlow float64
		want               string
	}{
		{-1, -1, "Bearish short-term, but whale accumulation suggests rebound."},
		{1, -1, "Bullish trend supported by whale accumulation."},
		{1, 1, "Bullish but inflows suggest potential profit-taking."},
		{-1, 1, "Neutral market."},
		{0, 0, "Neutral market."},
	}
	for _, tc := range cases {
		got := MarketConclusion(tc.change24h, tc.netFlow)
		if got != tc.want {
			t.Errorf("MarketConclusion(%.0f, %.0f): expected %q, got %q",
				tc.change24h, tc.netFlow, tc.want, got)
		}
	}
}
