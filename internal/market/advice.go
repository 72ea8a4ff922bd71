package market

import (
	"fmt"
	"strings"

	"whalescope/internal/ta"
)

// TradingAdvice summarizes price action, exchange flows, whale activity and
// nearby support into a one-line analysis string.
func TradingAdvice(price, change24h, netFlow, whaleTx, supportLevel float64, closes []float64, asset string) string {
	var parts []string

	if change24h < 0 {
		parts = append(parts, fmt.Sprintf("Price declining (%.2f%% in 24h)", change24h))
	} else {
		parts = append(parts, fmt.Sprintf("Price rising (%.2f%% in 24h)", change24h))
	}

	unit := strings.ToUpper(asset)
	if netFlow < 0 {
		parts = append(parts, fmt.Sprintf("Negative net flow (%.2f %s) suggests accumulation", netFlow, unit))
	} else {
		parts = append(parts, fmt.Sprintf("Positive net flow (%.2f %s) indicates potential selling", netFlow, unit))
	}

	if whaleTx > 200e6 {
		parts = append(parts, fmt.Sprintf("High whale activity ($%.1fM): expect volatility", whaleTx/1e6))
	}

	if supportLevel > 0 && price <= supportLevel*1.02 {
		parts = append(parts, fmt.Sprintf("Price near support ($%.0f): potential rebound zone", supportLevel))
	}

	if n := len(closes); n > 0 {
		last30 := closes
		if n > 30 {
			last30 = closes[n-30:]
		}
		if m := len(last30); m >= 7 {
			weekly := (last30[m-1] - last30[m-7]) / last30[m-7] * 100
			monthly := (last30[m-1] - last30[0]) / last30[0] * 100
			parts = append(parts, fmt.Sprintf("7d trend: %.2f%% | 30d trend: %.2f%%", weekly, monthly))
		}
		parts = append(parts, fmt.Sprintf("7d volatility: %.2f%%", weeklyVolatility(closes)))
	}

	if len(closes) >= 31 {
		rsi := ta.RSI(closes, 14)
		switch {
		case rsi >= 70:
			parts = append(parts, fmt.Sprintf("RSI(14) at %.1f: overbought", rsi))
		case rsi <= 30:
			parts = append(parts, fmt.Sprintf("RSI(14) at %.1f: oversold", rsi))
		default:
			parts = append(parts, fmt.Sprintf("RSI(14) at %.1f", rsi))
		}
		if sma := ta.SMA(closes, 30); price >= sma {
			parts = append(parts, fmt.Sprintf("Price above 30d average ($%.0f)", sma))
		} else {
			parts = append(parts, fmt.Sprintf("Price below 30d average ($%.0f)", sma))
		}
	}

	return strings.Join(parts, " | ")
}

// weeklyVolatility is the standard deviation of daily returns over the last
// seven closes, in percent.
func weeklyVolatility(closes []float64) float64 {
	n := len(closes)
	if n > 7 {
		closes = closes[n-7:]
	}
	var returns []float64
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(returns) == 0 {
		return 0
	}
	return sanitize(ta.Std(returns) * 100)
}

// MarketConclusion maps the signs of the 24h change and the net exchange flow
// to a short verdict.
func MarketConclusion(change24h, netFlow float64) string {
	switch {
	case change24h < 0 && netFlow < 0:
		return "Bearish short-term, but whale accumulation suggests rebound."
	case change24h > 0 && netFlow < 0:
		return "Bullish trend supported by whale accumulation."
	case change24h > 0 && netFlow > 0:
		return "Bullish but inflows suggest potential profit-taking."
	}
	return "Neutral market."
}
