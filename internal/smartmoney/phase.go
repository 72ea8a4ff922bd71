// Package smartmoney classifies market phases from whale netflow and price
// trends, in the spirit of Wyckoff accumulation/distribution analysis.
package smartmoney

import (
	"whalescope/internal/types"
)

const epsilon = 1e-9

// ma7 returns the 7-day moving average of vals, computed only where a full
// window exists. The result has len(vals)-6 entries; nil when vals is too
// short.
func ma7(vals []float64) []float64 {
	const window = 7
	if len(vals) < window {
		return nil
	}
	out := make([]float64, 0, len(vals)-window+1)
	sum := 0.0
	for i, v := range vals {
		sum += v
		if i >= window {
			sum -= vals[i-window]
		}
		if i >= window-1 {
			out = append(out, sum/window)
		}
	}
	return out
}

// netflowSlope is the week-over-week change of the smoothed netflow. It
// needs at least 14 days of flows to compare two full windows; otherwise 0.
func netflowSlope(netflows []float64) float64 {
	if len(netflows) < 14 {
		return 0
	}
	ma := ma7(netflows)
	return ma[len(ma)-1] - ma[len(ma)-7]
}

// weeklyPriceChange is the absolute close change over the last week, 0 when
// fewer than 7 closes are available.
func weeklyPriceChange(closes []float64) float64 {
	if len(closes) < 7 {
		return 0
	}
	return closes[len(closes)-1] - closes[len(closes)-7]
}

// Classify maps the netflow trend and the price trend onto a phase:
//
//	flows rising, price falling  -> Accumulation (whales buying the dip)
//	flows rising, price rising   -> Markup
//	flows falling, price rising  -> Distribution (whales selling the rally)
//	flows falling, price falling -> Markdown
//
// Anything on a zero axis is Neutral. No input at all is No Data.
func Classify(netflows, closes []float64) types.Phase {
	if len(netflows) == 0 || len(closes) == 0 {
		return types.PhaseNoData
	}

	slope := netflowSlope(netflows)
	priceChange := weeklyPriceChange(closes)

	switch {
	case slope > 0 && priceChange < 0:
		return types.PhaseAccumulation
	case slope > 0 && priceChange > 0:
		return types.PhaseMarkup
	case slope < 0 && priceChange > 0:
		return types.PhaseDistribution
	case slope < 0 && priceChange < 0:
		return types.PhaseMarkdown
	}
	return types.PhaseNeutral
}
