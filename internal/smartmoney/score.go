package smartmoney

import (
	"math"

	"whalescope/internal/ta"
)

// Weights blends the three score components. They must sum to 1.0, which
// config validation enforces.
type Weights struct {
	Slope float64
	Price float64
	Whale float64
}

// DefaultWeights matches the standard 45/35/20 blend.
func DefaultWeights() Weights {
	return Weights{Slope: 0.45, Price: 0.35, Whale: 0.20}
}

// Score produces a 0..100 accumulation score from the netflow trend, the
// price trend, and the count of whale signals in the window. Each component
// is normalized by its own dispersion so assets of very different sizes
// score on the same scale. No flow data at all scores a neutral 50.
func Score(netflows, closes []float64, whaleCount int, w Weights) int {
	if len(netflows) == 0 {
		return 50
	}

	slope := netflowSlope(netflows)
	priceChange := weeklyPriceChange(closes)

	slopeScore := ta.Clamp(slope/(math.Abs(ta.Std(ma7(netflows)))+epsilon)*50+50, 0, 100)
	priceScore := ta.Clamp(priceChange/(math.Abs(ta.Std(closes))+epsilon)*40+50, 0, 100)
	whaleScore := math.Min(float64(whaleCount)*5, 100)

	total := slopeScore*w.Slope + priceScore*w.Price + whaleScore*w.Whale
	return int(math.Round(total))
}
