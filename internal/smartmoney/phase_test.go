package smartmoney

import (
	"testing"

	"whalescope/internal/types"
)

// ramp builds a 14-day series trending by step per day from start.
func ramp(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestClassifyNoData(t *testing.T) {
	if got := Classify(nil, nil); got != types.PhaseNoData {
		t.Errorf("Expected No Data for empty input, got %s", got)
	}
	if got := Classify([]float64{1}, nil); got != types.PhaseNoData {
		t.Errorf("Expected No Data with no closes, got %s", got)
	}
}

func TestClassifyQuadrants(t *testing.T) {
	risingFlows := ramp(0, 100, 14)
	fallingFlows := ramp(0, -100, 14)
	risingPrice := ramp(100, 1, 14)
	fallingPrice := ramp(100, -1, 14)

	cases := []struct {
		name     string
		netflows []float64
		closes   []float64
		want     types.Phase
	}{
		{"rising flows falling price", risingFlows, fallingPrice, types.PhaseAccumulation},
		{"rising flows rising price", risingFlows, risingPrice, types.PhaseMarkup},
		{"falling flows rising price", fallingFlows, risingPrice, types.PhaseDistribution},
		{"falling flows falling price", fallingFlows, fallingPrice, types.PhaseMarkdown},
	}

	for _, tc := range cases {
		if got := Classify(tc.netflows, tc.closes); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestClassifyShortHistoryIsNeutral(t *testing.T) {
	// Under 14 days of flows the slope is 0, so no quadrant matches.
	netflows := ramp(0, 100, 10)
	closes := ramp(100, -1, 10)

	if got := Classify(netflows, closes); got != types.PhaseNeutral {
		t.Errorf("Expected Neutral on short history, got %s", got)
	}
}

func TestClassifyFlatPriceIsNeutral(t *testing.T) {
	netflows := ramp(0, 100, 14)
	closes := ramp(100, 0, 14)

	if got := Classify(netflows, closes); got != types.PhaseNeutral {
		t.Errorf("Expected Neutral on flat price, got %s", got)
	}
}

func TestScoreEmptyFlows(t *testing.T) {
	if got := Score(nil, ramp(100, 1, 30), 3, DefaultWeights()); got != 50 {
		t.Errorf("Expected neutral score 50 for empty flows, got %d", got)
	}
}

func TestScoreBounds(t *testing.T) {
	cases := [][2][]float64{
		{ramp(0, 1e9, 30), ramp(100, 50, 30)},   // extreme bullish
		{ramp(0, -1e9, 30), ramp(100, -3, 30)},  // extreme bearish
		{ramp(0, 0, 30), ramp(100, 0, 30)},      // flat
	}

	for i, c := range cases {
		for _, whales := range []int{0, 10, 500} {
			got := Score(c[0], c[1], whales, DefaultWeights())
			if got < 0 || got > 100 {
				t.Errorf("case %d whales %d: score %d out of [0,100]", i, whales, got)
			}
		}
	}
}

func TestScoreWhaleComponentCaps(t *testing.T) {
	netflows := ramp(0, 0, 30)
	closes := ramp(100, 0, 30)

	// Flat trends pin slope and price components at 50 each; whale
	// component saturates at 20 whales.
	at20 := Score(netflows, closes, 20, DefaultWeights())
	at100 := Score(netflows, closes, 100, DefaultWeights())
	if at20 != at100 {
		t.Errorf("Expected whale component to cap: got %d at 20 whales, %d at 100", at20, at100)
	}

	none := Score(netflows, closes, 0, DefaultWeights())
	if none >= at20 {
		t.Errorf("Expected more whales to raise the score: %d vs %d", none, at20)
	}
}

func TestScoreBullishBeatsBearish(t *testing.T) {
	closesUp := ramp(100, 2, 30)
	closesDown := ramp(100, -2, 30)

	bullish := Score(ramp(0, 100, 30), closesUp, 5, DefaultWeights())
	bearish := Score(ramp(0, -100, 30), closesDown, 5, DefaultWeights())

	if bullish <= bearish {
		t.Errorf("Expected bullish score above bearish, got %d vs %d", bullish, bearish)
	}
}
