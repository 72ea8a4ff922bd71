package whale

import (
	"testing"

	"whalescope/internal/types"
)

func seriesFromVolumes(volumes []float64, closes []float64) types.CandleSeries {
	s := types.CandleSeries{}
	for i := range volumes {
		s.Dates = append(s.Dates, "2025-01-0"+string(rune('1'+i%9)))
		s.Open = append(s.Open, closes[i])
		s.High = append(s.High, closes[i])
		s.Low = append(s.Low, closes[i])
		s.Close = append(s.Close, closes[i])
		s.Volume = append(s.Volume, volumes[i])
	}
	return s
}

func TestDetectTieredEmptyInput(t *testing.T) {
	signals := DetectTiered(types.CandleSeries{}, "ETH", 7)
	if signals == nil {
		t.Fatal("Expected empty slice, got nil")
	}
	if len(signals) != 0 {
		t.Errorf("Expected 0 signals for empty input, got %d", len(signals))
	}
}

func TestDetectTieredSpikeIntensity(t *testing.T) {
	// Six flat days then one day at well over 2x the rolling mean.
	volumes := []float64{100, 100, 100, 100, 100, 100, 500}
	closes := []float64{10, 10, 10, 10, 10, 10, 12}
	s := seriesFromVolumes(volumes, closes)

	signals := DetectTiered(s, "ETH", 7)
	if len(signals) != 1 {
		t.Fatalf("Expected 1 signal, got %d", len(signals))
	}

	sig := signals[0]
	if sig.Intensity != 5 {
		t.Errorf("Expected intensity 5, got %d", sig.Intensity)
	}
	if sig.Status != types.StatusBuy {
		t.Errorf("Expected buy signal on an up close, got %s", sig.Status)
	}
	if sig.InputUSD != 500 || sig.OutputUSD != 0 {
		t.Errorf("Expected input 500 / output 0, got %f / %f", sig.InputUSD, sig.OutputUSD)
	}
	if sig.NetFlow != 500 {
		t.Errorf("Expected net flow 500, got %f", sig.NetFlow)
	}
}

func TestDetectTieredDownDayIsSell(t *testing.T) {
	volumes := []float64{100, 100, 100, 100, 100, 100, 500}
	closes := []float64{10, 10, 10, 10, 10, 10, 8}
	s := seriesFromVolumes(volumes, closes)

	signals := DetectTiered(s, "ETH", 7)
	if len(signals) != 1 {
		t.Fatalf("Expected 1 signal, got %d", len(signals))
	}
	if signals[0].Status != types.StatusSell {
		t.Errorf("Expected sell signal on a down close, got %s", signals[0].Status)
	}
	if signals[0].NetFlow != -500 {
		t.Errorf("Expected net flow -500, got %f", signals[0].NetFlow)
	}
}

func TestDetectTieredFlatVolumeNoSignals(t *testing.T) {
	// Perfectly flat volume never exceeds its own rolling mean.
	volumes := []float64{100, 100, 100, 100, 100, 100, 100, 100}
	closes := []float64{10, 11, 12, 11, 10, 11, 12, 13}
	s := seriesFromVolumes(volumes, closes)

	signals := DetectTiered(s, "ETH", 7)
	if len(signals) != 0 {
		t.Errorf("Expected 0 signals for flat volume, got %d", len(signals))
	}
}

func TestDetectTieredShortSeries(t *testing.T) {
	// Two days only: the rolling window shrinks instead of producing NaN.
	volumes := []float64{100, 400}
	closes := []float64{10, 11}
	s := seriesFromVolumes(volumes, closes)

	signals := DetectTiered(s, "ETH", 7)
	if len(signals) != 1 {
		t.Fatalf("Expected 1 signal on a short series, got %d", len(signals))
	}
	// mean of [100,400] = 250, 400 > 250*1.50 but not > 250*1.75
	if signals[0].Intensity != 3 {
		t.Errorf("Expected intensity 3, got %d", signals[0].Intensity)
	}
}

func TestDetectTieredIdempotent(t *testing.T) {
	volumes := []float64{100, 120, 90, 100, 100, 110, 500}
	closes := []float64{10, 11, 10, 10, 11, 12, 14}
	s := seriesFromVolumes(volumes, closes)

	first := DetectTiered(s, "ETH", 7)
	second := DetectTiered(s, "ETH", 7)

	if len(first) != len(second) {
		t.Fatalf("Expected identical signal counts, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Signal %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestDetectFlowAnomaly(t *testing.T) {
	rows := []types.FlowRow{
		{Date: "2025-01-01", InflowUSD: 50, OutflowUSD: 50},
		{Date: "2025-01-02", InflowUSD: 50, OutflowUSD: 50},
		{Date: "2025-01-03", InflowUSD: 50, OutflowUSD: 50},
		{Date: "2025-01-04", InflowUSD: 400, OutflowUSD: 100},
	}

	signals := DetectFlowAnomaly(rows, "BTC", 2.0, 7)
	if len(signals) != 1 {
		t.Fatalf("Expected 1 signal, got %d", len(signals))
	}

	sig := signals[0]
	if sig.Status != types.StatusNetInflow {
		t.Errorf("Expected net_inflow, got %s", sig.Status)
	}
	if sig.NetFlow != 300 {
		t.Errorf("Expected net flow 300, got %f", sig.NetFlow)
	}
	if sig.Timestamp != "2025-01-04" {
		t.Errorf("Expected timestamp 2025-01-04, got %s", sig.Timestamp)
	}
}

func TestDetectFlowAnomalyNetOutflow(t *testing.T) {
	rows := []types.FlowRow{
		{Date: "2025-01-01", InflowUSD: 50, OutflowUSD: 50},
		{Date: "2025-01-02", InflowUSD: 50, OutflowUSD: 50},
		{Date: "2025-01-03", InflowUSD: 100, OutflowUSD: 400},
	}

	signals := DetectFlowAnomaly(rows, "BTC", 2.0, 7)
	if len(signals) != 1 {
		t.Fatalf("Expected 1 signal, got %d", len(signals))
	}
	if signals[0].Status != types.StatusNetOutflow {
		t.Errorf("Expected net_outflow, got %s", signals[0].Status)
	}
}

func TestDetectFlowAnomalySensitivity(t *testing.T) {
	rows := []types.FlowRow{
		{Date: "2025-01-01", InflowUSD: 50, OutflowUSD: 50},
		{Date: "2025-01-02", InflowUSD: 50, OutflowUSD: 50},
		{Date: "2025-01-03", InflowUSD: 120, OutflowUSD: 60},
	}

	// 180 vs mean ~126.7: above 1.2x, below 2.0x.
	strict := DetectFlowAnomaly(rows, "BTC", 2.0, 7)
	if len(strict) != 0 {
		t.Errorf("Expected 0 signals at 2.0x, got %d", len(strict))
	}
	loose := DetectFlowAnomaly(rows, "BTC", 1.2, 7)
	if len(loose) != 1 {
		t.Errorf("Expected 1 signal at 1.2x, got %d", len(loose))
	}
}

func TestDetectPriceDirection(t *testing.T) {
	s := types.CandleSeries{
		Dates:  []string{"2025-01-01", "2025-01-02", "2025-01-03"},
		Open:   []float64{10, 10, 10},
		High:   []float64{11, 11, 15},
		Low:    []float64{9, 9, 9},
		Close:  []float64{10, 10, 14},
		Volume: []float64{100, 100, 600},
	}

	signals := DetectPriceDirection(s, "BTC", 1.8, 14, 5)
	if len(signals) != 1 {
		t.Fatalf("Expected 1 signal, got %d", len(signals))
	}

	sig := signals[0]
	if sig.Status != types.StatusWhaleBuy {
		t.Errorf("Expected whale_buy, got %s", sig.Status)
	}
	// USD value is volume * close.
	if sig.InputUSD != 600*14 {
		t.Errorf("Expected input USD %f, got %f", 600.0*14, sig.InputUSD)
	}
}

func TestDetectPriceDirectionNeutralFallback(t *testing.T) {
	// Flat volume: nothing qualifies, the last rows come back neutral.
	s := types.CandleSeries{
		Dates:  []string{"2025-01-01", "2025-01-02", "2025-01-03"},
		Open:   []float64{10, 10, 10},
		High:   []float64{11, 11, 11},
		Low:    []float64{9, 9, 9},
		Close:  []float64{10, 10, 10},
		Volume: []float64{100, 100, 100},
	}

	signals := DetectPriceDirection(s, "BTC", 1.8, 14, 5)
	if len(signals) != 3 {
		t.Fatalf("Expected 3 fallback signals, got %d", len(signals))
	}
	for _, sig := range signals {
		if sig.Status != types.StatusNeutral {
			t.Errorf("Expected neutral fallback, got %s", sig.Status)
		}
		usd := 100.0 * 10.0
		if sig.InputUSD != usd*0.6 || sig.OutputUSD != usd*0.4 {
			t.Errorf("Expected 60/40 split of %f, got %f / %f", usd, sig.InputUSD, sig.OutputUSD)
		}
		if sig.NetFlow != usd*0.2 {
			t.Errorf("Expected net flow %f, got %f", usd*0.2, sig.NetFlow)
		}
	}
}

func TestDetectPriceDirectionFallbackDisabled(t *testing.T) {
	s := types.CandleSeries{
		Dates:  []string{"2025-01-01", "2025-01-02"},
		Open:   []float64{10, 10},
		High:   []float64{11, 11},
		Low:    []float64{9, 9},
		Close:  []float64{10, 10},
		Volume: []float64{100, 100},
	}

	signals := DetectPriceDirection(s, "BTC", 1.8, 14, 0)
	if len(signals) != 0 {
		t.Errorf("Expected 0 signals with fallback disabled, got %d", len(signals))
	}
}

func TestMergeOrdersByTimestamp(t *testing.T) {
	tiered := []types.FlowSignal{
		{Timestamp: "2025-01-03", Symbol: "SOL", Status: types.StatusBuy},
		{Timestamp: "2025-01-05", Symbol: "SOL", Status: types.StatusSell},
	}
	anomalies := []types.FlowSignal{
		{Timestamp: "2025-01-02", Symbol: "SOL", Status: types.StatusNetInflow},
		{Timestamp: "2025-01-03", Symbol: "SOL", Status: types.StatusNetOutflow},
	}

	merged := Merge(tiered, anomalies)
	if len(merged) != 4 {
		t.Fatalf("Expected 4 merged signals, got %d", len(merged))
	}
	want := []string{"2025-01-02", "2025-01-03", "2025-01-03", "2025-01-05"}
	for i, ts := range want {
		if merged[i].Timestamp != ts {
			t.Errorf("Signal %d: expected timestamp %s, got %s", i, ts, merged[i].Timestamp)
		}
	}
	// Same-day tie keeps the first argument's signal first.
	if merged[1].Status != types.StatusBuy {
		t.Errorf("Expected tiered signal first on shared day, got %s", merged[1].Status)
	}
}

func TestMergeEmptyInputs(t *testing.T) {
	merged := Merge(nil, []types.FlowSignal{})
	if merged == nil {
		t.Fatal("Expected empty slice, got nil")
	}
	if len(merged) != 0 {
		t.Errorf("Expected 0 signals, got %d", len(merged))
	}
}
