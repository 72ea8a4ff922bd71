package whale

import (
	"sort"

	"whalescope/internal/ta"
	"whalescope/internal/types"
)

// Merge combines signal sets from different detectors into one slice ordered
// by timestamp. Within a day the argument order is preserved.
func Merge(sets ...[]types.FlowSignal) []types.FlowSignal {
	merged := []types.FlowSignal{}
	for _, set := range sets {
		merged = append(merged, set...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}

// Intensity tiers, checked highest first. A day at 2x the rolling mean
// volume scores 5, a day barely above the mean scores 1.
var tiers = []struct {
	mult float64
	size int
}{
	{2.00, 5},
	{1.75, 4},
	{1.50, 3},
	{1.25, 2},
	{1.00, 1},
}

// DetectTiered flags volume spikes against a rolling mean and grades them
// into five intensity tiers. Direction comes from the close-to-close move:
// a day closing above the prior close counts its volume as buying, below as
// selling. One signal is emitted per qualifying day for the dominant side.
// Malformed or empty input yields an empty slice, never an error.
func DetectTiered(series types.CandleSeries, symbol string, lookback int) []types.FlowSignal {
	if series.Len() == 0 || len(series.Volume) != series.Len() || len(series.Close) != series.Len() {
		return []types.FlowSignal{}
	}
	if lookback <= 0 {
		lookback = 7
	}

	smaVol := ta.RollingMean(series.Volume, lookback)
	signals := []types.FlowSignal{}

	for i := 0; i < series.Len(); i++ {
		vol := series.Volume[i]

		size := 0
		for _, t := range tiers {
			if vol > smaVol[i]*t.mult {
				size = t.size
				break
			}
		}
		if size == 0 {
			continue
		}

		// First bar has no prior close, so buyerVol and sellerVol are
		// both zero and the day reads as a sell.
		buyerVol, sellerVol := 0.0, 0.0
		if i > 0 {
			if series.Close[i] > series.Close[i-1] {
				buyerVol = vol
			} else if series.Close[i] < series.Close[i-1] {
				sellerVol = vol
			}
		}

		sig := types.FlowSignal{
			Timestamp: series.Dates[i],
			Symbol:    symbol,
			Intensity: size,
		}
		if buyerVol > sellerVol {
			sig.Status = types.StatusBuy
			sig.InputUSD = vol
			sig.NetFlow = vol
		} else {
			sig.Status = types.StatusSell
			sig.OutputUSD = vol
			sig.NetFlow = -vol
		}
		signals = append(signals, sig)
	}

	return signals
}

// DetectFlowAnomaly flags days whose combined inflow+outflow volume exceeds
// multiplier times the trailing mean. Status reflects the sign of the net
// flow on the flagged day.
func DetectFlowAnomaly(rows []types.FlowRow, symbol string, multiplier float64, lookback int) []types.FlowSignal {
	if len(rows) == 0 {
		return []types.FlowSignal{}
	}
	if multiplier <= 0 {
		multiplier = 2.0
	}
	if lookback <= 0 {
		lookback = 7
	}

	volumes := make([]float64, len(rows))
	for i, r := range rows {
		volumes[i] = r.InflowUSD + r.OutflowUSD
	}
	smaVol := ta.RollingMean(volumes, lookback)

	signals := []types.FlowSignal{}
	for i, r := range rows {
		if volumes[i] <= smaVol[i]*multiplier {
			continue
		}
		net := r.InflowUSD - r.OutflowUSD
		status := types.StatusNetOutflow
		if net > 0 {
			status = types.StatusNetInflow
		}
		signals = append(signals, types.FlowSignal{
			Timestamp: r.Date,
			InputUSD:  r.InflowUSD,
			OutputUSD: r.OutflowUSD,
			NetFlow:   net,
			Status:    status,
			Symbol:    symbol,
		})
	}

	return signals
}

// DetectPriceDirection flags high-volume days whose candle direction (close
// vs open) is unambiguous, valuing each in USD at the close. When nothing
// qualifies, the last fallbackDays rows are emitted as neutral reference
// signals with a fixed 60/40 inflow split; fallbackDays of 0 disables the
// fallback.
func DetectPriceDirection(series types.CandleSeries, symbol string, multiplier float64, lookback, fallbackDays int) []types.FlowSignal {
	if series.Len() == 0 || len(series.Open) != series.Len() || len(series.Close) != series.Len() || len(series.Volume) != series.Len() {
		return []types.FlowSignal{}
	}
	if multiplier <= 0 {
		multiplier = 1.8
	}
	if lookback <= 0 {
		lookback = 14
	}

	smaVol := ta.RollingMean(series.Volume, lookback)
	signals := []types.FlowSignal{}

	for i := 0; i < series.Len(); i++ {
		vol := series.Volume[i]
		if vol <= smaVol[i]*multiplier {
			continue
		}

		var status types.FlowStatus
		switch {
		case series.Close[i] > series.Open[i]:
			status = types.StatusWhaleBuy
		case series.Close[i] < series.Open[i]:
			status = types.StatusWhaleSell
		default:
			continue
		}

		usd := vol * series.Close[i]
		sig := types.FlowSignal{
			Timestamp: series.Dates[i],
			Status:    status,
			Symbol:    symbol,
		}
		if status == types.StatusWhaleBuy {
			sig.InputUSD = usd
			sig.NetFlow = usd
		} else {
			sig.OutputUSD = usd
			sig.NetFlow = -usd
		}
		signals = append(signals, sig)
	}

	if len(signals) == 0 && fallbackDays > 0 {
		start := series.Len() - fallbackDays
		if start < 0 {
			start = 0
		}
		for i := start; i < series.Len(); i++ {
			usd := series.Volume[i] * series.Close[i]
			signals = append(signals, types.FlowSignal{
				Timestamp: series.Dates[i],
				InputUSD:  usd * 0.6,
				OutputUSD: usd * 0.4,
				NetFlow:   usd * 0.2,
				Status:    types.StatusNeutral,
				Symbol:    symbol,
			})
		}
	}

	return signals
}

// TableRows reduces signals to the simplified rows the whale activity table
// renders.
func TableRows(signals []types.FlowSignal) []types.WhaleTableRow {
	rows := make([]types.WhaleTableRow, 0, len(signals))
	for _, s := range signals {
		rows = append(rows, types.WhaleTableRow{
			Date:      s.Timestamp,
			InputUSD:  s.InputUSD,
			OutputUSD: s.OutputUSD,
			Status:    s.Status,
		})
	}
	return rows
}
