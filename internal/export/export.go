// Package export renders persisted rows as CSV or JSON for download and for
// the CLI --format flag.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"whalescope/internal/types"
)

// StakingColumns is the column order of the staking CSV export.
var StakingColumns = []string{
	"symbol", "activity_date",
	"total_stake", "active_stake", "active_stake_usd_current",
	"pct_total_stake_active", "pct_circulating_staked_est",
	"token_price", "net_flow", "deposits_est", "withdrawals_est",
}

// WriteStakingCSV writes staking rows with a header line.
func WriteStakingCSV(out io.Writer, rows []types.StakingRow) error {
	w := csv.NewWriter(out)
	if err := w.Write(StakingColumns); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Symbol,
			r.ActivityDate,
			ftoa(r.TotalStake),
			ftoa(r.ActiveStake),
			ftoa(r.ActiveStakeUSDCurrent),
			ftoa(r.PctTotalStakeActive),
			ftoa(r.PctCirculatingStakedEst),
			ftoa(r.TokenPrice),
			ftoa(r.NetFlow),
			ftoa(r.DepositsEst),
			ftoa(r.WithdrawalsEst),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WhaleColumns is the column order of the whale-signal CSV export.
var WhaleColumns = []string{
	"symbol", "timestamp", "input_usd", "output_usd", "net_flow", "status", "intensity",
}

// WriteWhaleCSV writes whale signals with a header line.
func WriteWhaleCSV(out io.Writer, signals []types.FlowSignal) error {
	w := csv.NewWriter(out)
	if err := w.Write(WhaleColumns); err != nil {
		return err
	}
	for _, s := range signals {
		rec := []string{
			s.Symbol,
			s.Timestamp,
			ftoa(s.InputUSD),
			ftoa(s.OutputUSD),
			ftoa(s.NetFlow),
			string(s.Status),
			strconv.Itoa(s.Intensity),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
