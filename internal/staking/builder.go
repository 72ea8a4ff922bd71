// Package staking builds the ETH staking report from persisted Allium data
// and keeps that data in sync.
package staking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"whalescope/internal/db"
	"whalescope/internal/types"
)

// Snapshot is the most recent staking state.
type Snapshot struct {
	ActivityDate            string  `json:"activity_date"`
	TotalStake              float64 `json:"total_stake"`
	ActiveStake             float64 `json:"active_stake"`
	PctTotalStakeActive     float64 `json:"pct_total_stake_active"`
	PctCirculatingStakedEst float64 `json:"pct_circulating_staked_est"`
}

// Timeseries is the bucketed activity history. Granularity tells the chart
// layer how the dates are spaced.
type Timeseries struct {
	Dates                []string  `json:"dates"`
	TotalStake           []float64 `json:"total_stake"`
	ActiveStake          []float64 `json:"active_stake"`
	PctTotalStakeActive  []float64 `json:"pct_total_stake_active"`
	PctCirculatingStaked []float64 `json:"pct_circulating_staked"`
	DailyNetStake        []float64 `json:"daily_net_stake"`
	DepositsEstETH       []float64 `json:"deposits_est_eth"`
	WithdrawalsEstETH    []float64 `json:"withdrawals_est_eth"`
	Granularity          string    `json:"granularity"`
}

// Flows pairs deposit and withdrawal series.
type Flows struct {
	Dates    []string  `json:"dates"`
	Inflows  []float64 `json:"inflows"`
	Outflows []float64 `json:"outflows"`
}

// Breakdown is the top-operators pie: top ten by stake plus an Others bucket.
type Breakdown struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// MarketshareSeries is one operator's share-of-stake percentage over time.
type MarketshareSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Marketshare covers the last 30 entity dates.
type Marketshare struct {
	Dates  []string            `json:"dates"`
	Series []MarketshareSeries `json:"series"`
}

// Event is one recent staking period's deposits and withdrawals.
type Event struct {
	Date     string  `json:"date"`
	Staked   float64 `json:"staked"`
	Unstaked float64 `json:"unstaked"`
}

// Report is the full staking payload for the ETH view.
type Report struct {
	Latest              *Snapshot             `json:"latest"`
	Series              Timeseries            `json:"series"`
	StakingFlows        Flows                 `json:"staking_flows"`
	StakersChange       types.Series          `json:"stakers_change"`
	Entities            []types.StakingEntity `json:"entities"`
	Deposits            types.Series          `json:"deposits"`
	Withdrawals         types.Series          `json:"withdrawals"`
	StakedOverTime      types.Series          `json:"staked_over_time"`
	StakedBreakdown     Breakdown             `json:"staked_breakdown"`
	Marketshare         Marketshare           `json:"marketshare"`
	RecentEvents        []Event               `json:"recent_events"`
	BreakdownByCategory map[string]float64    `json:"breakdown_by_category"`
	Chain               *ChainStats           `json:"chain,omitempty"`
}

// Granularity picks the bucketing for a date range: daily up to 90 days,
// weekly up to a year, monthly beyond that.
func Granularity(startDate, endDate string) (string, error) {
	d0, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return "", fmt.Errorf("parse start date: %w", err)
	}
	d1, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return "", fmt.Errorf("parse end date: %w", err)
	}

	days := int(d1.Sub(d0).Hours() / 24)
	switch {
	case days <= 90:
		return "day", nil
	case days <= 365:
		return "week", nil
	default:
		return "month", nil
	}
}

var categories = []struct {
	name     string
	keywords []string
}{
	{"Liquid Staking Participants", []string{"lido", "rocket"}},
	{"CEX Participants", []string{"binance", "coinbase", "kraken", "okx", "huobi"}},
	{"Restaking Participants", []string{"eigen"}},
	{"Staking Pools Participants", nil},
}

func categorize(entity string) string {
	name := strings.ToLower(entity)
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(name, kw) {
				return c.name
			}
		}
	}
	return "Staking Pools Participants"
}

// BuildReport assembles the staking report from the database for a date
// range. An empty activity range yields a nil report, not an error.
func BuildReport(ctx context.Context, database *db.DB, startDate, endDate string) (*Report, error) {
	granularity, err := Granularity(startDate, endDate)
	if err != nil {
		return nil, err
	}

	buckets, err := database.AggregateActivity(ctx, startDate, endDate, granularity)
	if err != nil {
		return nil, fmt.Errorf("read staking activity: %w", err)
	}
	if len(buckets) == 0 {
		return nil, nil
	}

	entities, err := database.EntityRows(ctx, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("read staking entities: %w", err)
	}

	r := &Report{Entities: entities}

	dates := make([]string, len(buckets))
	ts := Timeseries{Granularity: granularity}
	for i, b := range buckets {
		dates[i] = b.Period
		ts.TotalStake = append(ts.TotalStake, b.TotalStake)
		ts.ActiveStake = append(ts.ActiveStake, b.ActiveStake)
		ts.PctTotalStakeActive = append(ts.PctTotalStakeActive, b.PctActive)
		ts.PctCirculatingStaked = append(ts.PctCirculatingStaked, b.PctCircStaked)
		ts.DailyNetStake = append(ts.DailyNetStake, b.DailyNetStake)
		ts.DepositsEstETH = append(ts.DepositsEstETH, b.Deposits)
		ts.WithdrawalsEstETH = append(ts.WithdrawalsEstETH, b.Withdrawals)
	}
	ts.Dates = dates
	r.Series = ts

	last := buckets[len(buckets)-1]
	r.Latest = &Snapshot{
		ActivityDate:            last.Period,
		TotalStake:              last.TotalStake,
		ActiveStake:             last.ActiveStake,
		PctTotalStakeActive:     last.PctActive,
		PctCirculatingStakedEst: last.PctCircStaked,
	}

	r.StakingFlows = Flows{Dates: dates, Inflows: ts.DepositsEstETH, Outflows: ts.WithdrawalsEstETH}
	r.StakersChange = types.Series{Dates: dates, Values: ts.DailyNetStake}
	r.Deposits = types.Series{Dates: dates, Values: ts.DepositsEstETH}
	r.Withdrawals = types.Series{Dates: dates, Values: ts.WithdrawalsEstETH}
	r.StakedOverTime = types.Series{Dates: dates, Values: ts.TotalStake}

	entityDates := entityDateSet(entities)
	r.StakedBreakdown = buildBreakdown(entities, entityDates)
	r.Marketshare = buildMarketshare(entities, entityDates)
	r.BreakdownByCategory = buildCategories(entities, entityDates)
	r.RecentEvents = buildRecentEvents(dates, ts.DepositsEstETH, ts.WithdrawalsEstETH)

	return r, nil
}

func entityDateSet(entities []types.StakingEntity) []string {
	set := map[string]struct{}{}
	for _, e := range entities {
		set[e.ActivityDate] = struct{}{}
	}
	dates := make([]string, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// buildBreakdown takes the most recent entity snapshot, keeps the ten
// largest stakers, and folds the rest into Others.
func buildBreakdown(entities []types.StakingEntity, entityDates []string) Breakdown {
	if len(entityDates) == 0 {
		return Breakdown{}
	}
	latest := entityDates[len(entityDates)-1]

	type pair struct {
		name  string
		stake float64
	}
	var sorted []pair
	for _, e := range entities {
		if e.ActivityDate == latest {
			sorted = append(sorted, pair{e.Entity, e.Staked})
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].stake > sorted[j].stake })

	b := Breakdown{}
	others := 0.0
	for i, p := range sorted {
		if i < 10 {
			b.Labels = append(b.Labels, p.name)
			b.Values = append(b.Values, p.stake)
		} else {
			others += p.stake
		}
	}
	if others > 0 {
		b.Labels = append(b.Labels, "Others")
		b.Values = append(b.Values, others)
	}
	return b
}

// buildMarketshare computes each operator's percent of total stake per date
// over the last 30 entity dates.
func buildMarketshare(entities []types.StakingEntity, entityDates []string) Marketshare {
	window := entityDates
	if len(window) > 30 {
		window = window[len(window)-30:]
	}
	ms := Marketshare{Dates: window}
	if len(entities) == 0 || len(window) == 0 {
		return ms
	}

	totals := map[string]float64{}
	for _, e := range entities {
		totals[e.ActivityDate] += e.Staked
	}

	windowIdx := map[string]int{}
	for i, d := range window {
		windowIdx[d] = i
	}

	shares := map[string][]float64{}
	var order []string
	for _, e := range entities {
		i, ok := windowIdx[e.ActivityDate]
		if !ok {
			continue
		}
		if _, seen := shares[e.Entity]; !seen {
			shares[e.Entity] = make([]float64, len(window))
			order = append(order, e.Entity)
		}
		if total := totals[e.ActivityDate]; total > 0 {
			shares[e.Entity][i] = e.Staked / total * 100.0
		}
	}

	for _, name := range order {
		ms.Series = append(ms.Series, MarketshareSeries{Name: name, Values: shares[name]})
	}
	return ms
}

func buildCategories(entities []types.StakingEntity, entityDates []string) map[string]float64 {
	out := map[string]float64{}
	if len(entityDates) == 0 {
		return out
	}
	latest := entityDates[len(entityDates)-1]
	for _, e := range entities {
		if e.ActivityDate == latest {
			out[categorize(e.Entity)] += e.Staked
		}
	}
	for _, c := range categories {
		if _, ok := out[c.name]; !ok {
			out[c.name] = 0
		}
	}
	return out
}

// buildRecentEvents keeps the last ten periods of deposit/withdrawal pairs.
func buildRecentEvents(dates []string, deposits, withdrawals []float64) []Event {
	start := len(dates) - 10
	if start < 0 {
		start = 0
	}
	events := make([]Event, 0, len(dates)-start)
	for i := start; i < len(dates); i++ {
		events = append(events, Event{Date: dates[i], Staked: deposits[i], Unstaked: withdrawals[i]})
	}
	return events
}
