package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"whalescope/internal/api"
	"whalescope/internal/logger"
	"whalescope/internal/types"
)

const alliumBaseURL = "https://api.allium.so/api/v1/explorer"

// AlliumClient runs saved Allium explorer queries. Allium queries execute
// asynchronously: run-async returns a run_id, the run is polled until it
// succeeds, then results are fetched.
type AlliumClient struct {
	client   *api.Client
	apiKey   string
	pollWait time.Duration
	maxPolls int
}

func NewAlliumClient(apiKey string) *AlliumClient {
	return &AlliumClient{
		client: api.NewClient(
			api.WithBaseURL(alliumBaseURL),
			api.WithTimeout(60*time.Second),
		),
		apiKey:   apiKey,
		pollWait: time.Second,
		maxPolls: 30,
	}
}

// runQuery executes a saved query end to end and returns the raw result rows.
func (a *AlliumClient) runQuery(ctx context.Context, queryID, startDate, endDate string) ([]map[string]interface{}, error) {
	if a.apiKey == "" || queryID == "" {
		return nil, fmt.Errorf("allium: missing API key or query ID")
	}

	headers := api.AlliumHeaders(a.apiKey)

	if err := limiters.Wait(ctx, sourceAllium); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"parameters": map[string]string{"start_date": startDate, "end_date": endDate},
		"run_config": map[string]int{"limit": 10000},
	}
	resp, err := a.client.POST(ctx, "/queries/"+queryID+"/run-async", payload, headers)
	if err != nil {
		return nil, fmt.Errorf("allium run-async: %w", err)
	}

	var run struct {
		RunID string `json:"run_id"`
	}
	if err := resp.ParseJSON(&run); err != nil {
		return nil, fmt.Errorf("allium run-async decode: %w", err)
	}
	if run.RunID == "" {
		return nil, fmt.Errorf("allium run-async: no run_id returned")
	}

	statusPath := "/query-runs/" + run.RunID
	for i := 0; i < a.maxPolls; i++ {
		resp, err := a.client.GET(ctx, statusPath, headers)
		if err != nil {
			return nil, fmt.Errorf("allium poll: %w", err)
		}
		var st struct {
			Status string `json:"status"`
		}
		if err := resp.ParseJSON(&st); err != nil {
			return nil, fmt.Errorf("allium poll decode: %w", err)
		}
		if st.Status == "success" {
			break
		}
		if st.Status == "failed" {
			return nil, fmt.Errorf("allium run %s failed", run.RunID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.pollWait):
		}
	}

	resp, err = a.client.GET(ctx, statusPath+"/results", headers)
	if err != nil {
		return nil, fmt.Errorf("allium results: %w", err)
	}

	var results struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := resp.ParseJSON(&results); err != nil {
		return nil, fmt.Errorf("allium results decode: %w", err)
	}

	return results.Data, nil
}

// FetchStakingActivity runs the stakers query and normalizes ETH rows,
// sorted chronologically. Rows for other chains are dropped.
func (a *AlliumClient) FetchStakingActivity(ctx context.Context, queryID, startDate, endDate string) ([]types.StakingActivity, error) {
	data, err := a.runQuery(ctx, queryID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	var rows []types.StakingActivity
	for _, row := range data {
		chain := strings.ToLower(rowString(row, "chain_raw"))
		if chain == "" {
			chain = strings.ToLower(rowString(row, "chain"))
		}
		if chain != "eth" && chain != "ethereum" {
			continue
		}
		rows = append(rows, types.StakingActivity{
			ActivityDate:            dateOnly(rowString(row, "activity_date")),
			Chain:                   "ethereum",
			TokenPriceAtDate:        rowFloat(row, "token_price_at_date"),
			TokenPriceCurrent:       rowFloat(row, "token_price_current"),
			TotalStake:              rowFloat(row, "total_stake"),
			ActiveStake:             rowFloat(row, "active_stake"),
			ActiveStakeUSD:          rowFloat(row, "active_stake_usd"),
			CirculatingSupplyUSD:    rowFloat(row, "circulating_supply_usd"),
			TotalStakeUSDCurrent:    rowFloat(row, "total_stake_usd_current"),
			ActiveStakeUSDCurrent:   rowFloat(row, "active_stake_usd_current"),
			PctTotalStakeActive:     rowFloat(row, "pct_total_stake_active"),
			PctCirculatingStakedEst: rowFloat(row, "pct_circulating_staked_est"),
			DailyNetStake:           rowFloat(row, "daily_net_stake"),
			DepositsEstETH:          rowFloat(row, "deposits_est_eth"),
			WithdrawalsEstETH:       rowFloat(row, "withdrawals_est_eth"),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].ActivityDate < rows[j].ActivityDate })

	logger.Info(ctx, "Allium staking activity fetched", "rows", len(rows))
	return rows, nil
}

// FetchStakingEntities runs the entities query and normalizes per-operator
// deposit/withdrawal rows.
func (a *AlliumClient) FetchStakingEntities(ctx context.Context, queryID, startDate, endDate string) ([]types.StakingEntity, error) {
	data, err := a.runQuery(ctx, queryID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	var rows []types.StakingEntity
	for _, row := range data {
		rows = append(rows, types.StakingEntity{
			ActivityDate: dateOnly(rowString(row, "activity_date")),
			Entity:       rowString(row, "entity"),
			Staked:       rowFloat(row, "deposits_eth"),
			Unstaked:     rowFloat(row, "withdrawals_eth"),
			NetFlow:      rowFloat(row, "net_flow_eth"),
		})
	}

	logger.Info(ctx, "Allium staking entities fetched", "rows", len(rows))
	return rows, nil
}

func rowString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func rowFloat(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

// dateOnly strips the time component from an ISO timestamp.
func dateOnly(ts string) string {
	if i := strings.IndexByte(ts, 'T'); i >= 0 {
		return ts[:i]
	}
	return ts
}
