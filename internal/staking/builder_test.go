package staking

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"whalescope/internal/db"
	"whalescope/internal/types"
)

func TestGranularityBoundaries(t *testing.T) {
	cases := []struct {
		start, end string
		want       string
	}{
		{"2025-01-01", "2025-01-31", "day"},
		{"2025-01-01", "2025-04-01", "day"},   // exactly 90 days
		{"2025-01-01", "2025-04-02", "week"},  // 91 days
		{"2024-06-01", "2025-06-01", "week"},  // exactly 365 days
		{"2024-06-01", "2025-06-02", "month"}, // 366 days
		{"2020-01-01", "2025-01-01", "month"},
	}

	for _, tc := range cases {
		got, err := Granularity(tc.start, tc.end)
		if err != nil {
			t.Fatalf("Granularity(%s, %s) failed: %v", tc.start, tc.end, err)
		}
		if got != tc.want {
			t.Errorf("Granularity(%s, %s): expected %s, got %s", tc.start, tc.end, tc.want, got)
		}
	}
}

func TestGranularityBadDate(t *testing.T) {
	if _, err := Granularity("not-a-date", "2025-01-01"); err == nil {
		t.Error("Expected error for malformed start date")
	}
}

func TestCategorize(t *testing.T) {
	cases := map[string]string{
		"Lido":            "Liquid Staking Participants",
		"Rocket Pool":     "Liquid Staking Participants",
		"Binance":         "CEX Participants",
		"Coinbase Cloud":  "CEX Participants",
		"EigenLayer":      "Restaking Participants",
		"Stakefish":       "Staking Pools Participants",
		"Unknown Whale 7": "Staking Pools Participants",
	}
	for entity, want := range cases {
		if got := categorize(entity); got != want {
			t.Errorf("categorize(%s): expected %s, got %s", entity, want, got)
		}
	}
}

func seedStakingDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "staking.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx := context.Background()

	var activity []types.StakingActivity
	for i := 1; i <= 20; i++ {
		activity = append(activity, types.StakingActivity{
			ActivityDate:        fmt.Sprintf("2025-01-%02d", i),
			Chain:               "ethereum",
			TotalStake:          30000000 + float64(i)*1000,
			ActiveStake:         29000000 + float64(i)*1000,
			PctTotalStakeActive: 96.5,
			DailyNetStake:       float64(i) * 100,
			DepositsEstETH:      float64(i) * 150,
			WithdrawalsEstETH:   float64(i) * 50,
		})
	}
	if err := d.UpsertEthActivity(ctx, activity); err != nil {
		t.Fatalf("Seed activity failed: %v", err)
	}

	// Twelve operators on the latest date so the breakdown needs Others.
	var entities []types.StakingEntity
	for i := 0; i < 12; i++ {
		entities = append(entities, types.StakingEntity{
			ActivityDate: "2025-01-20",
			Entity:       fmt.Sprintf("operator-%02d", i),
			Staked:       float64(1200 - i*100),
		})
	}
	entities = append(entities,
		types.StakingEntity{ActivityDate: "2025-01-19", Entity: "operator-00", Staked: 1100},
		types.StakingEntity{ActivityDate: "2025-01-19", Entity: "operator-01", Staked: 1100},
	)
	if err := d.UpsertEthEntities(ctx, entities); err != nil {
		t.Fatalf("Seed entities failed: %v", err)
	}

	return d
}

func TestBuildReport(t *testing.T) {
	d := seedStakingDB(t)
	ctx := context.Background()

	r, err := BuildReport(ctx, d, "2025-01-01", "2025-01-31")
	if err != nil {
		t.Fatalf("BuildReport failed: %v", err)
	}
	if r == nil {
		t.Fatal("Expected a report, got nil")
	}

	if r.Series.Granularity != "day" {
		t.Errorf("Expected day granularity, got %s", r.Series.Granularity)
	}
	if len(r.Series.Dates) != 20 {
		t.Errorf("Expected 20 daily buckets, got %d", len(r.Series.Dates))
	}
	if r.Latest == nil || r.Latest.ActivityDate != "2025-01-20" {
		t.Errorf("Expected latest snapshot on 2025-01-20, got %+v", r.Latest)
	}

	// Top 10 plus Others from 12 operators.
	if len(r.StakedBreakdown.Labels) != 11 {
		t.Fatalf("Expected 11 breakdown labels, got %d", len(r.StakedBreakdown.Labels))
	}
	if r.StakedBreakdown.Labels[0] != "operator-00" {
		t.Errorf("Expected largest staker first, got %s", r.StakedBreakdown.Labels[0])
	}
	if r.StakedBreakdown.Labels[10] != "Others" {
		t.Errorf("Expected Others bucket last, got %s", r.StakedBreakdown.Labels[10])
	}
	// Others holds operators 10 and 11: 200 + 100.
	if r.StakedBreakdown.Values[10] != 300 {
		t.Errorf("Expected Others value 300, got %f", r.StakedBreakdown.Values[10])
	}

	// Recent events only keep the last 10 periods.
	if len(r.RecentEvents) != 10 {
		t.Fatalf("Expected 10 recent events, got %d", len(r.RecentEvents))
	}
	lastEvent := r.RecentEvents[len(r.RecentEvents)-1]
	if lastEvent.Date != "2025-01-20" || lastEvent.Staked != 3000 || lastEvent.Unstaked != 1000 {
		t.Errorf("Unexpected last event: %+v", lastEvent)
	}

	// All entity stakes on a date sum to 100 percent marketshare.
	if len(r.Marketshare.Dates) != 2 {
		t.Fatalf("Expected 2 marketshare dates, got %d", len(r.Marketshare.Dates))
	}
	lastIdx := len(r.Marketshare.Dates) - 1
	sum := 0.0
	for _, s := range r.Marketshare.Series {
		sum += s.Values[lastIdx]
	}
	if sum < 99.9 || sum > 100.1 {
		t.Errorf("Expected marketshare to sum to 100, got %f", sum)
	}

	// Every configured category is present even when empty.
	for _, cat := range []string{
		"Liquid Staking Participants", "CEX Participants",
		"Restaking Participants", "Staking Pools Participants",
	} {
		if _, ok := r.BreakdownByCategory[cat]; !ok {
			t.Errorf("Expected category %s in breakdown", cat)
		}
	}
}

func TestBuildReportEmptyRange(t *testing.T) {
	d := seedStakingDB(t)

	r, err := BuildReport(context.Background(), d, "2030-01-01", "2030-01-31")
	if err != nil {
		t.Fatalf("BuildReport failed: %v", err)
	}
	if r != nil {
		t.Error("Expected nil report for an empty range")
	}
}
