package insights

import (
	"context"
	"strings"
	"testing"

	"whalescope/internal/store"
	"whalescope/internal/types"
)

func TestLocalGenerator(t *testing.T) {
	g := NewLocalGenerator()

	insight, err := g.Generate(context.Background(), Request{
		Symbol: "BTC",
		Context: map[string]any{
			"price":      65000.0,
			"24h_change": 1.2,
			"7d_change":  -3.4,
			"30d_change": 10.0,
		},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if insight.Source != "local" {
		t.Errorf("Expected source local, got %s", insight.Source)
	}
	if !strings.Contains(insight.Text, "BTC") || !strings.Contains(insight.Text, "65000") {
		t.Errorf("Expected price summary, got %q", insight.Text)
	}
}

func TestLocalGeneratorIncludesPhase(t *testing.T) {
	g := NewLocalGenerator()

	insight, _ := g.Generate(context.Background(), Request{
		Symbol: "ETH",
		Context: map[string]any{
			"price":              3000.0,
			"smart_money_phase":  string(types.PhaseAccumulation),
			"accumulation_score": 72,
		},
	})
	if !strings.Contains(insight.Text, "Accumulation") || !strings.Contains(insight.Text, "72/100") {
		t.Errorf("Expected phase and score in text, got %q", insight.Text)
	}
}

func TestLocalGeneratorSymbolPipelineContext(t *testing.T) {
	g := NewLocalGenerator()

	// Same context shape the per-symbol pipeline builds.
	insight, err := g.Generate(context.Background(), Request{
		Symbol: "SOL",
		Context: map[string]any{
			"price":              123.45,
			"smart_money_phase":  string(types.PhaseMarkup),
			"accumulation_score": 64,
			"whale_signals":      3,
			"date_range":         map[string]string{"start": "2025-01-01", "end": "2025-01-31"},
		},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if strings.Contains(insight.Text, "<nil>") {
		t.Errorf("Expected no placeholder values, got %q", insight.Text)
	}
	if !strings.Contains(insight.Text, "Markup") || !strings.Contains(insight.Text, "64/100") {
		t.Errorf("Expected phase and score in text, got %q", insight.Text)
	}
	if !strings.Contains(insight.Text, "Whale signals detected: 3") {
		t.Errorf("Expected whale signal count in text, got %q", insight.Text)
	}
}

func TestLocalGeneratorOmitsMissingChanges(t *testing.T) {
	g := NewLocalGenerator()

	insight, _ := g.Generate(context.Background(), Request{
		Symbol:  "BTC",
		Context: map[string]any{"price": 65000.0, "24h_change": 1.2},
	})
	if strings.Contains(insight.Text, "<nil>") {
		t.Errorf("Expected missing keys omitted, got %q", insight.Text)
	}
	if !strings.Contains(insight.Text, "24h 1.2%") {
		t.Errorf("Expected present change rendered, got %q", insight.Text)
	}
	if strings.Contains(insight.Text, "7d") || strings.Contains(insight.Text, "30d") {
		t.Errorf("Expected absent changes omitted, got %q", insight.Text)
	}
}

func TestServiceFallsBackWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := store.DefaultConfig()
	cfg.Insights.Provider = "OPENAI"

	svc := NewService(cfg)
	insight := svc.Generate(context.Background(), Request{
		Symbol:  "BTC",
		Context: map[string]any{"price": 65000.0},
	})
	if insight.Source != "local" {
		t.Errorf("Expected fallback to local without an API key, got %s", insight.Source)
	}
}

func TestMarkdownTableCapsAt30Rows(t *testing.T) {
	var s types.CandleSeries
	for i := 0; i < 45; i++ {
		s.Dates = append(s.Dates, "2025-01-01")
		s.Open = append(s.Open, 1)
		s.High = append(s.High, 2)
		s.Low = append(s.Low, 0.5)
		s.Close = append(s.Close, 1.5)
		s.Volume = append(s.Volume, 100)
	}

	table := MarkdownTable(s)
	// 2 header lines + 30 data rows.
	lines := strings.Count(strings.TrimRight(table, "\n"), "\n") + 1
	if lines != 32 {
		t.Errorf("Expected 32 table lines, got %d", lines)
	}
}

func TestStakingTable(t *testing.T) {
	rows := []types.StakingRow{
		{ActivityDate: "2025-01-01", TotalStake: 100, ActiveStake: 90, NetFlow: 5},
		{ActivityDate: "2025-01-02", TotalStake: 110, ActiveStake: 95, NetFlow: -2},
	}
	table := StakingTable(rows)
	if !strings.Contains(table, "2025-01-02") || !strings.Contains(table, "110.00") {
		t.Errorf("Expected staking rows in table, got %q", table)
	}
}
