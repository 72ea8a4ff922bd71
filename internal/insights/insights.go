// Package insights generates market commentary, either via OpenAI or a
// deterministic local fallback.
package insights

import (
	"context"
	"fmt"
	"strings"

	"whalescope/internal/logger"
	"whalescope/internal/store"
	"whalescope/internal/types"
)

// Request carries everything a generator needs to write commentary for one
// symbol.
type Request struct {
	Symbol  string
	Table   string         // recent data rendered as a markdown table
	Context map[string]any // price, percent changes, phase, score
}

// Generator produces commentary for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (types.Insight, error)
}

// Service tries the configured provider and falls back to the local
// generator when it fails, so a report always carries some commentary.
type Service struct {
	primary  Generator
	fallback *LocalGenerator
}

func NewService(cfg *store.Config) *Service {
	s := &Service{fallback: NewLocalGenerator()}
	if cfg.Insights.Provider == "OPENAI" {
		s.primary = NewOpenAIGenerator(cfg)
	}
	return s
}

func (s *Service) Generate(ctx context.Context, req Request) types.Insight {
	if s.primary != nil {
		insight, err := s.primary.Generate(ctx, req)
		if err == nil {
			return insight
		}
		logger.Warn(ctx, "Insight generation failed, using local fallback",
			"symbol", req.Symbol, "error", err)
	}
	insight, _ := s.fallback.Generate(ctx, req)
	return insight
}

// MarkdownTable renders the last rows of a candle series as a pipe table for
// the prompt. At most 30 rows are included.
func MarkdownTable(series types.CandleSeries) string {
	bars := series.Bars()
	start := len(bars) - 30
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	b.WriteString("| date | open | high | low | close | volume |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, bar := range bars[start:] {
		fmt.Fprintf(&b, "| %s | %.2f | %.2f | %.2f | %.2f | %.2f |\n",
			bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	}
	return b.String()
}

// StakingTable renders recent staking rows for the prompt, capped at 30.
func StakingTable(rows []types.StakingRow) string {
	start := len(rows) - 30
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	b.WriteString("| date | total_stake | active_stake | net_flow | deposits | withdrawals |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for i := start; i < len(rows); i++ {
		r := rows[i]
		fmt.Fprintf(&b, "| %s | %.2f | %.2f | %.2f | %.2f | %.2f |\n",
			r.ActivityDate, r.TotalStake, r.ActiveStake, r.NetFlow, r.DepositsEst, r.WithdrawalsEst)
	}
	return b.String()
}
