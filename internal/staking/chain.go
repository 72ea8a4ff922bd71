package staking

import (
	"context"
	"fmt"
)

// ChainStats is the on-chain supply snapshot attached to the staking report:
// total ETH supply, the Lido staking contract balance, and Lido's share of
// supply in percent.
type ChainStats struct {
	TotalSupplyETH float64 `json:"total_supply_eth"`
	LidoBalanceETH float64 `json:"lido_balance_eth"`
	LidoSharePct   float64 `json:"lido_share_pct"`
}

// ChainStats fetches the Etherscan supply snapshot. Returns an error when no
// Etherscan client is configured.
func (s *Service) ChainStats(ctx context.Context) (*ChainStats, error) {
	if s.etherscan == nil {
		return nil, fmt.Errorf("etherscan client not configured")
	}

	supply, err := s.etherscan.TotalSupply(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth supply: %w", err)
	}
	lido, err := s.etherscan.LidoBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("lido balance: %w", err)
	}

	stats := &ChainStats{TotalSupplyETH: supply, LidoBalanceETH: lido}
	if supply > 0 {
		stats.LidoSharePct = lido / supply * 100
	}
	return stats, nil
}
