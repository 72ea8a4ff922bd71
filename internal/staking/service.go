package staking

import (
	"context"
	"fmt"

	"whalescope/internal/datasource"
	"whalescope/internal/db"
	"whalescope/internal/logger"
	"whalescope/internal/store"
	"whalescope/internal/types"
)

// Service keeps the local staking tables in sync with Allium and answers
// on-chain supply questions via Etherscan.
type Service struct {
	allium    *datasource.AlliumClient
	etherscan *datasource.EtherscanClient
	db        *db.DB
	cfg       *store.Config
}

func NewService(allium *datasource.AlliumClient, database *db.DB, cfg *store.Config) *Service {
	return &Service{allium: allium, db: database, cfg: cfg}
}

// WithEtherscan attaches an Etherscan client for the chain-stats snapshot.
func (s *Service) WithEtherscan(client *datasource.EtherscanClient) *Service {
	s.etherscan = client
	return s
}

// Sync fetches activity and entity rows for the range and persists them.
// Entity failures are logged but do not fail the sync; the activity series
// is the primary dataset.
func (s *Service) Sync(ctx context.Context, startDate, endDate string) error {
	queryID := s.cfg.Allium.QueryIDStakers
	if queryID == "" {
		queryID = s.cfg.Allium.QueryIDActivity
	}

	activity, err := s.allium.FetchStakingActivity(ctx, queryID, startDate, endDate)
	if err != nil {
		return fmt.Errorf("fetch staking activity: %w", err)
	}
	if err := s.db.UpsertEthActivity(ctx, activity); err != nil {
		return fmt.Errorf("save staking activity: %w", err)
	}

	if err := s.db.UpsertStakingRows(ctx, stakingRows(activity)); err != nil {
		return fmt.Errorf("save staking rows: %w", err)
	}

	if s.cfg.Allium.QueryIDEntities != "" {
		entities, err := s.allium.FetchStakingEntities(ctx, s.cfg.Allium.QueryIDEntities, startDate, endDate)
		if err != nil {
			logger.Warn(ctx, "Entity sync failed, keeping activity data", "error", err)
		} else if err := s.db.UpsertEthEntities(ctx, entities); err != nil {
			return fmt.Errorf("save staking entities: %w", err)
		}
	}

	logger.Info(ctx, "Staking sync complete", "rows", len(activity), "start", startDate, "end", endDate)
	return nil
}

// stakingRows projects chain activity onto the per-symbol summary shape.
func stakingRows(activity []types.StakingActivity) []types.StakingRow {
	rows := make([]types.StakingRow, 0, len(activity))
	for _, a := range activity {
		rows = append(rows, types.StakingRow{
			Symbol:                  "ETH",
			ActivityDate:            a.ActivityDate,
			TotalStake:              a.TotalStake,
			ActiveStake:             a.ActiveStake,
			ActiveStakeUSDCurrent:   a.ActiveStakeUSDCurrent,
			PctTotalStakeActive:     a.PctTotalStakeActive,
			PctCirculatingStakedEst: a.PctCirculatingStakedEst,
			TokenPrice:              a.TokenPriceAtDate,
			NetFlow:                 a.DailyNetStake,
			DepositsEst:             a.DepositsEstETH,
			WithdrawalsEst:          a.WithdrawalsEstETH,
		})
	}
	return rows
}
