// Package interfaces holds the seams between the API layer and its backing
// services, so handlers can be tested against fakes.
package interfaces

import (
	"context"

	"whalescope/internal/types"
)

// SignalStore is the read side of the SQLite store the API serves from.
type SignalStore interface {
	Symbols(ctx context.Context) ([]string, error)
	StakingRows(ctx context.Context, symbol string, limit int) ([]types.StakingRow, error)
	StakingRowsRange(ctx context.Context, symbols []string, start, end string) ([]types.StakingRow, error)
	WhaleSignals(ctx context.Context, symbol string, limit int) ([]types.FlowSignal, error)
}

// SentimentProvider serves news sentiment for a symbol, cached or fresh.
type SentimentProvider interface {
	GetSentiment(ctx context.Context, symbol string) (types.NewsSentiment, error)
	RefreshSentiment(ctx context.Context, symbol string) (types.NewsSentiment, error)
}
