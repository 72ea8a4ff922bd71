package news

import (
	"context"
	"fmt"
	"time"

	"whalescope/internal/datasource"
	"whalescope/internal/db"
	"whalescope/internal/logger"
)

// SocialSync pulls LunarCrush social sentiment into the sentiment table,
// alongside the scraped-news rows.
type SocialSync struct {
	client *datasource.LunarCrushClient
	db     *db.DB
}

func NewSocialSync(client *datasource.LunarCrushClient, database *db.DB) *SocialSync {
	return &SocialSync{client: client, db: database}
}

// Sync fetches the trailing window for each symbol and upserts the points.
// Per-symbol failures are logged and skipped so one bad symbol does not stop
// the rest.
func (s *SocialSync) Sync(ctx context.Context, symbols []string, days int) error {
	if s.db == nil {
		return fmt.Errorf("no database configured for social sentiment")
	}
	if days <= 0 {
		days = 30
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	var synced int
	for _, symbol := range symbols {
		points, err := s.client.FetchSentiment(ctx, symbol, start, end)
		if err != nil {
			logger.Warn(ctx, "Social sentiment fetch failed", "symbol", symbol, "error", err)
			continue
		}
		if err := s.db.UpsertSentiment(ctx, points); err != nil {
			return fmt.Errorf("save sentiment %s: %w", symbol, err)
		}
		synced += len(points)
	}

	logger.Info(ctx, "Social sentiment sync complete", "symbols", len(symbols), "points", synced)
	return nil
}
