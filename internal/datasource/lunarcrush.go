package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"whalescope/internal/api"
	"whalescope/internal/types"
)

const lunarCrushBaseURL = "https://lunarcrush.com/api4/public"

// LunarCrushClient fetches daily social sentiment series.
type LunarCrushClient struct {
	client *api.Client
	apiKey string
}

func NewLunarCrushClient(apiKey string) *LunarCrushClient {
	return &LunarCrushClient{
		client: api.NewClient(
			api.WithBaseURL(lunarCrushBaseURL),
			api.WithTimeout(30*time.Second),
		),
		apiKey: apiKey,
	}
}

// FetchSentiment returns daily sentiment points for a coin between start and
// end, inclusive. The coin is the base asset symbol, e.g. "BTC".
func (l *LunarCrushClient) FetchSentiment(ctx context.Context, coin string, start, end time.Time) ([]types.SentimentPoint, error) {
	if l.apiKey == "" {
		return nil, fmt.Errorf("lunarcrush: missing API key")
	}

	coin = strings.ToUpper(coin)
	path := fmt.Sprintf("/coins/%s/time-series/v2?bucket=day&start=%d&end=%d",
		coin, start.Unix(), end.Unix())

	if err := limiters.Wait(ctx, sourceLunarCrush); err != nil {
		return nil, err
	}
	req := api.NewRequest("GET", path).WithContext(ctx)
	for k, v := range api.LunarCrushHeaders(l.apiKey) {
		req.WithHeader(k, v)
	}
	resp, err := l.client.DoWithRetry(req, nil)
	if err != nil {
		return nil, fmt.Errorf("lunarcrush time-series: %w", err)
	}

	var out struct {
		Data []struct {
			Time         int64   `json:"time"`
			Sentiment    float64 `json:"sentiment"`
			Interactions float64 `json:"interactions"`
		} `json:"data"`
	}
	if err := resp.ParseJSON(&out); err != nil {
		return nil, fmt.Errorf("lunarcrush decode: %w", err)
	}

	points := make([]types.SentimentPoint, 0, len(out.Data))
	for _, d := range out.Data {
		points = append(points, types.SentimentPoint{
			Date:           time.Unix(d.Time, 0).UTC().Format("2006-01-02"),
			Symbol:         coin,
			SentimentScore: d.Sentiment,
			SocialVolume:   d.Interactions,
		})
	}
	return points, nil
}
