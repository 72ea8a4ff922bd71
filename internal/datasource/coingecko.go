package datasource

import (
	"context"
	"fmt"
	"time"

	"whalescope/internal/api"
)

const coinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoClient fetches coin metadata from CoinGecko. Works without a key;
// the pro header is added when one is configured.
type CoinGeckoClient struct {
	client *api.Client
	cache  *Cache
	apiKey string
}

// CoinData is the subset of the CoinGecko coin payload the pipelines use.
type CoinData struct {
	MarketCap         float64
	FDV               float64
	CirculatingSupply float64
	MaxSupply         float64 // 0 means unlimited
}

func NewCoinGeckoClient(cache *Cache, apiKey string) *CoinGeckoClient {
	return &CoinGeckoClient{
		client: api.NewClient(
			api.WithBaseURL(coinGeckoBaseURL),
			api.WithTimeout(15*time.Second),
		),
		cache:  cache,
		apiKey: apiKey,
	}
}

// FetchCoin retrieves market metadata for a coin by its CoinGecko id
// (e.g. "bitcoin", "ethereum").
func (g *CoinGeckoClient) FetchCoin(ctx context.Context, coinID string) (CoinData, error) {
	var out CoinData

	path := "/coins/" + coinID
	body, err := g.cache.GetOrFetch(RequestKey(coinGeckoBaseURL+path, nil), func() ([]byte, error) {
		if err := limiters.Wait(ctx, sourceCoinGecko); err != nil {
			return nil, err
		}
		req := api.NewRequest("GET", path).WithContext(ctx)
		for k, v := range api.CoinGeckoHeaders(g.apiKey) {
			req.WithHeader(k, v)
		}
		resp, err := g.client.DoWithRetry(req, nil)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	})
	if err != nil {
		return out, fmt.Errorf("coingecko %s: %w", coinID, err)
	}

	var raw struct {
		MarketData struct {
			MarketCap             map[string]float64 `json:"market_cap"`
			FullyDilutedValuation map[string]float64 `json:"fully_diluted_valuation"`
			CirculatingSupply     float64            `json:"circulating_supply"`
			MaxSupply             *float64           `json:"max_supply"`
		} `json:"market_data"`
	}
	if err := (&api.Response{Body: body}).ParseJSON(&raw); err != nil {
		return out, fmt.Errorf("coingecko %s: %w", coinID, err)
	}

	out.MarketCap = raw.MarketData.MarketCap["usd"]
	out.FDV = raw.MarketData.FullyDilutedValuation["usd"]
	out.CirculatingSupply = raw.MarketData.CirculatingSupply
	if raw.MarketData.MaxSupply != nil {
		out.MaxSupply = *raw.MarketData.MaxSupply
	}

	return out, nil
}
