package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"whalescope/internal/api"
	"whalescope/internal/types"
)

const cmcBaseURL = "https://pro-api.coinmarketcap.com"

// CMCClient fetches token fundamentals from CoinMarketCap. Used for symbols
// that have no dedicated CoinGecko mapping.
type CMCClient struct {
	client *api.Client
	cache  *Cache
	apiKey string
}

func NewCMCClient(cache *Cache, apiKey string) *CMCClient {
	return &CMCClient{
		client: api.NewClient(
			api.WithBaseURL(cmcBaseURL),
			api.WithTimeout(10*time.Second),
		),
		cache:  cache,
		apiKey: apiKey,
	}
}

// FetchFundamentals retrieves market cap, FDV and supply for a ticker symbol.
// Returns an error when no API key is configured.
func (c *CMCClient) FetchFundamentals(ctx context.Context, symbol string) (types.MarketStats, error) {
	var out types.MarketStats

	if c.apiKey == "" {
		return out, fmt.Errorf("cmc: no API key configured")
	}

	symbol = strings.ToUpper(symbol)
	path := "/v1/cryptocurrency/quotes/latest?" + url.Values{"symbol": {symbol}}.Encode()

	body, err := c.cache.GetOrFetch(RequestKey(cmcBaseURL+path, nil), func() ([]byte, error) {
		if err := limiters.Wait(ctx, sourceCMC); err != nil {
			return nil, err
		}
		req := api.NewRequest("GET", path).WithContext(ctx)
		for k, v := range api.CMCHeaders(c.apiKey) {
			req.WithHeader(k, v)
		}
		resp, err := c.client.DoWithRetry(req, nil)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	})
	if err != nil {
		return out, fmt.Errorf("cmc quotes %s: %w", symbol, err)
	}

	var raw struct {
		Data map[string]struct {
			CirculatingSupply float64  `json:"circulating_supply"`
			MaxSupply         *float64 `json:"max_supply"`
			Quote             struct {
				USD struct {
					Price                 float64 `json:"price"`
					MarketCap             float64 `json:"market_cap"`
					FullyDilutedMarketCap float64 `json:"fully_diluted_market_cap"`
				} `json:"USD"`
			} `json:"quote"`
		} `json:"data"`
	}
	if err := (&api.Response{Body: body}).ParseJSON(&raw); err != nil {
		return out, fmt.Errorf("cmc quotes %s: %w", symbol, err)
	}

	d, ok := raw.Data[symbol]
	if !ok {
		return out, fmt.Errorf("cmc quotes: symbol %s not in response", symbol)
	}

	out.Price = d.Quote.USD.Price
	out.MarketCap = d.Quote.USD.MarketCap
	out.FDV = d.Quote.USD.FullyDilutedMarketCap
	out.CurrentSupply = d.CirculatingSupply
	if d.MaxSupply != nil {
		out.MaxSupply = *d.MaxSupply
	}

	return out, nil
}
