package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"whalescope/internal/api"
	"whalescope/internal/logger"
	"whalescope/internal/types"
)

const binanceBaseURL = "https://api.binance.com"

// BinanceClient fetches public market data from the Binance REST API.
// All responses pass through the shared file cache and a per-source rate
// limiter; authenticated endpoints are not used.
type BinanceClient struct {
	client *api.Client
	cache  *Cache
}

// NewBinanceClient creates a Binance client backed by the given cache.
func NewBinanceClient(cache *Cache) *BinanceClient {
	return &BinanceClient{
		client: api.NewClient(
			api.WithBaseURL(binanceBaseURL),
			api.WithTimeout(15*time.Second),
		),
		cache: cache,
	}
}

// ToTimestampRange converts YYYY-MM-DD bounds to Binance millisecond
// timestamps covering both days fully.
func ToTimestampRange(startDate, endDate string) (int64, int64, error) {
	s, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	e, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	start := s.UTC().UnixMilli()
	end := e.UTC().Add(24*time.Hour - time.Second).UnixMilli()
	return start, end, nil
}

func (b *BinanceClient) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	full := path + "?" + q.Encode()

	return b.cache.GetOrFetch(RequestKey(path, params), func() ([]byte, error) {
		if err := limiters.Wait(ctx, sourceBinance); err != nil {
			return nil, err
		}
		resp, err := b.client.DoWithRetry(api.NewRequest("GET", full).WithContext(ctx), nil)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	})
}

// FetchKlines retrieves daily OHLCV candles for symbol (base asset, e.g.
// "ETH") paired against USDT.
func (b *BinanceClient) FetchKlines(ctx context.Context, symbol, startDate, endDate string) (types.CandleSeries, error) {
	var series types.CandleSeries

	startTS, endTS, err := ToTimestampRange(startDate, endDate)
	if err != nil {
		return series, err
	}

	body, err := b.get(ctx, "/api/v3/klines", map[string]string{
		"symbol":    symbol + "USDT",
		"interval":  "1d",
		"startTime": strconv.FormatInt(startTS, 10),
		"endTime":   strconv.FormatInt(endTS, 10),
		"limit":     "1000",
	})
	if err != nil {
		return series, fmt.Errorf("binance klines: %w", err)
	}

	// Klines come as arrays of mixed numbers and numeric strings:
	// [openTime, open, high, low, close, volume, closeTime, ...]
	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return series, fmt.Errorf("binance klines decode: %w", err)
	}

	for _, k := range raw {
		if len(k) < 6 {
			continue
		}
		openTime := int64(asFloat(k[0]))
		series.Dates = append(series.Dates, time.UnixMilli(openTime).UTC().Format("2006-01-02"))
		series.Open = append(series.Open, asFloat(k[1]))
		series.High = append(series.High, asFloat(k[2]))
		series.Low = append(series.Low, asFloat(k[3]))
		series.Close = append(series.Close, asFloat(k[4]))
		series.Volume = append(series.Volume, asFloat(k[5]))
	}

	return series, nil
}

// Ticker24h is the subset of the 24hr ticker statistics the pipelines use.
type Ticker24h struct {
	LastPrice          float64
	PriceChangePercent float64
	Volume             float64 // base-asset volume
}

// FetchTicker24h retrieves rolling 24h statistics for symbol/USDT.
func (b *BinanceClient) FetchTicker24h(ctx context.Context, symbol string) (Ticker24h, error) {
	var t Ticker24h

	body, err := b.get(ctx, "/api/v3/ticker/24hr", map[string]string{"symbol": symbol + "USDT"})
	if err != nil {
		return t, fmt.Errorf("binance 24h ticker: %w", err)
	}

	var raw struct {
		LastPrice          string `json:"lastPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
		Volume             string `json:"volume"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return t, fmt.Errorf("binance 24h ticker decode: %w", err)
	}

	t.LastPrice, _ = strconv.ParseFloat(raw.LastPrice, 64)
	t.PriceChangePercent, _ = strconv.ParseFloat(raw.PriceChangePercent, 64)
	t.Volume, _ = strconv.ParseFloat(raw.Volume, 64)
	return t, nil
}

type aggTrade struct {
	Price    string `json:"p"`
	Quantity string `json:"q"`
	Time     int64  `json:"T"`
	IsMaker  bool   `json:"m"`
}

// FetchDailyFlows aggregates trades into one row per day: buyer-side USD
// notional as inflow, seller-side (buyer is maker) as outflow. Days where the
// fetch fails are emitted with zero flows rather than dropped, so the series
// keeps one entry per calendar day.
func (b *BinanceClient) FetchDailyFlows(ctx context.Context, symbol, startDate, endDate string) ([]types.FlowRow, error) {
	startTS, endTS, err := ToTimestampRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	const dayMillis = 24 * 60 * 60 * 1000
	var rows []types.FlowRow

	for t := startTS; t < endTS; t += dayMillis {
		end := t + dayMillis
		if end > endTS {
			end = endTS
		}

		row := types.FlowRow{Date: time.UnixMilli(t).UTC().Format("2006-01-02")}

		body, err := b.get(ctx, "/api/v3/aggTrades", map[string]string{
			"symbol":    symbol + "USDT",
			"startTime": strconv.FormatInt(t, 10),
			"endTime":   strconv.FormatInt(end, 10),
			"limit":     "1000",
		})
		if err != nil {
			logger.Warn(ctx, "aggTrades fetch failed, keeping zero-flow day",
				"symbol", symbol, "date", row.Date, "error", err)
			rows = append(rows, row)
			continue
		}

		var trades []aggTrade
		if err := json.Unmarshal(body, &trades); err != nil {
			rows = append(rows, row)
			continue
		}

		for _, tr := range trades {
			p, _ := strconv.ParseFloat(tr.Price, 64)
			q, _ := strconv.ParseFloat(tr.Quantity, 64)
			usd := p * q
			row.ClosePrice = p
			if tr.IsMaker {
				row.OutflowUSD += usd
			} else {
				row.InflowUSD += usd
			}
		}
		row.NetFlowUSD = row.InflowUSD - row.OutflowUSD
		rows = append(rows, row)
	}

	return rows, nil
}

// FetchFlowTotals sums the most recent aggregated trades into buy-side and
// sell-side USD notionals. When both dates are set the window is bounded,
// otherwise the latest 1000 trades are used.
func (b *BinanceClient) FetchFlowTotals(ctx context.Context, symbol, startDate, endDate string) (inflowUSD, outflowUSD float64, err error) {
	params := map[string]string{
		"symbol": symbol + "USDT",
		"limit":  "1000",
	}
	if startDate != "" && endDate != "" {
		startTS, endTS, rerr := ToTimestampRange(startDate, endDate)
		if rerr != nil {
			return 0, 0, rerr
		}
		params["startTime"] = strconv.FormatInt(startTS, 10)
		params["endTime"] = strconv.FormatInt(endTS, 10)
	}

	body, err := b.get(ctx, "/api/v3/aggTrades", params)
	if err != nil {
		return 0, 0, fmt.Errorf("binance aggTrades: %w", err)
	}

	var trades []aggTrade
	if err := json.Unmarshal(body, &trades); err != nil {
		return 0, 0, fmt.Errorf("binance aggTrades decode: %w", err)
	}

	for _, tr := range trades {
		p, _ := strconv.ParseFloat(tr.Price, 64)
		q, _ := strconv.ParseFloat(tr.Quantity, 64)
		usd := p * q
		if tr.IsMaker {
			outflowUSD += usd
		} else {
			inflowUSD += usd
		}
	}
	return inflowUSD, outflowUSD, nil
}

// FetchTakerPressure retrieves the futures taker long/short ratio and reduces
// it to a [-1,1] buy/sell pressure score per day.
func (b *BinanceClient) FetchTakerPressure(ctx context.Context, symbol string) (types.Series, error) {
	var out types.Series

	body, err := b.get(ctx, "/futures/data/takerlongshortRatio", map[string]string{
		"symbol": symbol + "USDT",
		"period": "1d",
		"limit":  "30",
	})
	if err != nil {
		return out, fmt.Errorf("binance taker ratio: %w", err)
	}

	var raw []struct {
		BuyVol    string `json:"buyVol"`
		SellVol   string `json:"sellVol"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return out, fmt.Errorf("binance taker ratio decode: %w", err)
	}

	for _, r := range raw {
		buy, _ := strconv.ParseFloat(r.BuyVol, 64)
		sell, _ := strconv.ParseFloat(r.SellVol, 64)
		out.Dates = append(out.Dates, time.UnixMilli(r.Timestamp).UTC().Format("2006-01-02"))
		out.Values = append(out.Values, (buy-sell)/(buy+sell+1e-9))
	}

	return out, nil
}

func asFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	case json.Number:
		f, _ := x.Float64()
		return f
	}
	return 0
}
