package types

// DailyBar is one trading day of OHLCV data for a symbol. Series are
// chronological, one entry per calendar day.
type DailyBar struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// FlowRow is one day of aggregated exchange flow, built from Binance aggTrades.
type FlowRow struct {
	Date       string  `json:"timestamp"` // YYYY-MM-DD
	InflowUSD  float64 `json:"inflow_usd"`
	OutflowUSD float64 `json:"outflow_usd"`
	NetFlowUSD float64 `json:"net_flow_usd"`
	ClosePrice float64 `json:"close_price"`
}

// FlowStatus is the direction of a detected whale-flow day.
type FlowStatus string

const (
	StatusBuy        FlowStatus = "buy"
	StatusSell       FlowStatus = "sell"
	StatusNeutral    FlowStatus = "neutral"
	StatusNone       FlowStatus = "none"
	StatusNetInflow  FlowStatus = "net_inflow"
	StatusNetOutflow FlowStatus = "net_outflow"
	StatusWhaleBuy   FlowStatus = "whale_buy"
	StatusWhaleSell  FlowStatus = "whale_sell"
)

// FlowSignal is a detected anomalous-volume day. Signals are derived, never
// persisted as authoritative state; they are recomputed from the bar series
// on every call.
type FlowSignal struct {
	Timestamp string     `json:"timestamp"`
	InputUSD  float64    `json:"input_usd"`
	OutputUSD float64    `json:"output_usd"`
	NetFlow   float64    `json:"net_flow"`
	Status    FlowStatus `json:"status"`
	Symbol    string     `json:"symbol"`
	Intensity int        `json:"intensity,omitempty"` // 1..5 tier, 0 when the variant has no tiers
}

// Phase is a Wyckoff-style smart-money phase label.
type Phase string

const (
	PhaseAccumulation Phase = "Accumulation"
	PhaseMarkup       Phase = "Markup"
	PhaseDistribution Phase = "Distribution"
	PhaseMarkdown     Phase = "Markdown"
	PhaseNeutral      Phase = "Neutral"
	PhaseNoData       Phase = "No Data"
)

// CandleSeries is the column-oriented price history emitted in reports,
// matching the shape the desktop UI charts expect.
type CandleSeries struct {
	Dates  []string  `json:"dates"`
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []float64 `json:"volume"`
}

// Bars converts the column series to row form.
func (c CandleSeries) Bars() []DailyBar {
	bars := make([]DailyBar, 0, len(c.Dates))
	for i := range c.Dates {
		bars = append(bars, DailyBar{
			Date:   c.Dates[i],
			Open:   c.Open[i],
			High:   c.High[i],
			Low:    c.Low[i],
			Close:  c.Close[i],
			Volume: c.Volume[i],
		})
	}
	return bars
}

// Len reports the number of complete rows in the series.
func (c CandleSeries) Len() int { return len(c.Dates) }

// MarketStats holds per-symbol fundamentals merged from Binance and
// CoinGecko/CoinMarketCap.
type MarketStats struct {
	Price         float64 `json:"price"`
	Volume24h     float64 `json:"volume_24h"`
	MarketCap     float64 `json:"market_cap"`
	FDV           float64 `json:"fdv"`
	CurrentSupply float64 `json:"current_supply"`
	MaxSupply     float64 `json:"max_supply,omitempty"` // 0 means unlimited
}

// Performance holds the percent-change windows shown in the UI header.
type Performance struct {
	Change24h float64 `json:"percent_change_24h"`
	Change7d  float64 `json:"percent_change_7d"`
	Change30d float64 `json:"percent_change_30d"`
}

// Series is a generic dated value series for chart payloads (netflow, fees,
// liquidity pressure).
type Series struct {
	Dates  []string  `json:"dates"`
	Values []float64 `json:"values"`
}

// WhaleTableRow is the simplified whale-activity row rendered as a table.
type WhaleTableRow struct {
	Date      string     `json:"date"`
	InputUSD  float64    `json:"input_usd"`
	OutputUSD float64    `json:"output_usd"`
	Status    FlowStatus `json:"status"`
}

// Insight is a generated market commentary with its provenance.
type Insight struct {
	Text   string `json:"insight"`
	Source string `json:"source"` // "OpenAI" or "local"
}

// StakingActivity is one day of chain-wide staking activity.
type StakingActivity struct {
	ActivityDate            string  `json:"activity_date"`
	Chain                   string  `json:"chain"`
	TokenPriceAtDate        float64 `json:"token_price_at_date"`
	TokenPriceCurrent       float64 `json:"token_price_current"`
	TotalStake              float64 `json:"total_stake"`
	ActiveStake             float64 `json:"active_stake"`
	ActiveStakeUSD          float64 `json:"active_stake_usd"`
	CirculatingSupplyUSD    float64 `json:"circulating_supply_usd"`
	TotalStakeUSDCurrent    float64 `json:"total_stake_usd_current"`
	ActiveStakeUSDCurrent   float64 `json:"active_stake_usd_current"`
	PctTotalStakeActive     float64 `json:"pct_total_stake_active"`
	PctCirculatingStakedEst float64 `json:"pct_circulating_staked_est"`
	DailyNetStake           float64 `json:"daily_net_stake"`
	DepositsEstETH          float64 `json:"deposits_est_eth"`
	WithdrawalsEstETH       float64 `json:"withdrawals_est_eth"`
}

// StakingEntity is one (date, staking operator) row. Share is nil until the
// marketshare pass computes it.
type StakingEntity struct {
	ActivityDate string   `json:"activity_date"`
	Entity       string   `json:"entity"`
	Staked       float64  `json:"staked"`
	Unstaked     float64  `json:"unstaked"`
	NetFlow      float64  `json:"net_flow"`
	Share        *float64 `json:"share"`
}

// StakingRow is a per-symbol staking summary row, the generic shape stored
// for every tracked symbol.
type StakingRow struct {
	Symbol                  string  `json:"symbol"`
	ActivityDate            string  `json:"activity_date"`
	TotalStake              float64 `json:"total_stake"`
	ActiveStake             float64 `json:"active_stake"`
	ActiveStakeUSDCurrent   float64 `json:"active_stake_usd_current"`
	PctTotalStakeActive     float64 `json:"pct_total_stake_active"`
	PctCirculatingStakedEst float64 `json:"pct_circulating_staked_est"`
	TokenPrice              float64 `json:"token_price"`
	NetFlow                 float64 `json:"net_flow"`
	DepositsEst             float64 `json:"deposits_est"`
	WithdrawalsEst          float64 `json:"withdrawals_est"`
}

// NewsArticle is one scraped article.
type NewsArticle struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
	Symbol      string `json:"symbol"`
}

// ArticleSentiment is the scored sentiment of a single article.
type ArticleSentiment struct {
	ArticleTitle string  `json:"article_title"`
	URL          string  `json:"url"`
	Sentiment    string  `json:"sentiment"` // POSITIVE, NEGATIVE, NEUTRAL
	Score        float64 `json:"score"`     // -1.0 to 1.0
}

// NewsSentiment aggregates article sentiments for a symbol.
type NewsSentiment struct {
	Symbol           string             `json:"symbol"`
	OverallSentiment string             `json:"overall_sentiment"` // POSITIVE, NEGATIVE, NEUTRAL, MIXED
	OverallScore     float64            `json:"overall_score"`
	ArticleCount     int                `json:"article_count"`
	Articles         []ArticleSentiment `json:"articles,omitempty"`
	Summary          string             `json:"summary"`
	Confidence       float64            `json:"confidence"`
	Timestamp        int64              `json:"timestamp"`
}

// SentimentPoint is one day of social sentiment for a symbol.
type SentimentPoint struct {
	Date           string  `json:"date"`
	Symbol         string  `json:"symbol"`
	SentimentScore float64 `json:"sentiment_score"`
	SocialVolume   float64 `json:"social_volume"`
}
