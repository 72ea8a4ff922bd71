package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath string `yaml:"db_path"`

	Cache struct {
		Dir        string `yaml:"dir"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"cache"`

	Symbols []string `yaml:"symbols"`

	Detector struct {
		Lookback         int     `yaml:"lookback"`          // whalemap tier detector window
		FlowLookback     int     `yaml:"flow_lookback"`     // flow-anomaly detector window
		FlowMultiplier   float64 `yaml:"flow_multiplier"`   // whale day when volume > multiplier * mean
		PriceLookback    int     `yaml:"price_lookback"`    // price-direction detector window
		PriceMultiplier  float64 `yaml:"price_multiplier"`  //
		FallbackLastDays int     `yaml:"fallback_last_days"` // neutral fallback rows when nothing qualifies, -1 disables
	} `yaml:"detector"`

	Score struct {
		SlopeWeight float64 `yaml:"slope_weight"`
		PriceWeight float64 `yaml:"price_weight"`
		WhaleWeight float64 `yaml:"whale_weight"`
	} `yaml:"score"`

	Allium struct {
		QueryIDStakers  string `yaml:"query_id_stakers"`
		QueryIDActivity string `yaml:"query_id_activity"`
		QueryIDEntities string `yaml:"query_id_entities"`
	} `yaml:"allium"`

	Insights struct {
		Provider    string  `yaml:"provider"` // OPENAI or LOCAL
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"insights"`

	News struct {
		Enabled      bool `yaml:"enabled"`
		MaxArticles  int  `yaml:"max_articles"`
		CacheMinutes int  `yaml:"cache_minutes"`
	} `yaml:"news"`

	Server struct {
		Addr            string `yaml:"addr"`
		RequestTimeout  int    `yaml:"request_timeout_seconds"`
		RefreshSchedule string `yaml:"refresh_schedule"` // cron spec for the staking/sentiment refresh
	} `yaml:"server"`
}

func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return errors.New("symbols cannot be empty")
	}
	if c.Detector.FlowMultiplier < 1.0 {
		return fmt.Errorf("detector.flow_multiplier must be >= 1.0, got %.2f", c.Detector.FlowMultiplier)
	}
	if c.Detector.Lookback <= 0 {
		return fmt.Errorf("detector.lookback must be positive, got %d", c.Detector.Lookback)
	}
	total := c.Score.SlopeWeight + c.Score.PriceWeight + c.Score.WhaleWeight
	if total < 0.99 || total > 1.01 {
		return fmt.Errorf("score weights must sum to 1.0, got %.2f", total)
	}
	if c.Insights.Provider != "OPENAI" && c.Insights.Provider != "LOCAL" {
		return fmt.Errorf("insights.provider must be 'OPENAI' or 'LOCAL', got '%s'", c.Insights.Provider)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

// DefaultConfig returns a config usable without a config.yaml on disk.
// The CLIs fall back to it so a bare invocation still works.
func DefaultConfig() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}

func applyDefaults(c *Config) {
	if c.DBPath == "" {
		c.DBPath = "whalescope.db"
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "cache"
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 300
	}
	if len(c.Symbols) == 0 {
		c.Symbols = []string{"BTC", "ETH", "SOL"}
	}
	if c.Detector.Lookback == 0 {
		c.Detector.Lookback = 7
	}
	if c.Detector.FlowLookback == 0 {
		c.Detector.FlowLookback = 7
	}
	if c.Detector.FlowMultiplier == 0 {
		c.Detector.FlowMultiplier = 2.0
	}
	if c.Detector.PriceLookback == 0 {
		c.Detector.PriceLookback = 14
	}
	if c.Detector.PriceMultiplier == 0 {
		c.Detector.PriceMultiplier = 1.8
	}
	if c.Detector.FallbackLastDays == 0 {
		c.Detector.FallbackLastDays = 5
	}
	if c.Detector.FallbackLastDays < 0 {
		c.Detector.FallbackLastDays = 0
	}
	if c.Score.SlopeWeight == 0 && c.Score.PriceWeight == 0 && c.Score.WhaleWeight == 0 {
		c.Score.SlopeWeight = 0.45
		c.Score.PriceWeight = 0.35
		c.Score.WhaleWeight = 0.20
	}
	if c.Insights.Provider == "" {
		c.Insights.Provider = "LOCAL"
	}
	if c.Insights.Model == "" {
		c.Insights.Model = "gpt-4o-mini"
	}
	if c.Insights.MaxTokens == 0 {
		c.Insights.MaxTokens = 900
	}
	if c.Insights.Temperature == 0 {
		c.Insights.Temperature = 0.6
	}
	if c.News.MaxArticles == 0 {
		c.News.MaxArticles = 15
	}
	if c.News.CacheMinutes == 0 {
		c.News.CacheMinutes = 60
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":5001"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 180
	}
	if c.Server.RefreshSchedule == "" {
		c.Server.RefreshSchedule = "0 */6 * * *"
	}
}
