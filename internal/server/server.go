// Package server exposes the pipelines over HTTP and runs the scheduled
// background refresh.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"whalescope/internal/datasource"
	"whalescope/internal/interfaces"
	"whalescope/internal/logger"
	"whalescope/internal/market"
	"whalescope/internal/news"
	"whalescope/internal/staking"
	"whalescope/internal/store"
)

// Server routes API requests to the report pipelines and the SQLite-backed
// query endpoints.
type Server struct {
	cfg      *store.Config
	reporter market.Reporter
	db       interfaces.SignalStore
	staking  *staking.Service
	news     interfaces.SentimentProvider
	social   *news.SocialSync
	cache    *datasource.Cache
	cron     *cron.Cron
	httpSrv  *http.Server
}

// WithSocialSync attaches the LunarCrush sync to the scheduled refresh.
func (s *Server) WithSocialSync(sync *news.SocialSync) *Server {
	s.social = sync
	return s
}

// WithCacheCleanup sweeps expired response-cache entries on the refresh
// schedule.
func (s *Server) WithCacheCleanup(cache *datasource.Cache) *Server {
	s.cache = cache
	return s
}

// New builds a server. The news service may be nil when sentiment is
// disabled.
func New(cfg *store.Config, reporter market.Reporter, signals interfaces.SignalStore, stakingSvc *staking.Service, newsSvc *news.Service) *Server {
	s := &Server{
		cfg:      cfg,
		reporter: reporter,
		db:       signals,
		staking:  stakingSvc,
		cron:     cron.New(),
	}
	if newsSvc != nil {
		s.news = newsSvc
	}

	s.httpSrv = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.requestTimeout() + 10*time.Second,
	}
	return s
}

func (s *Server) requestTimeout() time.Duration {
	return time.Duration(s.cfg.Server.RequestTimeout) * time.Second
}

// Router builds the route table. Exposed so tests can drive handlers without
// a listening socket.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/api/bitcoin", s.withTimeout(s.handleBitcoin)).Methods(http.MethodGet)
	r.HandleFunc("/api/eth", s.withTimeout(s.handleEth)).Methods(http.MethodGet)
	r.HandleFunc("/api/binance_market", s.withTimeout(s.handleBinanceMarket)).Methods(http.MethodGet)
	r.HandleFunc("/api/symbols", s.handleSymbols).Methods(http.MethodGet)
	r.HandleFunc("/api/symbol/{symbol}", s.handleSymbol).Methods(http.MethodGet)
	r.HandleFunc("/api/export_csv", s.handleExportCSV).Methods(http.MethodGet)
	r.HandleFunc("/api/sentiment/{symbol}", s.withTimeout(s.handleSentiment)).Methods(http.MethodGet)
	return r
}

// withTimeout bounds a pipeline handler with the configured per-request
// deadline.
func (s *Server) withTimeout(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout())
		defer cancel()
		h(w, r.WithContext(ctx))
	}
}

// Start registers the refresh schedule and serves until the listener fails.
func (s *Server) Start() error {
	if s.cfg.Server.RefreshSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.Server.RefreshSchedule, s.refresh); err != nil {
			return err
		}
		s.cron.Start()
	}
	logger.Info(context.Background(), "API server listening", "addr", s.cfg.Server.Addr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown stops the cron scheduler and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cron.Stop()
	return s.httpSrv.Shutdown(ctx)
}

// refresh re-syncs staking rows for the trailing 30 days and refreshes news
// sentiment for the configured symbols.
func (s *Server) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout())
	defer cancel()

	if s.cache != nil {
		if err := s.cache.CleanupExpired(); err != nil {
			logger.Warn(ctx, "Cache cleanup failed", "error", err)
		}
	}

	end := time.Now().UTC().Format("2006-01-02")
	start := time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02")
	if s.staking != nil {
		if err := s.staking.Sync(ctx, start, end); err != nil {
			logger.Warn(ctx, "Scheduled staking sync failed", "error", err)
		}
	}

	if s.social != nil {
		if err := s.social.Sync(ctx, s.cfg.Symbols, 30); err != nil {
			logger.Warn(ctx, "Scheduled social sentiment sync failed", "error", err)
		}
	}

	if s.news == nil {
		return
	}
	for _, symbol := range s.cfg.Symbols {
		if _, err := s.news.RefreshSentiment(ctx, symbol); err != nil {
			logger.Warn(ctx, "Scheduled sentiment refresh failed", "symbol", symbol, "error", err)
		}
	}
}
