package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"whalescope/internal/export"
	"whalescope/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"endpoints": map[string]string{
			"/api/bitcoin":            "BTC market report",
			"/api/eth":                "ETH market + staking report",
			"/api/binance_market":     "Generic symbol market report (symbol, startDate, endDate)",
			"/api/symbols":            "Symbols with persisted staking rows",
			"/api/symbol/{symbol}":    "Persisted staking rows + whale signals for a symbol",
			"/api/export_csv":         "Staking rows as CSV (symbols, startDate, endDate)",
			"/api/sentiment/{symbol}": "News sentiment for a symbol",
		},
	})
}

func (s *Server) handleBitcoin(w http.ResponseWriter, r *http.Request) {
	report, err := s.reporter.BitcoinReport(r.Context(),
		r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate"))
	if err != nil {
		logger.ErrorWithErr(r.Context(), "Bitcoin report failed", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleEth(w http.ResponseWriter, r *http.Request) {
	report, err := s.reporter.EthReport(r.Context(),
		r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate"))
	if err != nil {
		logger.ErrorWithErr(r.Context(), "ETH report failed", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleBinanceMarket(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol query parameter is required")
		return
	}
	report, err := s.reporter.BinanceMarket(r.Context(), symbol,
		r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate"))
	if err != nil {
		logger.ErrorWithErr(r.Context(), "Binance market report failed", err, "symbol", symbol)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.db.Symbols(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, http.StatusOK, symbols)
}

func (s *Server) handleSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	staking, err := s.db.StakingRows(r.Context(), symbol, 365)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	whales, err := s.db.WhaleSignals(r.Context(), symbol, 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":        symbol,
		"staking_data":  staking,
		"whale_signals": whales,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var symbols []string
	if raw := q.Get("symbols"); raw != "" {
		for _, sym := range strings.Split(raw, ",") {
			if sym = strings.TrimSpace(sym); sym != "" {
				symbols = append(symbols, strings.ToUpper(sym))
			}
		}
	} else {
		all, err := s.db.Symbols(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		symbols = all
	}

	rows, err := s.db.StakingRowsRange(r.Context(), symbols, q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, "No data found for selection")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="whalescope_export.csv"`)
	if err := export.WriteStakingCSV(w, rows); err != nil {
		logger.ErrorWithErr(r.Context(), "CSV export failed", err)
	}
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	if s.news == nil {
		writeError(w, http.StatusServiceUnavailable, "news sentiment is disabled")
		return
	}
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	sentiment, err := s.news.GetSentiment(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sentiment)
}
