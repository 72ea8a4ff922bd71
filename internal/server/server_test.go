package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"whalescope/internal/datasource"
	"whalescope/internal/db"
	"whalescope/internal/interfaces"
	"whalescope/internal/market"
	"whalescope/internal/store"
	"whalescope/internal/types"
)

var _ interfaces.SignalStore = (*db.DB)(nil)

type stubReporter struct {
	err error
}

func (r *stubReporter) BitcoinReport(_ context.Context, _, _ string) (*market.Report, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &market.Report{Type: "result"}, nil
}

func (r *stubReporter) EthReport(_ context.Context, _, _ string) (*market.Report, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &market.Report{Type: "result"}, nil
}

func (r *stubReporter) BinanceMarket(_ context.Context, symbol, _, _ string) (*market.BinanceMarketReport, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &market.BinanceMarketReport{
		Results: map[string]*market.SymbolReport{
			strings.ToUpper(symbol): {SmartMoneyPhase: types.PhaseNeutral, AccumulationScore: 50},
		},
	}, nil
}

func newTestServer(t *testing.T, reporter market.Reporter) (*Server, *db.DB) {
	t.Helper()
	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := store.DefaultConfig()
	return New(cfg, reporter, database, nil, nil), database
}

func TestRootEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubReporter{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
}

func TestBitcoinEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubReporter{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bitcoin?startDate=2025-01-01&endDate=2025-01-31", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report market.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if report.Type != "result" {
		t.Errorf("Expected type result, got %q", report.Type)
	}
}

func TestPipelineErrorEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, &stubReporter{err: errors.New("upstream down")})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/eth", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if body["error"] != "upstream down" {
		t.Errorf("Expected error envelope, got %v", body)
	}
}

func TestBinanceMarketRequiresSymbol(t *testing.T) {
	srv, _ := newTestServer(t, &stubReporter{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/binance_market", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "symbol") {
		t.Errorf("Expected error mentioning symbol, got %s", rec.Body.String())
	}
}

func TestSymbolsEmptyList(t *testing.T) {
	srv, _ := newTestServer(t, &stubReporter{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/symbols", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("Expected empty array, got %s", rec.Body.String())
	}
}

func TestSymbolEndpoint(t *testing.T) {
	srv, database := newTestServer(t, &stubReporter{})
	ctx := context.Background()

	rows := []types.StakingRow{
		{Symbol: "ETH", ActivityDate: "2025-01-10", TotalStake: 34000000},
		{Symbol: "ETH", ActivityDate: "2025-01-11", TotalStake: 34001000},
	}
	if err := database.UpsertStakingRows(ctx, rows); err != nil {
		t.Fatalf("Failed to seed staking rows: %v", err)
	}
	signals := []types.FlowSignal{
		{Symbol: "ETH", Timestamp: "2025-01-11", NetFlow: 5e6, Status: types.StatusBuy, Intensity: 3},
	}
	if err := database.SaveWhaleSignals(ctx, signals); err != nil {
		t.Fatalf("Failed to seed whale signals: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/symbol/eth", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Symbol       string             `json:"symbol"`
		StakingData  []types.StakingRow `json:"staking_data"`
		WhaleSignals []types.FlowSignal `json:"whale_signals"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Symbol != "ETH" {
		t.Errorf("Expected symbol uppercased to ETH, got %s", body.Symbol)
	}
	if len(body.StakingData) != 2 {
		t.Errorf("Expected 2 staking rows, got %d", len(body.StakingData))
	}
	if body.StakingData[0].ActivityDate != "2025-01-11" {
		t.Errorf("Expected newest row first, got %s", body.StakingData[0].ActivityDate)
	}
	if len(body.WhaleSignals) != 1 {
		t.Errorf("Expected 1 whale signal, got %d", len(body.WhaleSignals))
	}
}

func TestExportCSVNoData(t *testing.T) {
	srv, _ := newTestServer(t, &stubReporter{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export_csv?symbols=ETH", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No data found for selection") {
		t.Errorf("Expected no-data error, got %s", rec.Body.String())
	}
}

func TestExportCSV(t *testing.T) {
	srv, database := newTestServer(t, &stubReporter{})
	ctx := context.Background()

	rows := []types.StakingRow{
		{Symbol: "ETH", ActivityDate: "2025-01-10", TotalStake: 34000000, TokenPrice: 2500},
		{Symbol: "SOL", ActivityDate: "2025-01-10", TotalStake: 400000000},
	}
	if err := database.UpsertStakingRows(ctx, rows); err != nil {
		t.Fatalf("Failed to seed staking rows: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export_csv?symbols=eth&startDate=2025-01-01", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %s", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header + 1 ETH row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "ETH,2025-01-10") {
		t.Errorf("Unexpected CSV row: %s", lines[1])
	}
}

func TestRefreshCleansExpiredCache(t *testing.T) {
	srv, _ := newTestServer(t, &stubReporter{})

	dir := t.TempDir()
	cache := datasource.NewCache(dir, 20*time.Millisecond)
	cache.Set("stale", []byte("x"))
	time.Sleep(30 * time.Millisecond)

	srv = srv.WithCacheCleanup(cache)
	srv.refresh()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected expired cache entries removed on refresh, got %d left", len(entries))
	}
}

func TestSentimentDisabled(t *testing.T) {
	srv, _ := newTestServer(t, &stubReporter{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sentiment/BTC", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 when news service is absent, got %d", rec.Code)
	}
}
