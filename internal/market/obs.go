package market

import (
	"context"

	"whalescope/internal/logger"
	"whalescope/internal/trace"
)

// observableReporter wraps a Reporter with logging and tracing.
type observableReporter struct {
	reporter Reporter
}

// Compile-time interface check
var _ Reporter = (*observableReporter)(nil)

// WithObservability wraps a reporter with observability middleware.
func WithObservability(r Reporter) Reporter {
	return &observableReporter{reporter: r}
}

func (or *observableReporter) BitcoinReport(ctx context.Context, startDate, endDate string) (*Report, error) {
	ctx, span := trace.StartSpan(ctx, "market.BitcoinReport")
	defer span.End()

	timer := logger.StartOperation(ctx, "bitcoin_report", "start_date", startDate, "end_date", endDate)
	report, err := or.reporter.BitcoinReport(timer.GetContext(), startDate, endDate)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}
	timer.End("price", report.Markets.Price, "signals", len(report.TopFlows))
	return report, nil
}

func (or *observableReporter) EthReport(ctx context.Context, startDate, endDate string) (*Report, error) {
	ctx, span := trace.StartSpan(ctx, "market.EthReport")
	defer span.End()

	timer := logger.StartOperation(ctx, "eth_report", "start_date", startDate, "end_date", endDate)
	report, err := or.reporter.EthReport(timer.GetContext(), startDate, endDate)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}
	timer.End("price", report.Markets.Price, "has_staking", report.Staking != nil)
	return report, nil
}

func (or *observableReporter) BinanceMarket(ctx context.Context, symbol, startDate, endDate string) (*BinanceMarketReport, error) {
	ctx, span := trace.StartSpan(ctx, "market.BinanceMarket")
	defer span.End()

	timer := logger.StartOperation(ctx, "binance_market", "symbol", symbol,
		"start_date", startDate, "end_date", endDate)
	report, err := or.reporter.BinanceMarket(timer.GetContext(), symbol, startDate, endDate)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}
	timer.End("symbols", len(report.Results))
	return report, nil
}
