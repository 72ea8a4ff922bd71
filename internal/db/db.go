// Package db persists staking activity, whale signals, and sentiment to a
// local SQLite database.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"whalescope/internal/logger"
	"whalescope/internal/types"
)

// DB wraps the SQLite handle. SQLite allows a single writer, so writes take
// the mutex; reads go straight through (WAL mode keeps them concurrent).
type DB struct {
	conn *sql.DB
	mu   sync.Mutex
}

// Open opens (or creates) the database and runs migrations.
func Open(ctx context.Context, path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	d := &DB{conn: conn}
	if err := d.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info(ctx, "Database opened", "path", path)
	return d, nil
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS eth_activity (
			activity_date              TEXT PRIMARY KEY,
			chain                      TEXT,
			token_price_at_date        REAL,
			token_price_current        REAL,
			total_stake                REAL,
			active_stake               REAL,
			active_stake_usd           REAL,
			circulating_supply_usd     REAL,
			total_stake_usd_current    REAL,
			active_stake_usd_current   REAL,
			pct_total_stake_active     REAL,
			pct_circulating_staked_est REAL,
			daily_net_stake            REAL,
			deposits_est_eth           REAL,
			withdrawals_est_eth        REAL
		)`,

		`CREATE TABLE IF NOT EXISTS eth_entities (
			activity_date TEXT,
			entity        TEXT,
			staked        REAL,
			share         REAL,
			PRIMARY KEY (activity_date, entity)
		)`,

		`CREATE TABLE IF NOT EXISTS staking_data (
			symbol                     TEXT,
			activity_date              TEXT,
			total_stake                REAL,
			active_stake               REAL,
			active_stake_usd_current   REAL,
			pct_total_stake_active     REAL,
			pct_circulating_staked_est REAL,
			token_price                REAL,
			net_flow                   REAL,
			deposits_est               REAL,
			withdrawals_est            REAL,
			PRIMARY KEY (symbol, activity_date)
		)`,

		`CREATE TABLE IF NOT EXISTS whale_signals (
			symbol    TEXT,
			timestamp TEXT,
			input_usd REAL,
			output_usd REAL,
			net_flow  REAL,
			status    TEXT,
			intensity INTEGER,
			PRIMARY KEY (symbol, timestamp)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_whale_symbol ON whale_signals(symbol)`,

		`CREATE TABLE IF NOT EXISTS sentiment (
			date            TEXT,
			symbol          TEXT,
			sentiment_score REAL,
			social_volume   REAL,
			PRIMARY KEY (date, symbol)
		)`,
	}

	for _, s := range stmts {
		if _, err := d.conn.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// UpsertEthActivity writes daily staking activity rows, replacing any
// existing row for the same date.
func (d *DB) UpsertEthActivity(ctx context.Context, rows []types.StakingActivity) error {
	if len(rows) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, r := range rows {
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO eth_activity
			(activity_date, chain, token_price_at_date, token_price_current,
			 total_stake, active_stake, active_stake_usd, circulating_supply_usd,
			 total_stake_usd_current, active_stake_usd_current,
			 pct_total_stake_active, pct_circulating_staked_est,
			 daily_net_stake, deposits_est_eth, withdrawals_est_eth)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			r.ActivityDate, r.Chain, r.TokenPriceAtDate, r.TokenPriceCurrent,
			r.TotalStake, r.ActiveStake, r.ActiveStakeUSD, r.CirculatingSupplyUSD,
			r.TotalStakeUSDCurrent, r.ActiveStakeUSDCurrent,
			r.PctTotalStakeActive, r.PctCirculatingStakedEst,
			r.DailyNetStake, r.DepositsEstETH, r.WithdrawalsEstETH,
		)
		if err != nil {
			return fmt.Errorf("upsert eth_activity %s: %w", r.ActivityDate, err)
		}
	}
	return tx.Commit()
}

// UpsertEthEntities writes per-operator staking rows.
func (d *DB) UpsertEthEntities(ctx context.Context, rows []types.StakingEntity) error {
	if len(rows) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range rows {
		var share interface{}
		if e.Share != nil {
			share = *e.Share
		}
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO eth_entities
			(activity_date, entity, staked, share)
			VALUES (?,?,?,?)`,
			e.ActivityDate, e.Entity, e.Staked, share,
		)
		if err != nil {
			return fmt.Errorf("upsert eth_entities %s/%s: %w", e.ActivityDate, e.Entity, err)
		}
	}
	return tx.Commit()
}

// ActivityBucket is eth_activity aggregated to a reporting period.
type ActivityBucket struct {
	Period        string
	TotalStake    float64
	ActiveStake   float64
	PctActive     float64
	PctCircStaked float64
	DailyNetStake float64
	Deposits      float64
	Withdrawals   float64
}

// periodExpr maps a granularity to the SQLite expression that buckets
// activity_date.
func periodExpr(granularity string) string {
	switch granularity {
	case "week":
		return "strftime('%Y-%W', activity_date)"
	case "month":
		return "strftime('%Y-%m', activity_date)"
	default:
		return "activity_date"
	}
}

// AggregateActivity reads eth_activity between start and end inclusive,
// bucketed by granularity ("day", "week", or "month"), oldest first.
func (d *DB) AggregateActivity(ctx context.Context, start, end, granularity string) ([]ActivityBucket, error) {
	q := fmt.Sprintf(`SELECT %s as period,
			SUM(total_stake),
			SUM(active_stake),
			AVG(pct_total_stake_active),
			AVG(pct_circulating_staked_est),
			SUM(COALESCE(daily_net_stake,0)),
			SUM(COALESCE(deposits_est_eth,0)),
			SUM(COALESCE(withdrawals_est_eth,0))
		FROM eth_activity
		WHERE activity_date BETWEEN ? AND ?
		GROUP BY period
		ORDER BY period ASC`, periodExpr(granularity))

	rows, err := d.conn.QueryContext(ctx, q, start, end)
	if err != nil {
		return nil, fmt.Errorf("query eth_activity: %w", err)
	}
	defer rows.Close()

	var out []ActivityBucket
	for rows.Next() {
		var b ActivityBucket
		if err := rows.Scan(&b.Period, &b.TotalStake, &b.ActiveStake,
			&b.PctActive, &b.PctCircStaked, &b.DailyNetStake,
			&b.Deposits, &b.Withdrawals); err != nil {
			return nil, fmt.Errorf("scan eth_activity: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// EntityRows reads per-operator rows between start and end, oldest first.
func (d *DB) EntityRows(ctx context.Context, start, end string) ([]types.StakingEntity, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT activity_date, entity, staked, share
		FROM eth_entities
		WHERE activity_date BETWEEN ? AND ?
		ORDER BY activity_date ASC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query eth_entities: %w", err)
	}
	defer rows.Close()

	var out []types.StakingEntity
	for rows.Next() {
		var e types.StakingEntity
		var share sql.NullFloat64
		if err := rows.Scan(&e.ActivityDate, &e.Entity, &e.Staked, &share); err != nil {
			return nil, fmt.Errorf("scan eth_entities: %w", err)
		}
		if share.Valid {
			v := share.Float64
			e.Share = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveWhaleSignals persists detected signals for a symbol. Re-running a
// detection over the same window overwrites the prior rows.
func (d *DB) SaveWhaleSignals(ctx context.Context, signals []types.FlowSignal) error {
	if len(signals) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, s := range signals {
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO whale_signals
			(symbol, timestamp, input_usd, output_usd, net_flow, status, intensity)
			VALUES (?,?,?,?,?,?,?)`,
			s.Symbol, s.Timestamp, s.InputUSD, s.OutputUSD, s.NetFlow, string(s.Status), s.Intensity,
		)
		if err != nil {
			return fmt.Errorf("upsert whale_signals %s/%s: %w", s.Symbol, s.Timestamp, err)
		}
	}
	return tx.Commit()
}

// WhaleSignals returns the most recent signals for a symbol, newest first.
func (d *DB) WhaleSignals(ctx context.Context, symbol string, limit int) ([]types.FlowSignal, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.conn.QueryContext(ctx, `SELECT symbol, timestamp, input_usd, output_usd, net_flow, status, intensity
		FROM whale_signals
		WHERE symbol = ?
		ORDER BY timestamp DESC
		LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query whale_signals: %w", err)
	}
	defer rows.Close()

	var out []types.FlowSignal
	for rows.Next() {
		var s types.FlowSignal
		var status string
		if err := rows.Scan(&s.Symbol, &s.Timestamp, &s.InputUSD, &s.OutputUSD, &s.NetFlow, &status, &s.Intensity); err != nil {
			return nil, fmt.Errorf("scan whale_signals: %w", err)
		}
		s.Status = types.FlowStatus(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpsertStakingRows writes per-symbol staking summary rows.
func (d *DB) UpsertStakingRows(ctx context.Context, rows []types.StakingRow) error {
	if len(rows) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, r := range rows {
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO staking_data
			(symbol, activity_date, total_stake, active_stake, active_stake_usd_current,
			 pct_total_stake_active, pct_circulating_staked_est, token_price,
			 net_flow, deposits_est, withdrawals_est)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			r.Symbol, r.ActivityDate, r.TotalStake, r.ActiveStake, r.ActiveStakeUSDCurrent,
			r.PctTotalStakeActive, r.PctCirculatingStakedEst, r.TokenPrice,
			r.NetFlow, r.DepositsEst, r.WithdrawalsEst,
		)
		if err != nil {
			return fmt.Errorf("upsert staking_data %s/%s: %w", r.Symbol, r.ActivityDate, err)
		}
	}
	return tx.Commit()
}

// Symbols lists every symbol with staking rows.
func (d *DB) Symbols(ctx context.Context) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT DISTINCT symbol FROM staking_data ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// StakingRows returns the most recent rows for a symbol, newest first.
func (d *DB) StakingRows(ctx context.Context, symbol string, limit int) ([]types.StakingRow, error) {
	if limit <= 0 {
		limit = 365
	}
	rows, err := d.conn.QueryContext(ctx, `SELECT symbol, activity_date, total_stake, active_stake,
			active_stake_usd_current, pct_total_stake_active, pct_circulating_staked_est,
			token_price, net_flow, deposits_est, withdrawals_est
		FROM staking_data
		WHERE symbol = ?
		ORDER BY activity_date DESC
		LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query staking_data: %w", err)
	}
	defer rows.Close()
	return scanStakingRows(rows)
}

// StakingRowsRange returns rows for the given symbols, optionally bounded by
// start and end dates, ordered by symbol then date.
func (d *DB) StakingRowsRange(ctx context.Context, symbols []string, start, end string) ([]types.StakingRow, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(symbols)), ",")
	q := `SELECT symbol, activity_date, total_stake, active_stake,
			active_stake_usd_current, pct_total_stake_active, pct_circulating_staked_est,
			token_price, net_flow, deposits_est, withdrawals_est
		FROM staking_data
		WHERE symbol IN (` + placeholders + `)`

	args := make([]interface{}, 0, len(symbols)+2)
	for _, s := range symbols {
		args = append(args, s)
	}
	if start != "" {
		q += " AND activity_date >= ?"
		args = append(args, start)
	}
	if end != "" {
		q += " AND activity_date <= ?"
		args = append(args, end)
	}
	q += " ORDER BY symbol, activity_date"

	rows, err := d.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query staking_data range: %w", err)
	}
	defer rows.Close()
	return scanStakingRows(rows)
}

func scanStakingRows(rows *sql.Rows) ([]types.StakingRow, error) {
	var out []types.StakingRow
	for rows.Next() {
		var r types.StakingRow
		if err := rows.Scan(&r.Symbol, &r.ActivityDate, &r.TotalStake, &r.ActiveStake,
			&r.ActiveStakeUSDCurrent, &r.PctTotalStakeActive, &r.PctCirculatingStakedEst,
			&r.TokenPrice, &r.NetFlow, &r.DepositsEst, &r.WithdrawalsEst); err != nil {
			return nil, fmt.Errorf("scan staking_data: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertSentiment writes daily sentiment points.
func (d *DB) UpsertSentiment(ctx context.Context, points []types.SentimentPoint) error {
	if len(points) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, p := range points {
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO sentiment
			(date, symbol, sentiment_score, social_volume)
			VALUES (?,?,?,?)`,
			p.Date, p.Symbol, p.SentimentScore, p.SocialVolume,
		)
		if err != nil {
			return fmt.Errorf("upsert sentiment %s/%s: %w", p.Symbol, p.Date, err)
		}
	}
	return tx.Commit()
}

// SentimentRange returns sentiment points for a symbol between start and end
// inclusive, oldest first.
func (d *DB) SentimentRange(ctx context.Context, symbol, start, end string) ([]types.SentimentPoint, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT date, symbol, sentiment_score, social_volume
		FROM sentiment
		WHERE symbol = ? AND date BETWEEN ? AND ?
		ORDER BY date ASC`, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("query sentiment: %w", err)
	}
	defer rows.Close()

	var out []types.SentimentPoint
	for rows.Next() {
		var p types.SentimentPoint
		if err := rows.Scan(&p.Date, &p.Symbol, &p.SentimentScore, &p.SocialVolume); err != nil {
			return nil, fmt.Errorf("scan sentiment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) Close() error {
	return d.conn.Close()
}
