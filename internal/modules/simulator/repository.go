package simulator

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alevras/covercall/internal/domain"
)

// Repository handles database operations for simulated trades
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a trade repository and ensures its schema exists
func NewRepository(db *sql.DB, log zerolog.Logger) (*Repository, error) {
	repo := &Repository{
		db:  db,
		log: log.With().Str("component", "simulator_repository").Logger(),
	}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize simulator schema: %w", err)
	}
	return repo, nil
}

func (r *Repository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS simulated_trades (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		strategy_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		quantity INTEGER NOT NULL DEFAULT 1,
		opened_at INTEGER NOT NULL,
		closed_at INTEGER,
		long_strike REAL NOT NULL DEFAULT 0,
		long_expiry TEXT NOT NULL DEFAULT '',
		long_entry REAL NOT NULL DEFAULT 0,
		long_current REAL NOT NULL DEFAULT 0,
		stock_entry REAL NOT NULL DEFAULT 0,
		stock_price REAL NOT NULL DEFAULT 0,
		short_strike REAL NOT NULL DEFAULT 0,
		short_expiry TEXT NOT NULL DEFAULT '',
		short_entry REAL NOT NULL DEFAULT 0,
		short_current REAL NOT NULL DEFAULT 0,
		short_delta REAL NOT NULL DEFAULT 0,
		short_theta REAL NOT NULL DEFAULT 0,
		roll_count INTEGER NOT NULL DEFAULT 0,
		cumulative_income REAL NOT NULL DEFAULT 0,
		realized_pnl REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_simulated_trades_status ON simulated_trades(status);
	CREATE INDEX IF NOT EXISTS idx_simulated_trades_symbol ON simulated_trades(symbol);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

const tradeColumns = `id, symbol, strategy_type, status, quantity, opened_at, closed_at,
	long_strike, long_expiry, long_entry, long_current, stock_entry, stock_price,
	short_strike, short_expiry, short_entry, short_current, short_delta, short_theta,
	roll_count, cumulative_income, realized_pnl`

// Create inserts a new trade
func (r *Repository) Create(trade *Trade) error {
	query := `INSERT INTO simulated_trades (` + tradeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var closedAt *int64
	if trade.ClosedAt != nil {
		ts := trade.ClosedAt.Unix()
		closedAt = &ts
	}

	_, err := r.db.Exec(query,
		trade.ID, trade.Symbol, string(trade.StrategyType), string(trade.Status),
		trade.Quantity, trade.OpenedAt.Unix(), closedAt,
		trade.LongStrike, trade.LongExpiry, trade.LongEntry, trade.LongCurrent,
		trade.StockEntry, trade.StockPrice,
		trade.ShortStrike, trade.ShortExpiry, trade.ShortEntry, trade.ShortCurrent,
		trade.ShortDelta, trade.ShortTheta,
		trade.RollCount, trade.CumulativeIncome, trade.RealizedPnL,
	)
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

// Update persists the full trade state
func (r *Repository) Update(trade *Trade) error {
	query := `UPDATE simulated_trades SET
		symbol = ?, strategy_type = ?, status = ?, quantity = ?, closed_at = ?,
		long_strike = ?, long_expiry = ?, long_entry = ?, long_current = ?,
		stock_entry = ?, stock_price = ?,
		short_strike = ?, short_expiry = ?, short_entry = ?, short_current = ?,
		short_delta = ?, short_theta = ?,
		roll_count = ?, cumulative_income = ?, realized_pnl = ?
		WHERE id = ?`

	var closedAt *int64
	if trade.ClosedAt != nil {
		ts := trade.ClosedAt.Unix()
		closedAt = &ts
	}

	result, err := r.db.Exec(query,
		trade.Symbol, string(trade.StrategyType), string(trade.Status),
		trade.Quantity, closedAt,
		trade.LongStrike, trade.LongExpiry, trade.LongEntry, trade.LongCurrent,
		trade.StockEntry, trade.StockPrice,
		trade.ShortStrike, trade.ShortExpiry, trade.ShortEntry, trade.ShortCurrent,
		trade.ShortDelta, trade.ShortTheta,
		trade.RollCount, trade.CumulativeIncome, trade.RealizedPnL,
		trade.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}
	return requireRowAffected(result)
}

// GetByID retrieves a single trade, nil if it doesn't exist
func (r *Repository) GetByID(id string) (*Trade, error) {
	row := r.db.QueryRow(`SELECT `+tradeColumns+` FROM simulated_trades WHERE id = ?`, id)
	trade, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return trade, nil
}

// List returns all trades, optionally filtered by status. Open trades first,
// newest first within each status.
func (r *Repository) List(status domain.TradeStatus) ([]Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM simulated_trades`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY status = 'open' DESC, opened_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	trades := []Trade{}
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, *trade)
	}
	return trades, rows.Err()
}

// ListOpen returns only trades still on the book
func (r *Repository) ListOpen() ([]Trade, error) {
	return r.List(domain.TradeOpen)
}

// Delete removes a trade
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM simulated_trades WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	return requireRowAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (*Trade, error) {
	var trade Trade
	var strategy, status string
	var openedAt int64
	var closedAt sql.NullInt64

	err := row.Scan(
		&trade.ID, &trade.Symbol, &strategy, &status, &trade.Quantity,
		&openedAt, &closedAt,
		&trade.LongStrike, &trade.LongExpiry, &trade.LongEntry, &trade.LongCurrent,
		&trade.StockEntry, &trade.StockPrice,
		&trade.ShortStrike, &trade.ShortExpiry, &trade.ShortEntry, &trade.ShortCurrent,
		&trade.ShortDelta, &trade.ShortTheta,
		&trade.RollCount, &trade.CumulativeIncome, &trade.RealizedPnL,
	)
	if err != nil {
		return nil, err
	}

	trade.StrategyType = domain.StrategyType(strategy)
	trade.Status = domain.TradeStatus(status)
	trade.OpenedAt = time.Unix(openedAt, 0).UTC()
	if closedAt.Valid {
		ts := time.Unix(closedAt.Int64, 0).UTC()
		trade.ClosedAt = &ts
	}
	return &trade, nil
}

func requireRowAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return ErrTradeNotFound
	}
	return nil
}
