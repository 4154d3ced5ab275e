// Package simulator implements the paper-trade book: simulated covered call
// and PMCC positions, price marking, P&L bookkeeping and the trade snapshots
// consumed by rule evaluation.
package simulator

import (
	"math"
	"time"

	"github.com/alevras/covercall/internal/domain"
	"github.com/alevras/covercall/internal/modules/rules"
)

// Trade is one simulated position. Option prices are per-share; dollar
// amounts (income, P&L) are totals across the whole position.
type Trade struct {
	ID           string              `json:"id"`
	Symbol       string              `json:"symbol"`
	StrategyType domain.StrategyType `json:"strategy_type"`
	Status       domain.TradeStatus  `json:"status"`
	Quantity     int                 `json:"quantity"` // contracts
	OpenedAt     time.Time           `json:"opened_at"`
	ClosedAt     *time.Time          `json:"closed_at,omitempty"`

	// Long leg: LEAPS for PMCC, stock basis for covered calls
	LongStrike  float64 `json:"long_strike,omitempty"`
	LongExpiry  string  `json:"long_expiry,omitempty"`
	LongEntry   float64 `json:"long_entry"`   // per-share
	LongCurrent float64 `json:"long_current"` // per-share
	StockEntry  float64 `json:"stock_entry,omitempty"`
	StockPrice  float64 `json:"stock_price,omitempty"`

	// Short call leg
	ShortStrike  float64 `json:"short_strike"`
	ShortExpiry  string  `json:"short_expiry"`
	ShortEntry   float64 `json:"short_entry"`   // per-share credit received
	ShortCurrent float64 `json:"short_current"` // per-share cost to close
	ShortDelta   float64 `json:"short_delta"`
	ShortTheta   float64 `json:"short_theta"`

	RollCount        int     `json:"roll_count"`
	CumulativeIncome float64 `json:"cumulative_income"` // realized short premium, total dollars
	RealizedPnL      float64 `json:"realized_pnl"`
}

// shares per contract
const contractSize = 100

// CostBasis is the capital at risk: net debit for a PMCC, stock cost less
// the initial credit for a covered call.
func (t *Trade) CostBasis() float64 {
	qty := float64(t.Quantity)
	if t.StrategyType == domain.StrategyPMCC {
		return (t.LongEntry - t.ShortEntry) * contractSize * qty
	}
	return (t.StockEntry - t.ShortEntry) * contractSize * qty
}

// UnrealizedPnL marks the open position against current prices
func (t *Trade) UnrealizedPnL() float64 {
	qty := float64(t.Quantity)
	shortLeg := (t.ShortEntry - t.ShortCurrent) * contractSize * qty
	if t.StrategyType == domain.StrategyPMCC {
		return (t.LongCurrent-t.LongEntry)*contractSize*qty + shortLeg
	}
	return (t.StockPrice-t.StockEntry)*contractSize*qty + shortLeg
}

// PremiumCapturePct is how much of the current short call's credit has
// decayed away, clamped to [0, 100].
func (t *Trade) PremiumCapturePct() float64 {
	if t.ShortEntry <= 0 {
		return 0
	}
	pct := (t.ShortEntry - t.ShortCurrent) / t.ShortEntry * 100
	return math.Max(0, math.Min(100, pct))
}

// DTERemaining is whole days until the short expiry, never negative.
// Unparseable expiries count as zero days.
func (t *Trade) DTERemaining(now time.Time) float64 {
	expiry, err := time.Parse("2006-01-02", t.ShortExpiry)
	if err != nil {
		return 0
	}
	days := math.Ceil(expiry.Sub(now).Hours() / 24)
	return math.Max(0, days)
}

// Snapshot reduces the trade to the fields rules can reference
func (t *Trade) Snapshot(now time.Time) rules.TradeSnapshot {
	snap := rules.TradeSnapshot{
		TradeID:           t.ID,
		Symbol:            t.Symbol,
		StrategyType:      t.StrategyType,
		PremiumCapturePct: t.PremiumCapturePct(),
		CurrentDelta:      t.ShortDelta,
		CurrentTheta:      t.ShortTheta,
		DTERemaining:      t.DTERemaining(now),
		DaysHeld:          math.Max(0, math.Floor(now.Sub(t.OpenedAt).Hours()/24)),
	}

	basis := t.CostBasis()
	if basis > 0 {
		pnlPct := t.UnrealizedPnL() / basis * 100
		if pnlPct >= 0 {
			snap.ProfitPct = pnlPct
		} else {
			snap.LossPct = -pnlPct
		}
		snap.CumulativeIncomeRatio = t.CumulativeIncome / basis
	}
	return snap
}

// ContractLabels renders the compact leg labels for display
func (t *Trade) ContractLabels() (long, short string) {
	if t.StrategyType == domain.StrategyPMCC {
		long = domain.FormatContract(t.LongExpiry, nonZero(t.LongStrike), domain.OptionCall)
	} else {
		long = t.Symbol // covered call long leg is the stock itself
	}
	short = domain.FormatContract(t.ShortExpiry, nonZero(t.ShortStrike), domain.OptionCall)
	return long, short
}

func nonZero(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}

// Mark is a per-trade price update pushed by the caller (or derived from
// the quote stream for stock prices).
type Mark struct {
	TradeID      string   `json:"trade_id"`
	StockPrice   *float64 `json:"stock_price,omitempty"`
	LongCurrent  *float64 `json:"long_current,omitempty"`
	ShortCurrent *float64 `json:"short_current,omitempty"`
	ShortDelta   *float64 `json:"short_delta,omitempty"`
	ShortTheta   *float64 `json:"short_theta,omitempty"`
}
