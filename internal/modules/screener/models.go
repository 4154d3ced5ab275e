// Package screener implements the PMCC opportunity pipeline: normalization
// of raw scan records into a canonical shape, deduplication, sorting and
// scan-level summary statistics.
//
// The upstream scan feed has evolved through several incompatible record
// shapes over time (flat leap_*/leaps_*/long_* fields, nested
// long_call/short_call/economics objects). The types here model the union of
// those shapes; the normalizer absorbs the drift.
package screener

import (
	"github.com/alevras/covercall/internal/domain"
)

// RawLeg is one option leg as delivered by the feed (nested shape)
type RawLeg struct {
	Strike            domain.Num `json:"strike"`
	DTE               domain.Num `json:"dte"`
	Premium           domain.Num `json:"premium"`
	Bid               domain.Num `json:"bid"`
	Ask               domain.Num `json:"ask"`
	Delta             domain.Num `json:"delta"`
	Expiry            string     `json:"expiry"`
	OpenInterest      domain.Num `json:"open_interest"`
	ImpliedVolatility domain.Num `json:"implied_volatility"`
}

// RawEconomics is the nested economics block (newest feed shape)
type RawEconomics struct {
	Width            domain.Num `json:"width"`
	NetDebit         domain.Num `json:"net_debit"`
	ROIPct           domain.Num `json:"roi_pct"`
	AnnualizedROIPct domain.Num `json:"annualized_roi_pct"`
	Breakeven        domain.Num `json:"breakeven"`
	MaxProfit        domain.Num `json:"max_profit"`
}

// ScorePillar is one component of the composite opportunity score
type ScorePillar struct {
	Name        string  `json:"name"`
	ActualScore float64 `json:"actual_score"`
	MaxScore    float64 `json:"max_score"`
	Percentage  float64 `json:"percentage"`
}

// ScoreBreakdown maps pillar name to pillar detail
type ScoreBreakdown struct {
	Pillars map[string]ScorePillar `json:"pillars"`
}

// RawOpportunity is an untrusted scan record: the union of every historical
// feed shape. All numeric fields use domain.Num so partial or malformed
// records decode without error.
type RawOpportunity struct {
	Symbol         string               `json:"symbol"`
	StockPrice     domain.Num           `json:"stock_price"`
	Score          domain.Num           `json:"score"`
	ScoreBreakdown *ScoreBreakdown      `json:"score_breakdown,omitempty"`
	AnalystRating  domain.AnalystRating `json:"analyst_rating,omitempty"`

	// Nested shape (current feed)
	LongCall  *RawLeg       `json:"long_call,omitempty"`
	ShortCall *RawLeg       `json:"short_call,omitempty"`
	Economics *RawEconomics `json:"economics,omitempty"`

	// Legacy flat long-leg fields. Precedence within the flat shapes is
	// fixed: leap_ before leaps_ before long_.
	LeapStrike  domain.Num `json:"leap_strike"`
	LeapsStrike domain.Num `json:"leaps_strike"`
	LongStrike  domain.Num `json:"long_strike"`

	LeapDTE  domain.Num `json:"leap_dte"`
	LeapsDTE domain.Num `json:"leaps_dte"`
	LongDTE  domain.Num `json:"long_dte"`

	LeapPremium  domain.Num `json:"leap_premium"`
	LeapsPremium domain.Num `json:"leaps_premium"`
	LongPremium  domain.Num `json:"long_premium"`

	LeapAsk  domain.Num `json:"leap_ask"`
	LeapsAsk domain.Num `json:"leaps_ask"`
	LongAsk  domain.Num `json:"long_ask"`

	LeapCost  domain.Num `json:"leap_cost"`
	LeapsCost domain.Num `json:"leaps_cost"`
	LongCost  domain.Num `json:"long_cost"`

	LeapDelta  domain.Num `json:"leap_delta"`
	LeapsDelta domain.Num `json:"leaps_delta"`
	LongDelta  domain.Num `json:"long_delta"`

	LeapExpiry  string `json:"leap_expiry"`
	LeapsExpiry string `json:"leaps_expiry"`
	LongExpiry  string `json:"long_expiry"`

	LeapOI  domain.Num `json:"leap_oi"`
	LeapsOI domain.Num `json:"leaps_oi"`

	LeapIV  domain.Num `json:"leap_iv"`
	LeapsIV domain.Num `json:"leaps_iv"`
	LongIV  domain.Num `json:"long_iv"`

	// Legacy flat short-leg fields
	ShortStrike       domain.Num `json:"short_strike"`
	ShortDTE          domain.Num `json:"short_dte"`
	ShortPremium      domain.Num `json:"short_premium"`
	ShortPremiumTotal domain.Num `json:"short_premium_total"`
	ShortBid          domain.Num `json:"short_bid"`
	ShortAsk          domain.Num `json:"short_ask"`
	ShortDelta        domain.Num `json:"short_delta"`
	ShortIV           domain.Num `json:"short_iv"`
	ShortExpiry       string     `json:"short_expiry"`

	// Legacy flat economics fields
	NetDebit      domain.Num `json:"net_debit"`
	NetDebitTotal domain.Num `json:"net_debit_total"`
	ROIPerCycle   domain.Num `json:"roi_per_cycle"`
	ROIPct        domain.Num `json:"roi_pct"`
	AnnualizedROI domain.Num `json:"annualized_roi"`
	Width         domain.Num `json:"width"`
	StrikeWidth   domain.Num `json:"strike_width"`
	Breakeven     domain.Num `json:"breakeven"`
	MaxProfit     domain.Num `json:"max_profit"`
}

// NormalizedOpportunity is the canonical record shape. All monetary values
// are total per-contract dollars unless the field name says per-share
// (leaps_premium, leaps_ask, short_premium, short_ask).
type NormalizedOpportunity struct {
	Symbol         string               `json:"symbol"`
	StockPrice     float64              `json:"stock_price"`
	Score          float64              `json:"score"`
	ScoreBreakdown *ScoreBreakdown      `json:"score_breakdown,omitempty"`
	AnalystRating  domain.AnalystRating `json:"analyst_rating,omitempty"`

	// Nested legs preserved verbatim when present, empty objects otherwise
	LongCall  RawLeg `json:"long_call"`
	ShortCall RawLeg `json:"short_call"`

	// Long leg (LEAPS)
	LeapsDTE     int     `json:"leaps_dte"`
	LeapsStrike  float64 `json:"leaps_strike"`
	LeapsPremium float64 `json:"leaps_premium"` // per-share
	LeapsAsk     float64 `json:"leaps_ask"`     // per-share
	LeapsCost    float64 `json:"leaps_cost"`    // total per contract
	LeapsDelta   float64 `json:"leaps_delta"`
	LeapsExpiry  string  `json:"leaps_expiry"`
	LeapsOI      int     `json:"leaps_oi"`
	LeapsIV      float64 `json:"leaps_iv"`

	// Short leg
	ShortDelta        float64 `json:"short_delta"`
	ShortDTE          int     `json:"short_dte"`
	ShortPremium      float64 `json:"short_premium"`       // per-share
	ShortPremiumTotal float64 `json:"short_premium_total"` // total per contract
	ShortIV           float64 `json:"short_iv"`
	ShortStrike       float64 `json:"short_strike"`
	ShortExpiry       string  `json:"short_expiry"`
	ShortAsk          float64 `json:"short_ask"` // per-share

	// Economics
	StrikeWidth   float64 `json:"strike_width"`
	NetDebit      float64 `json:"net_debit"`
	ROIPerCycle   float64 `json:"roi_per_cycle"`
	AnnualizedROI float64 `json:"annualized_roi"`
	Breakeven     float64 `json:"breakeven"`
	MaxProfit     float64 `json:"max_profit"`

	// Trend context annotated from candle history (empty when unavailable)
	UnderlyingTrend string `json:"underlying_trend,omitempty"`
}

// ContractLabels renders the compact display labels for both legs
func (o *NormalizedOpportunity) ContractLabels() (long, short string) {
	long = domain.FormatContract(expiryOrDTE(o.LeapsExpiry, o.LeapsDTE), strikeOrNil(o.LeapsStrike), domain.OptionCall)
	short = domain.FormatContract(expiryOrDTE(o.ShortExpiry, o.ShortDTE), strikeOrNil(o.ShortStrike), domain.OptionCall)
	return long, short
}

// strikeOrNil treats a zero strike as missing (strikes are never zero)
func strikeOrNil(s float64) any {
	if s == 0 {
		return nil
	}
	return s
}

// expiryOrDTE prefers the explicit expiry date, falling back to DTE days
func expiryOrDTE(expiry string, dte int) any {
	if expiry != "" {
		return expiry
	}
	if dte > 0 {
		return dte
	}
	return nil
}
