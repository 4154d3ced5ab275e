// Package domain provides core domain models and types.
// The domain layer is pure: no infrastructure dependencies.
package domain

import "time"

// StrategyType represents the option income strategy a record applies to
type StrategyType string

const (
	// StrategyCoveredCall represents a classic covered call (long stock, short call)
	StrategyCoveredCall StrategyType = "covered_call"
	// StrategyPMCC represents a poor man's covered call (long LEAPS, short call)
	StrategyPMCC StrategyType = "pmcc"
	// StrategyAny applies to both strategies (empty strategy_type upstream)
	StrategyAny StrategyType = ""
)

// OptionType represents the option right
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// AnalystRating is the upstream consensus rating enum (may be absent)
type AnalystRating string

const (
	RatingStrongBuy  AnalystRating = "Strong Buy"
	RatingBuy        AnalystRating = "Buy"
	RatingHold       AnalystRating = "Hold"
	RatingSell       AnalystRating = "Sell"
	RatingStrongSell AnalystRating = "Strong Sell"
)

// TradeStatus represents the lifecycle state of a simulated trade
type TradeStatus string

const (
	TradeOpen     TradeStatus = "open"
	TradeRolled   TradeStatus = "rolled"
	TradeClosed   TradeStatus = "closed"
	TradeAssigned TradeStatus = "assigned"
	TradeExpired  TradeStatus = "expired"
)

// Quote is a lightweight price tick from the quote stream
type Quote struct {
	Symbol    string    `json:"symbol"`
	Last      float64   `json:"last"`
	Bid       float64   `json:"bid,omitempty"`
	Ask       float64   `json:"ask,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Candle is a daily OHLCV bar used for trend context
type Candle struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}
