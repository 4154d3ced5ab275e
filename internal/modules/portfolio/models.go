// Package portfolio stores imported brokerage stock positions, the raw
// material for covered call writing.
package portfolio

import (
	"math"
	"time"
)

// Position is one imported stock holding
type Position struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Account    string    `json:"account,omitempty"`
	Quantity   float64   `json:"quantity"` // shares
	AvgCost    float64   `json:"avg_cost"` // per share
	LastPrice  float64   `json:"last_price"`
	Currency   string    `json:"currency,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CoverableContracts is how many call contracts the position can cover,
// one per 100 shares.
func (p *Position) CoverableContracts() int {
	if p.Quantity <= 0 {
		return 0
	}
	return int(math.Floor(p.Quantity / 100))
}

// MarketValue marks the position at its last price
func (p *Position) MarketValue() float64 {
	return p.Quantity * p.LastPrice
}

// UnrealizedPnL against average cost
func (p *Position) UnrealizedPnL() float64 {
	return (p.LastPrice - p.AvgCost) * p.Quantity
}

// ImportRecord is one row of an incoming position import
type ImportRecord struct {
	Symbol    string  `json:"symbol"`
	Account   string  `json:"account"`
	Quantity  float64 `json:"quantity"`
	AvgCost   float64 `json:"avg_cost"`
	LastPrice float64 `json:"last_price"`
	Currency  string  `json:"currency"`
}

// ImportResult summarizes an import run
type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}
