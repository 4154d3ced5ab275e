// Package formulas provides technical indicator helpers used for the
// underlying trend context on screened opportunities.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// CalculateEMA returns the latest exponential moving average over closes,
// or nil if there is insufficient data for the requested period.
func CalculateEMA(closes []float64, period int) *float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}

	ema := talib.Ema(closes, period)
	if len(ema) == 0 {
		return nil
	}

	last := ema[len(ema)-1]
	if math.IsNaN(last) {
		return nil
	}
	return &last
}

// CalculateRSI returns the latest Relative Strength Index value (0-100),
// or nil if there is insufficient data.
func CalculateRSI(closes []float64, length int) *float64 {
	if length <= 0 || len(closes) < length+1 {
		return nil
	}

	rsi := talib.Rsi(closes, length)
	if len(rsi) == 0 {
		return nil
	}

	last := rsi[len(rsi)-1]
	if math.IsNaN(last) {
		return nil
	}
	return &last
}
