package screener

import (
	"math"

	"github.com/alevras/covercall/internal/domain"
)

// Per-share vs total disambiguation thresholds. The feed never tagged
// monetary fields with a unit, so values below these magnitudes are assumed
// to be per-share and scaled by the contract multiplier. The check is
// one-directional: a value at or above the threshold is never re-scaled,
// which is what makes normalization idempotent.
const (
	contractMultiplier = 100

	// Long leg cost and net debit: a genuine total is at least $50
	leapsTotalThreshold = 50
	// Short premium total: a genuine total is at least $10
	shortTotalThreshold = 10
)

// Normalize converts a raw scan record into the canonical shape.
// nil in, nil out. Every derived field falls back to zero rather than
// failing: the feed's history of partial records makes this the contract.
//
// Resolution order per field group: nested object value first, then the
// legacy flat prefixes in fixed order (leap_, leaps_, long_), then a
// computed default.
func Normalize(raw *RawOpportunity) *NormalizedOpportunity {
	if raw == nil {
		return nil
	}

	long := raw.LongCall
	short := raw.ShortCall
	econ := raw.Economics

	out := &NormalizedOpportunity{
		Symbol:         raw.Symbol,
		StockPrice:     raw.StockPrice.Float(),
		Score:          raw.Score.Float(),
		ScoreBreakdown: raw.ScoreBreakdown,
		AnalystRating:  raw.AnalystRating,
	}

	// Nested legs pass through verbatim; empty objects when absent
	if long != nil {
		out.LongCall = *long
	}
	if short != nil {
		out.ShortCall = *short
	}

	// Long leg (LEAPS)
	out.LeapsDTE = days(legNum(long, func(l *RawLeg) domain.Num { return l.DTE }).
		Or(raw.LeapDTE, raw.LeapsDTE, raw.LongDTE))
	out.LeapsStrike = legNum(long, func(l *RawLeg) domain.Num { return l.Strike }).
		Or(raw.LeapStrike, raw.LeapsStrike, raw.LongStrike).Float()

	leapsPremium := legNum(long, func(l *RawLeg) domain.Num { return l.Premium }).
		Or(legNum(long, func(l *RawLeg) domain.Num { return l.Ask }),
			raw.LeapPremium, raw.LeapsPremium, raw.LongPremium)
	out.LeapsPremium = leapsPremium.Float()
	out.LeapsAsk = legNum(long, func(l *RawLeg) domain.Num { return l.Ask }).
		Or(raw.LeapAsk, raw.LeapsAsk, raw.LongAsk).Float()

	// Explicit cost fields win over a cost derived from the per-share premium
	leapsCost := raw.LeapCost.Or(raw.LeapsCost, raw.LongCost, leapsPremium)
	out.LeapsCost = scaleToTotal(leapsCost, leapsTotalThreshold)

	out.LeapsDelta = legNum(long, func(l *RawLeg) domain.Num { return l.Delta }).
		Or(raw.LeapDelta, raw.LeapsDelta, raw.LongDelta).Float()
	out.LeapsExpiry = firstString(legString(long), raw.LeapExpiry, raw.LeapsExpiry, raw.LongExpiry)
	out.LeapsOI = int(legNum(long, func(l *RawLeg) domain.Num { return l.OpenInterest }).
		Or(raw.LeapOI, raw.LeapsOI).Float())
	out.LeapsIV = legNum(long, func(l *RawLeg) domain.Num { return l.ImpliedVolatility }).
		Or(raw.LeapIV, raw.LeapsIV, raw.LongIV).Float()

	// Short leg
	out.ShortDelta = legNum(short, func(l *RawLeg) domain.Num { return l.Delta }).
		Or(raw.ShortDelta).Float()
	out.ShortDTE = days(legNum(short, func(l *RawLeg) domain.Num { return l.DTE }).
		Or(raw.ShortDTE))
	out.ShortStrike = legNum(short, func(l *RawLeg) domain.Num { return l.Strike }).
		Or(raw.ShortStrike).Float()
	out.ShortExpiry = firstString(legString(short), raw.ShortExpiry)
	out.ShortAsk = legNum(short, func(l *RawLeg) domain.Num { return l.Ask }).
		Or(raw.ShortAsk).Float()
	out.ShortIV = legNum(short, func(l *RawLeg) domain.Num { return l.ImpliedVolatility }).
		Or(raw.ShortIV).Float()

	shortPremium := legNum(short, func(l *RawLeg) domain.Num { return l.Premium }).
		Or(legNum(short, func(l *RawLeg) domain.Num { return l.Bid }),
			legNum(short, func(l *RawLeg) domain.Num { return l.Ask }),
			raw.ShortPremium, raw.ShortBid)
	out.ShortPremium = shortPremium.Float()

	shortTotal := raw.ShortPremiumTotal.Or(shortPremium)
	out.ShortPremiumTotal = scaleToTotal(shortTotal, shortTotalThreshold)

	// Economics: nested block wins, then flat fields, then derivation
	width := econNum(econ, func(e *RawEconomics) domain.Num { return e.Width }).
		Or(raw.Width, raw.StrikeWidth)
	if width.Set {
		out.StrikeWidth = width.Float()
	} else if out.ShortStrike != 0 && out.LeapsStrike != 0 {
		out.StrikeWidth = out.ShortStrike - out.LeapsStrike
	}

	netDebit := econNum(econ, func(e *RawEconomics) domain.Num { return e.NetDebit }).
		Or(raw.NetDebit, raw.NetDebitTotal)
	if !netDebit.Set && out.LeapsCost != 0 {
		netDebit = domain.N(out.LeapsCost - out.ShortPremiumTotal)
	}
	out.NetDebit = scaleToTotal(netDebit, leapsTotalThreshold)

	roi := econNum(econ, func(e *RawEconomics) domain.Num { return e.ROIPct }).
		Or(raw.ROIPerCycle, raw.ROIPct)
	if roi.Set {
		out.ROIPerCycle = roi.Float()
	} else if out.NetDebit > 0 {
		out.ROIPerCycle = out.ShortPremiumTotal / out.NetDebit * 100
	}

	annualized := econNum(econ, func(e *RawEconomics) domain.Num { return e.AnnualizedROIPct }).
		Or(raw.AnnualizedROI)
	if annualized.Set {
		out.AnnualizedROI = annualized.Float()
	} else if out.ShortDTE > 0 {
		out.AnnualizedROI = out.ROIPerCycle * 365 / float64(out.ShortDTE)
	}

	out.Breakeven = econNum(econ, func(e *RawEconomics) domain.Num { return e.Breakeven }).
		Or(raw.Breakeven).Float()
	out.MaxProfit = econNum(econ, func(e *RawEconomics) domain.Num { return e.MaxProfit }).
		Or(raw.MaxProfit).Float()

	return out
}

// scaleToTotal converts an ambiguous monetary value to total per-contract
// dollars. Values below the threshold are assumed per-share and multiplied
// by the contract multiplier; values at or above it pass through unchanged.
func scaleToTotal(n domain.Num, threshold float64) float64 {
	if !n.Set || n.Value == 0 {
		return 0
	}
	if n.Value < threshold {
		return n.Value * contractMultiplier
	}
	return n.Value
}

// days rounds a DTE value to whole days
func days(n domain.Num) int {
	if !n.Set {
		return 0
	}
	return int(math.Round(n.Value))
}

// legNum extracts a field from a possibly-nil nested leg
func legNum(leg *RawLeg, get func(*RawLeg) domain.Num) domain.Num {
	if leg == nil {
		return domain.Num{}
	}
	return get(leg)
}

// legString extracts the expiry from a possibly-nil nested leg
func legString(leg *RawLeg) string {
	if leg == nil {
		return ""
	}
	return leg.Expiry
}

// econNum extracts a field from a possibly-nil economics block
func econNum(econ *RawEconomics, get func(*RawEconomics) domain.Num) domain.Num {
	if econ == nil {
		return domain.Num{}
	}
	return get(econ)
}

// firstString returns the first non-empty string
func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
