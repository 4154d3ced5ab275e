package screener

import "sort"

// SortDirection for pipeline output
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// DedupeAndSort runs the scan result pipeline: deduplicate by symbol keeping
// the record with the highest score (first seen wins on ties), normalize the
// survivors, then sort by the requested field. The input slice is not
// mutated and the sort is stable so equal keys keep first-seen order.
func DedupeAndSort(raws []RawOpportunity, sortField string, direction SortDirection) []NormalizedOpportunity {
	if len(raws) == 0 {
		return []NormalizedOpportunity{}
	}

	// Dedupe by symbol, keep best score, preserve first-seen ordering
	bestBySymbol := make(map[string]int, len(raws))
	deduped := make([]RawOpportunity, 0, len(raws))
	for _, raw := range raws {
		idx, seen := bestBySymbol[raw.Symbol]
		if !seen {
			bestBySymbol[raw.Symbol] = len(deduped)
			deduped = append(deduped, raw)
			continue
		}
		if raw.Score.Float() > deduped[idx].Score.Float() {
			deduped[idx] = raw
		}
	}

	out := make([]NormalizedOpportunity, 0, len(deduped))
	for i := range deduped {
		if n := Normalize(&deduped[i]); n != nil {
			out = append(out, *n)
		}
	}

	sortInPlace(out, sortField, direction)
	return out
}

// sortInPlace stable-sorts normalized opportunities by field and direction
func sortInPlace(opps []NormalizedOpportunity, sortField string, direction SortDirection) {
	sort.SliceStable(opps, func(i, j int) bool {
		a := sortValue(&opps[i], sortField)
		b := sortValue(&opps[j], sortField)
		if direction == SortDesc {
			return a > b
		}
		return a < b
	})
}

// sortValue extracts the sort key for a field name; unknown or missing
// fields sort as zero.
func sortValue(o *NormalizedOpportunity, field string) float64 {
	switch field {
	case "score", "":
		return o.Score
	case "stock_price":
		return o.StockPrice
	case "leaps_dte":
		return float64(o.LeapsDTE)
	case "leaps_strike":
		return o.LeapsStrike
	case "leaps_cost":
		return o.LeapsCost
	case "leaps_delta":
		return o.LeapsDelta
	case "short_dte":
		return float64(o.ShortDTE)
	case "short_delta":
		return o.ShortDelta
	case "short_premium":
		return o.ShortPremium
	case "short_premium_total":
		return o.ShortPremiumTotal
	case "strike_width":
		return o.StrikeWidth
	case "net_debit":
		return o.NetDebit
	case "roi_per_cycle":
		return o.ROIPerCycle
	case "annualized_roi":
		return o.AnnualizedROI
	case "breakeven":
		return o.Breakeven
	case "max_profit":
		return o.MaxProfit
	default:
		return 0
	}
}
