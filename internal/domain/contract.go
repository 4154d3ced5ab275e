package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// expiryLayouts are the date formats accepted from upstream feeds, tried in order
var expiryLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// FormatContract builds a compact option contract label like "26SEP25 150 C".
//
// expiry may be a time.Time, a parseable date string, or a numeric
// days-to-expiry count (interpreted as calendar days from now). strike may be
// a float64, *float64 or Num. Both missing yields the placeholder "-"; an
// unparseable expiry degrades to a strike-only label. Never panics - this
// formats untrusted feed data.
func FormatContract(expiry any, strike any, optType OptionType) string {
	return FormatContractAt(time.Now(), expiry, strike, optType)
}

// FormatContractAt is FormatContract with an explicit reference time for
// DTE-relative expiries. Callers that need deterministic output (tests,
// snapshot rendering) use this directly.
func FormatContractAt(now time.Time, expiry any, strike any, optType OptionType) string {
	strikeLabel, hasStrike := formatStrike(strike)
	expiryLabel, hasExpiry := formatExpiry(now, expiry)

	if !hasStrike && !hasExpiry {
		return "-"
	}

	right := "C"
	if optType == OptionPut {
		right = "P"
	}

	switch {
	case hasStrike && hasExpiry:
		return fmt.Sprintf("%s %s %s", expiryLabel, strikeLabel, right)
	case hasStrike:
		return fmt.Sprintf("%s %s", strikeLabel, right)
	default:
		return fmt.Sprintf("%s %s", expiryLabel, right)
	}
}

// formatStrike renders the strike with zero decimals.
// Rounding is half-away-from-zero, matching the upstream display convention
// (49.5 renders as "50").
func formatStrike(strike any) (string, bool) {
	var v float64
	switch s := strike.(type) {
	case nil:
		return "", false
	case float64:
		v = s
	case float32:
		v = float64(s)
	case int:
		v = float64(s)
	case *float64:
		if s == nil {
			return "", false
		}
		v = *s
	case Num:
		if !s.Set {
			return "", false
		}
		v = s.Value
	default:
		return "", false
	}
	return fmt.Sprintf("%d", int64(math.Round(v))), true
}

// formatExpiry renders a DDMMMYY label, resolving numeric DTE values against now
func formatExpiry(now time.Time, expiry any) (string, bool) {
	var t time.Time
	switch e := expiry.(type) {
	case nil:
		return "", false
	case time.Time:
		if e.IsZero() {
			return "", false
		}
		t = e
	case *time.Time:
		if e == nil || e.IsZero() {
			return "", false
		}
		t = *e
	case int:
		t = now.AddDate(0, 0, e)
	case float64:
		t = now.AddDate(0, 0, int(e))
	case Num:
		if !e.Set {
			return "", false
		}
		t = now.AddDate(0, 0, int(e.Value))
	case string:
		parsed, ok := parseExpiry(e)
		if !ok {
			return "", false
		}
		t = parsed
	default:
		return "", false
	}
	return strings.ToUpper(t.Format("02Jan06")), true
}

// parseExpiry tries the known upstream date layouts in order
func parseExpiry(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
