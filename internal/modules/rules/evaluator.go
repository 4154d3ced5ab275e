package rules

import (
	"math"

	"github.com/alevras/covercall/internal/domain"
)

// eqEpsilon is the tolerance for eq comparisons on float fields
const eqEpsilon = 1e-9

// TradeSnapshot is the evaluation input: the current state of one live
// (or simulated) trade, reduced to the fields rules can reference.
type TradeSnapshot struct {
	TradeID      string              `json:"trade_id"`
	Symbol       string              `json:"symbol"`
	StrategyType domain.StrategyType `json:"strategy_type"`

	PremiumCapturePct     float64 `json:"premium_capture_pct"`
	CurrentDelta          float64 `json:"current_delta"`
	LossPct               float64 `json:"loss_pct"`
	ProfitPct             float64 `json:"profit_pct"`
	DTERemaining          float64 `json:"dte_remaining"`
	DaysHeld              float64 `json:"days_held"`
	CurrentTheta          float64 `json:"current_theta"`
	CumulativeIncomeRatio float64 `json:"cumulative_income_ratio"`
}

// FieldValue resolves a condition field against the snapshot.
// Unknown fields report ok=false and never match.
func (s *TradeSnapshot) FieldValue(field ConditionField) (float64, bool) {
	switch field {
	case FieldPremiumCapturePct:
		return s.PremiumCapturePct, true
	case FieldCurrentDelta:
		return s.CurrentDelta, true
	case FieldLossPct:
		return s.LossPct, true
	case FieldProfitPct:
		return s.ProfitPct, true
	case FieldDTERemaining:
		return s.DTERemaining, true
	case FieldDaysHeld:
		return s.DaysHeld, true
	case FieldCurrentTheta:
		return s.CurrentTheta, true
	case FieldCumulativeIncomeRatio:
		return s.CumulativeIncomeRatio, true
	default:
		return 0, false
	}
}

// Matches reports whether the condition holds for the snapshot
func (c Condition) Matches(s *TradeSnapshot) bool {
	value, ok := s.FieldValue(c.Field)
	if !ok {
		return false
	}

	switch c.Operator {
	case OpGTE:
		return value >= c.Value
	case OpLTE:
		return value <= c.Value
	case OpGT:
		return value > c.Value
	case OpLT:
		return value < c.Value
	case OpEQ:
		return math.Abs(value-c.Value) <= eqEpsilon
	default:
		return false
	}
}

// Matches reports whether every condition of the rule holds for the
// snapshot. A rule with no conditions never matches.
func (r *Rule) Matches(s *TradeSnapshot) bool {
	if len(r.Conditions) == 0 {
		return false
	}
	for _, c := range r.Conditions {
		if !c.Matches(s) {
			return false
		}
	}
	return true
}

// Match is one rule firing against one trade snapshot
type Match struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	TradeID  string `json:"trade_id"`
	Symbol   string `json:"symbol"`
	Action   Action `json:"action"`
}

// Evaluate runs every enabled, strategy-compatible rule against every
// snapshot and returns the matches in input order. Pure function: counters
// are the caller's concern.
func Evaluate(ruleSet []Rule, snapshots []TradeSnapshot) []Match {
	matches := []Match{}
	for si := range snapshots {
		snap := &snapshots[si]
		for ri := range ruleSet {
			rule := &ruleSet[ri]
			if !rule.IsEnabled || !rule.AppliesTo(snap.StrategyType) {
				continue
			}
			if rule.Matches(snap) {
				matches = append(matches, Match{
					RuleID:   rule.ID,
					RuleName: rule.Name,
					TradeID:  snap.TradeID,
					Symbol:   snap.Symbol,
					Action:   rule.Action,
				})
			}
		}
	}
	return matches
}
