package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alevras/covercall/internal/domain"
)

func enabledRule(id string, strategy domain.StrategyType, conditions ...Condition) Rule {
	return Rule{
		ID:           id,
		Name:         id,
		StrategyType: strategy,
		Conditions:   conditions,
		Action:       Action{ActionType: ActionAlert},
		IsEnabled:    true,
	}
}

func TestCondition_Operators(t *testing.T) {
	snap := &TradeSnapshot{PremiumCapturePct: 80}

	cases := []struct {
		op    Operator
		value float64
		want  bool
	}{
		{OpGTE, 80, true},
		{OpGTE, 80.1, false},
		{OpLTE, 80, true},
		{OpLTE, 79.9, false},
		{OpGT, 79.9, true},
		{OpGT, 80, false},
		{OpLT, 80.1, true},
		{OpLT, 80, false},
		{OpEQ, 80, true},
		{OpEQ, 79, false},
	}

	for _, tc := range cases {
		c := Condition{Field: FieldPremiumCapturePct, Operator: tc.op, Value: tc.value}
		assert.Equal(t, tc.want, c.Matches(snap), "%s %v", tc.op, tc.value)
	}

	// Unknown operators and fields never match
	assert.False(t, Condition{Field: FieldPremiumCapturePct, Operator: "between", Value: 1}.Matches(snap))
	assert.False(t, Condition{Field: "volume", Operator: OpGTE, Value: 0}.Matches(snap))
}

func TestRule_ConditionsAreANDed(t *testing.T) {
	rule := enabledRule("r1", domain.StrategyAny,
		Condition{Field: FieldPremiumCapturePct, Operator: OpGTE, Value: 50},
		Condition{Field: FieldDTERemaining, Operator: OpGTE, Value: 14},
	)

	assert.True(t, rule.Matches(&TradeSnapshot{PremiumCapturePct: 60, DTERemaining: 20}))
	assert.False(t, rule.Matches(&TradeSnapshot{PremiumCapturePct: 60, DTERemaining: 7}))
	assert.False(t, rule.Matches(&TradeSnapshot{PremiumCapturePct: 40, DTERemaining: 20}))
}

func TestRule_EmptyConditionsNeverMatch(t *testing.T) {
	rule := enabledRule("empty", domain.StrategyAny)
	assert.False(t, rule.Matches(&TradeSnapshot{PremiumCapturePct: 100}))
}

func TestEvaluate_StrategyAndEnabledFiltering(t *testing.T) {
	pmccOnly := enabledRule("pmcc-rule", domain.StrategyPMCC,
		Condition{Field: FieldLossPct, Operator: OpGTE, Value: 15})
	anyStrategy := enabledRule("any-rule", domain.StrategyAny,
		Condition{Field: FieldLossPct, Operator: OpGTE, Value: 15})
	disabled := enabledRule("disabled-rule", domain.StrategyAny,
		Condition{Field: FieldLossPct, Operator: OpGTE, Value: 15})
	disabled.IsEnabled = false

	snapshots := []TradeSnapshot{
		{TradeID: "t1", Symbol: "AAPL", StrategyType: domain.StrategyCoveredCall, LossPct: 20},
		{TradeID: "t2", Symbol: "MSFT", StrategyType: domain.StrategyPMCC, LossPct: 20},
	}

	matches := Evaluate([]Rule{pmccOnly, anyStrategy, disabled}, snapshots)
	require.Len(t, matches, 3)

	byTrade := map[string][]string{}
	for _, m := range matches {
		byTrade[m.TradeID] = append(byTrade[m.TradeID], m.RuleID)
	}

	// Covered call trade only matches the strategy-agnostic rule
	assert.Equal(t, []string{"any-rule"}, byTrade["t1"])
	// PMCC trade matches both; the disabled rule never fires
	assert.ElementsMatch(t, []string{"pmcc-rule", "any-rule"}, byTrade["t2"])
}

func TestEvaluate_NoSnapshots(t *testing.T) {
	matches := Evaluate([]Rule{enabledRule("r", domain.StrategyAny,
		Condition{Field: FieldDaysHeld, Operator: OpGTE, Value: 0})}, nil)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestEvaluate_MatchCarriesAction(t *testing.T) {
	rule := enabledRule("roll-rule", domain.StrategyAny,
		Condition{Field: FieldCurrentDelta, Operator: OpGTE, Value: 0.5})
	rule.Action = Action{ActionType: ActionRoll, Params: map[string]any{"target_delta": 0.25}}

	matches := Evaluate([]Rule{rule}, []TradeSnapshot{
		{TradeID: "t9", Symbol: "NVDA", StrategyType: domain.StrategyCoveredCall, CurrentDelta: 0.62},
	})
	require.Len(t, matches, 1)
	assert.Equal(t, ActionRoll, matches[0].Action.ActionType)
	assert.Equal(t, 0.25, matches[0].Action.Params["target_delta"])
	assert.Equal(t, "NVDA", matches[0].Symbol)
}
