package rules

import "github.com/alevras/covercall/internal/domain"

// BuiltinTemplates returns the pre-authored rule template catalog.
// The catalog leans toward rolling and assignment handling over outright
// closes; the optional_advanced group carries the stop-loss-style patterns
// and is surfaced as discouraged.
func BuiltinTemplates() []RuleTemplate {
	return []RuleTemplate{
		// Premium harvesting
		{
			ID:          "tpl-harvest-80",
			Name:        "Harvest at 80% capture",
			Description: "Roll the short call once 80% of its premium has been captured - the remaining time value no longer pays for the risk.",
			Category:    CategoryPremiumHarvesting,
			Conditions: []Condition{
				{Field: FieldPremiumCapturePct, Operator: OpGTE, Value: 80},
			},
			Action:    Action{ActionType: ActionRoll, Params: map[string]any{"target_dte": 30.0}},
			IsDefault: true,
		},
		{
			ID:          "tpl-harvest-quick",
			Name:        "Quick capture, re-deploy early",
			Description: "Half the premium captured with two weeks or more still on the clock: roll early and restart the cycle.",
			Category:    CategoryPremiumHarvesting,
			Conditions: []Condition{
				{Field: FieldPremiumCapturePct, Operator: OpGTE, Value: 50},
				{Field: FieldDTERemaining, Operator: OpGTE, Value: 14},
			},
			Action: Action{ActionType: ActionRoll, Params: map[string]any{"target_dte": 30.0}},
		},

		// Expiry management
		{
			ID:          "tpl-roll-7dte",
			Name:        "Roll at 7 DTE",
			Description: "Gamma risk grows fast in the final week. Roll any short call with 7 or fewer days remaining.",
			Category:    CategoryExpiryManagement,
			Conditions: []Condition{
				{Field: FieldDTERemaining, Operator: OpLTE, Value: 7},
			},
			Action:    Action{ActionType: ActionRoll, Params: map[string]any{"target_dte": 30.0}},
			IsDefault: true,
		},
		{
			ID:          "tpl-expire-worthless",
			Name:        "Let worthless shorts expire",
			Description: "Nearly all premium captured with expiry days away: skip the closing commission and let it expire.",
			Category:    CategoryExpiryManagement,
			Conditions: []Condition{
				{Field: FieldDTERemaining, Operator: OpLTE, Value: 3},
				{Field: FieldPremiumCapturePct, Operator: OpGTE, Value: 95},
			},
			Action: Action{ActionType: ActionExpire},
		},

		// Assignment awareness
		{
			ID:          "tpl-deep-itm",
			Name:        "Deep ITM assignment watch",
			Description: "Delta at or above 0.90 means assignment is likely. Decide deliberately instead of being surprised.",
			Category:    CategoryAssignmentAwareness,
			Conditions: []Condition{
				{Field: FieldCurrentDelta, Operator: OpGTE, Value: 0.90},
			},
			Action:    Action{ActionType: ActionAssignment},
			IsDefault: true,
		},
		{
			ID:          "tpl-itm-near-expiry",
			Name:        "ITM into the final days",
			Description: "In the money with fewer than 5 days left - assignment odds climb sharply around ex-dividend dates.",
			Category:    CategoryAssignmentAwareness,
			Conditions: []Condition{
				{Field: FieldCurrentDelta, Operator: OpGTE, Value: 0.70},
				{Field: FieldDTERemaining, Operator: OpLTE, Value: 5},
			},
			Action: Action{ActionType: ActionAlert},
		},

		// Rolling
		{
			ID:          "tpl-defensive-roll",
			Name:        "Defensive roll on delta breach",
			Description: "Short delta crossed 0.50: roll up and out to a lower-delta strike rather than fighting the move.",
			Category:    CategoryRolling,
			Conditions: []Condition{
				{Field: FieldCurrentDelta, Operator: OpGTE, Value: 0.50},
			},
			Action:    Action{ActionType: ActionRoll, Params: map[string]any{"target_delta": 0.25}},
			IsDefault: true,
		},
		{
			ID:          "tpl-roll-up-rally",
			Name:        "Roll up after a rally",
			Description: "Position is well in profit and the short strike is being tested - consider rolling up to capture more upside.",
			Category:    CategoryRolling,
			Conditions: []Condition{
				{Field: FieldProfitPct, Operator: OpGTE, Value: 20},
				{Field: FieldCurrentDelta, Operator: OpGTE, Value: 0.45},
			},
			Action: Action{ActionType: ActionSuggest, Params: map[string]any{"suggestion": "roll_up"}},
		},

		// PMCC specific
		{
			ID:           "tpl-pmcc-leaps-guard",
			Name:         "Protect the LEAPS",
			Description:  "The long leg has lost 15% of its value. Review the thesis before selling further calls against it.",
			Category:     CategoryPMCCSpecific,
			StrategyType: domain.StrategyPMCC,
			Conditions: []Condition{
				{Field: FieldLossPct, Operator: OpGTE, Value: 15},
			},
			Action:    Action{ActionType: ActionAlert},
			IsDefault: true,
		},
		{
			ID:           "tpl-pmcc-income-ratio",
			Name:         "Income ratio checkpoint",
			Description:  "Collected short premium has repaid half the net debit - the position has reached its de-risking milestone.",
			Category:     CategoryPMCCSpecific,
			StrategyType: domain.StrategyPMCC,
			Conditions: []Condition{
				{Field: FieldCumulativeIncomeRatio, Operator: OpGTE, Value: 0.5},
			},
			Action: Action{ActionType: ActionAlert},
		},

		// Brokerage aware
		{
			ID:          "tpl-early-assignment-window",
			Name:        "Early assignment window",
			Description: "Deep ITM with 2 or fewer days left: brokers exercise-by-exception at expiry, confirm intent now.",
			Category:    CategoryBrokerageAware,
			Conditions: []Condition{
				{Field: FieldDTERemaining, Operator: OpLTE, Value: 2},
				{Field: FieldCurrentDelta, Operator: OpGTE, Value: 0.80},
			},
			Action: Action{ActionType: ActionPrompt},
		},

		// Informational
		{
			ID:          "tpl-theta-stall",
			Name:        "Theta decay stalled",
			Description: "Theta has flattened out - the short call is no longer earning its keep.",
			Category:    CategoryInformational,
			Conditions: []Condition{
				{Field: FieldCurrentTheta, Operator: OpGTE, Value: -0.01},
			},
			Action: Action{ActionType: ActionAlert},
		},
		{
			ID:          "tpl-slow-burner",
			Name:        "Slow burner",
			Description: "Held over a month with under a quarter of the premium captured. Worth re-examining the strike choice.",
			Category:    CategoryInformational,
			Conditions: []Condition{
				{Field: FieldDaysHeld, Operator: OpGTE, Value: 30},
				{Field: FieldPremiumCapturePct, Operator: OpLTE, Value: 25},
			},
			Action: Action{ActionType: ActionAlert},
		},

		// Optional / advanced - discouraged for an income strategy
		{
			ID:          "tpl-hard-stop",
			Name:        "Hard stop loss",
			Description: "Close the whole position at a 50% loss. Discouraged: rolling or taking assignment usually serves the income strategy better.",
			Category:    CategoryOptionalAdvanced,
			Conditions: []Condition{
				{Field: FieldLossPct, Operator: OpGTE, Value: 50},
			},
			Action:     Action{ActionType: ActionClose},
			IsAdvanced: true,
			UIHint:     "discouraged",
		},
		{
			ID:          "tpl-delta-panic",
			Name:        "Close on delta spike",
			Description: "Close when the short delta pins at 0.95. Discouraged: assignment handling is almost always the better outcome.",
			Category:    CategoryOptionalAdvanced,
			Conditions: []Condition{
				{Field: FieldCurrentDelta, Operator: OpGTE, Value: 0.95},
			},
			Action:     Action{ActionType: ActionClose},
			IsAdvanced: true,
			UIHint:     "discouraged",
		},
	}
}

// GroupTemplates buckets templates by category in the fixed display order.
// Unrecognized categories land in a visible trailing "other" group; the
// optional_advanced group is marked discouraged but never hidden.
func GroupTemplates(templates []RuleTemplate) []TemplateGroup {
	known := make(map[Category]bool, len(CategoryOrder))
	for _, c := range CategoryOrder {
		known[c] = true
	}

	byCategory := make(map[Category][]RuleTemplate)
	for _, t := range templates {
		cat := t.Category
		if !known[cat] {
			cat = CategoryOther
		}
		byCategory[cat] = append(byCategory[cat], t)
	}

	groups := make([]TemplateGroup, 0, len(CategoryOrder)+1)
	for _, cat := range CategoryOrder {
		if members := byCategory[cat]; len(members) > 0 {
			groups = append(groups, TemplateGroup{
				Category:    cat,
				Discouraged: cat == CategoryOptionalAdvanced,
				Templates:   members,
			})
		}
	}
	if members := byCategory[CategoryOther]; len(members) > 0 {
		groups = append(groups, TemplateGroup{Category: CategoryOther, Templates: members})
	}
	return groups
}
