// Package rules implements the trade-management automation model: rule
// templates, instantiated rules, and evaluation of rules against live trade
// snapshots. Rules are declarative records (conditions AND-ed together plus
// one action); the simulator feeds snapshots through the evaluator.
package rules

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/alevras/covercall/internal/domain"
)

// Operator compares a snapshot field against a rule threshold
type Operator string

const (
	OpGTE Operator = "gte"
	OpLTE Operator = "lte"
	OpGT  Operator = "gt"
	OpLT  Operator = "lt"
	OpEQ  Operator = "eq"
)

// ConditionField names a numeric field of a trade snapshot
type ConditionField string

const (
	FieldPremiumCapturePct     ConditionField = "premium_capture_pct"
	FieldCurrentDelta          ConditionField = "current_delta"
	FieldLossPct               ConditionField = "loss_pct"
	FieldProfitPct             ConditionField = "profit_pct"
	FieldDTERemaining          ConditionField = "dte_remaining"
	FieldDaysHeld              ConditionField = "days_held"
	FieldCurrentTheta          ConditionField = "current_theta"
	FieldCumulativeIncomeRatio ConditionField = "cumulative_income_ratio"
)

// ActionType is what a matched rule asks the trader (or simulator) to do
type ActionType string

const (
	ActionRoll       ActionType = "roll"
	ActionClose      ActionType = "close"
	ActionAlert      ActionType = "alert"
	ActionHold       ActionType = "hold"
	ActionExpire     ActionType = "expire"
	ActionAssignment ActionType = "assignment"
	ActionSuggest    ActionType = "suggest"
	ActionPrompt     ActionType = "prompt"
)

// Condition is one field comparison; all conditions in a rule are AND-ed
type Condition struct {
	Field    ConditionField `json:"field"`
	Operator Operator       `json:"operator"`
	Value    float64        `json:"value"`
}

// Action is the rule outcome. On the wire it is a flat object:
// {"action_type": "roll", "target_delta": 0.25, ...} - the params live next
// to action_type, matching the historical API shape.
type Action struct {
	ActionType ActionType
	Params     map[string]any
}

// MarshalJSON flattens params beside action_type
func (a Action) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(a.Params)+1)
	for k, v := range a.Params {
		if k == "action_type" {
			continue
		}
		flat[k] = v
	}
	flat["action_type"] = string(a.ActionType)
	return json.Marshal(flat)
}

// UnmarshalJSON splits action_type from the remaining params
func (a *Action) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("failed to decode action: %w", err)
	}
	if t, ok := flat["action_type"].(string); ok {
		a.ActionType = ActionType(t)
	}
	delete(flat, "action_type")
	if len(flat) > 0 {
		a.Params = flat
	} else {
		a.Params = nil
	}
	return nil
}

// Style returns the display styling hint for an action type. Unknown types
// degrade to the neutral informational styling so the rule list stays
// renderable when the backend grows a new action type.
func (a Action) Style() string {
	switch a.ActionType {
	case ActionRoll:
		return "primary"
	case ActionClose:
		return "danger"
	case ActionAlert, ActionPrompt:
		return "warning"
	case ActionHold, ActionExpire:
		return "muted"
	case ActionAssignment:
		return "accent"
	case ActionSuggest:
		return "info"
	default:
		return "informational"
	}
}

// Rule is an instantiated, persisted automation rule
type Rule struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	StrategyType   domain.StrategyType `json:"strategy_type"`
	Conditions     []Condition         `json:"conditions"`
	Action         Action              `json:"action"`
	IsEnabled      bool                `json:"is_enabled"`
	TimesTriggered int                 `json:"times_triggered"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// AppliesTo reports whether the rule covers the given strategy.
// An empty strategy_type applies to both covered calls and PMCC.
func (r *Rule) AppliesTo(strategy domain.StrategyType) bool {
	return r.StrategyType == domain.StrategyAny || r.StrategyType == strategy
}

// Category groups rule templates in the catalog
type Category string

const (
	CategoryPremiumHarvesting   Category = "premium_harvesting"
	CategoryExpiryManagement    Category = "expiry_management"
	CategoryAssignmentAwareness Category = "assignment_awareness"
	CategoryRolling             Category = "rolling"
	CategoryPMCCSpecific        Category = "pmcc_specific"
	CategoryBrokerageAware      Category = "brokerage_aware"
	CategoryInformational       Category = "informational"
	CategoryOptionalAdvanced    Category = "optional_advanced"
	// CategoryOther buckets templates with unrecognized categories; they
	// stay visible rather than being silently dropped
	CategoryOther Category = "other"
)

// CategoryOrder is the fixed display order for template groups.
// optional_advanced is deliberately last: stop-loss-style closes run against
// the income-strategy philosophy and are surfaced as discouraged.
var CategoryOrder = []Category{
	CategoryPremiumHarvesting,
	CategoryExpiryManagement,
	CategoryAssignmentAwareness,
	CategoryRolling,
	CategoryPMCCSpecific,
	CategoryBrokerageAware,
	CategoryInformational,
	CategoryOptionalAdvanced,
}

// RuleTemplate is a pre-authored rule pattern a user can instantiate
type RuleTemplate struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Category     Category            `json:"category"`
	StrategyType domain.StrategyType `json:"strategy_type"`
	Conditions   []Condition         `json:"conditions"`
	Action       Action              `json:"action"`
	IsDefault    bool                `json:"is_default"`
	IsAdvanced   bool                `json:"is_advanced"`
	UIHint       string              `json:"ui_hint,omitempty"`
}

// TemplateGroup is one category bucket of the grouped catalog
type TemplateGroup struct {
	Category    Category       `json:"category"`
	Discouraged bool           `json:"discouraged"`
	Templates   []RuleTemplate `json:"templates"`
}
