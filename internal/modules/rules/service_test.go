package rules

import (
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alevras/covercall/internal/domain"

	_ "modernc.org/sqlite"
)

func setupService(t *testing.T) *Service {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo, err := NewRepository(db, log)
	require.NoError(t, err)

	return NewService(repo, log)
}

func TestInstantiate(t *testing.T) {
	template := &RuleTemplate{
		ID:           "tpl-x",
		Name:         "Roll at 7 DTE",
		Description:  "desc",
		Category:     CategoryExpiryManagement,
		StrategyType: domain.StrategyPMCC,
		Conditions:   []Condition{{Field: FieldDTERemaining, Operator: OpLTE, Value: 7}},
		Action:       Action{ActionType: ActionRoll, Params: map[string]any{"target_dte": 30.0}},
	}

	rule := Instantiate(template)

	assert.NotEmpty(t, rule.ID)
	assert.NotEqual(t, template.ID, rule.ID)
	assert.Equal(t, template.Name, rule.Name)
	assert.Equal(t, template.StrategyType, rule.StrategyType)
	assert.True(t, rule.IsEnabled)
	assert.Zero(t, rule.TimesTriggered)

	// Two instantiations get distinct ids
	assert.NotEqual(t, rule.ID, Instantiate(template).ID)

	// Conditions are copied, not shared with the catalog
	rule.Conditions[0].Value = 99
	assert.Equal(t, 7.0, template.Conditions[0].Value)
	rule.Action.Params["target_dte"] = 60.0
	assert.Equal(t, 30.0, template.Action.Params["target_dte"])
}

func TestToggle_PureUpdate(t *testing.T) {
	rule := Rule{
		ID:         "r1",
		Conditions: []Condition{{Field: FieldLossPct, Operator: OpGTE, Value: 10}},
		Action:     Action{ActionType: ActionAlert},
		IsEnabled:  true,
	}

	off := Toggle(rule, false)
	assert.False(t, off.IsEnabled)
	assert.True(t, rule.IsEnabled)
	assert.Equal(t, rule.Conditions, off.Conditions)
	assert.Equal(t, rule.Action, off.Action)
}

func TestService_InstantiateTemplatePersists(t *testing.T) {
	svc := setupService(t)

	rule, err := svc.InstantiateTemplate("tpl-roll-7dte")
	require.NoError(t, err)
	assert.True(t, rule.IsEnabled)

	list, err := svc.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rule.ID, list[0].ID)
	assert.Equal(t, "Roll at 7 DTE", list[0].Name)

	// Unknown templates are rejected
	_, err = svc.InstantiateTemplate("tpl-does-not-exist")
	assert.Error(t, err)
}

func TestService_ToggleAndDelete(t *testing.T) {
	svc := setupService(t)

	rule, err := svc.InstantiateTemplate("tpl-harvest-80")
	require.NoError(t, err)

	updated, err := svc.SetEnabled(rule.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsEnabled)
	// Toggling must not touch conditions or action
	assert.Equal(t, rule.Conditions, updated.Conditions)
	assert.Equal(t, rule.Action.ActionType, updated.Action.ActionType)

	require.NoError(t, svc.Delete(rule.ID))
	list, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.SetEnabled(rule.ID, true)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestService_EvaluateSnapshotsIncrementsCounter(t *testing.T) {
	svc := setupService(t)

	rule, err := svc.InstantiateTemplate("tpl-roll-7dte")
	require.NoError(t, err)

	snapshots := []TradeSnapshot{
		{TradeID: "t1", Symbol: "AAPL", StrategyType: domain.StrategyCoveredCall, DTERemaining: 5},
		{TradeID: "t2", Symbol: "MSFT", StrategyType: domain.StrategyPMCC, DTERemaining: 30},
	}

	matches, err := svc.EvaluateSnapshots(snapshots)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "t1", matches[0].TradeID)
	assert.Equal(t, ActionRoll, matches[0].Action.ActionType)

	list, err := svc.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].TimesTriggered)

	// Disabled rules are skipped entirely
	_, err = svc.SetEnabled(rule.ID, false)
	require.NoError(t, err)
	matches, err = svc.EvaluateSnapshots(snapshots)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestAction_FlatWireShape(t *testing.T) {
	action := Action{ActionType: ActionRoll, Params: map[string]any{"target_dte": 30.0}}

	blob, err := json.Marshal(action)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action_type": "roll", "target_dte": 30}`, string(blob))

	var decoded Action
	require.NoError(t, json.Unmarshal(blob, &decoded))
	assert.Equal(t, ActionRoll, decoded.ActionType)
	assert.Equal(t, 30.0, decoded.Params["target_dte"])

	// Params-free actions stay minimal on the wire
	blob, err = json.Marshal(Action{ActionType: ActionExpire})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action_type": "expire"}`, string(blob))
}

func TestRepository_RoundTrip(t *testing.T) {
	svc := setupService(t)

	created, err := svc.CreateRule(Rule{
		Name:         "Custom delta guard",
		Description:  "user authored",
		StrategyType: domain.StrategyCoveredCall,
		Conditions:   []Condition{{Field: FieldCurrentDelta, Operator: OpGT, Value: 0.4}},
		Action:       Action{ActionType: ActionSuggest, Params: map[string]any{"suggestion": "roll_up"}},
		IsEnabled:    true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	list, err := svc.List()
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	assert.Equal(t, domain.StrategyCoveredCall, got.StrategyType)
	require.Len(t, got.Conditions, 1)
	assert.Equal(t, FieldCurrentDelta, got.Conditions[0].Field)
	assert.Equal(t, OpGT, got.Conditions[0].Operator)
	assert.Equal(t, 0.4, got.Conditions[0].Value)
	assert.Equal(t, ActionSuggest, got.Action.ActionType)
	assert.Equal(t, "roll_up", got.Action.Params["suggestion"])
}
