package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupTemplates_FixedOrder(t *testing.T) {
	groups := GroupTemplates(BuiltinTemplates())
	require.NotEmpty(t, groups)

	// Categories must appear in catalog order with optional_advanced last
	order := make(map[Category]int, len(CategoryOrder))
	for i, c := range CategoryOrder {
		order[c] = i
	}
	for i := 1; i < len(groups); i++ {
		assert.Less(t, order[groups[i-1].Category], order[groups[i].Category],
			"group %s must come before %s", groups[i-1].Category, groups[i].Category)
	}
	assert.Equal(t, CategoryOptionalAdvanced, groups[len(groups)-1].Category)
}

func TestGroupTemplates_DiscouragedMarking(t *testing.T) {
	groups := GroupTemplates(BuiltinTemplates())

	for _, g := range groups {
		if g.Category == CategoryOptionalAdvanced {
			assert.True(t, g.Discouraged)
			// Discouraged is a marker, not a filter: templates stay visible
			assert.NotEmpty(t, g.Templates)
		} else {
			assert.False(t, g.Discouraged)
		}
	}
}

func TestGroupTemplates_UnknownCategoryBucket(t *testing.T) {
	templates := []RuleTemplate{
		{ID: "a", Name: "A", Category: CategoryRolling},
		{ID: "b", Name: "B", Category: Category("experimental_v2")},
		{ID: "c", Name: "C", Category: CategoryPremiumHarvesting},
	}

	groups := GroupTemplates(templates)
	require.Len(t, groups, 3)

	// Unknown category lands in a visible trailing "other" bucket
	last := groups[len(groups)-1]
	assert.Equal(t, CategoryOther, last.Category)
	require.Len(t, last.Templates, 1)
	assert.Equal(t, "b", last.Templates[0].ID)
}

func TestActionStyle_UnknownActionFallsBack(t *testing.T) {
	assert.Equal(t, "primary", Action{ActionType: ActionRoll}.Style())
	assert.Equal(t, "danger", Action{ActionType: ActionClose}.Style())

	// New backend action types must stay renderable
	assert.Equal(t, "informational", Action{ActionType: ActionType("hedge_v2")}.Style())
}

func TestBuiltinTemplates_AdvancedAreDiscouraged(t *testing.T) {
	for _, tpl := range BuiltinTemplates() {
		if tpl.Category == CategoryOptionalAdvanced {
			assert.True(t, tpl.IsAdvanced, "template %s should be flagged advanced", tpl.ID)
		}
		// Every template must carry at least one condition
		assert.NotEmpty(t, tpl.Conditions, "template %s has no conditions", tpl.ID)
	}
}
