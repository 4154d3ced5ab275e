package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNum_UnmarshalJSON(t *testing.T) {
	var rec struct {
		Strike  Num `json:"strike"`
		Premium Num `json:"premium"`
		Delta   Num `json:"delta"`
		DTE     Num `json:"dte"`
	}

	// Numbers, numeric strings, null and garbage must all decode without error
	err := json.Unmarshal([]byte(`{"strike": 380, "premium": "45.5", "delta": null, "dte": "n/a"}`), &rec)
	require.NoError(t, err)

	assert.True(t, rec.Strike.Set)
	assert.Equal(t, 380.0, rec.Strike.Value)

	assert.True(t, rec.Premium.Set)
	assert.Equal(t, 45.5, rec.Premium.Value)

	assert.False(t, rec.Delta.Set)
	assert.Equal(t, 0.0, rec.Delta.Float())

	// Malformed numeric strings degrade to unset, never an error
	assert.False(t, rec.DTE.Set)
}

func TestNum_Or(t *testing.T) {
	assert.Equal(t, 5.0, N(5).Or(N(9)).Float())
	assert.Equal(t, 9.0, Num{}.Or(N(9)).Float())
	assert.Equal(t, 7.0, Num{}.Or(Num{}, N(7), N(1)).Float())
	assert.Equal(t, 0.0, Num{}.Or(Num{}).Float())

	// A set zero is still a value, not a missing field
	assert.Equal(t, 0.0, N(0).Or(N(3)).Float())
	assert.True(t, N(0).Or(N(3)).Set)
}

func TestNum_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Num{"set": N(1.5), "unset": {}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"set": 1.5, "unset": null}`, string(b))
}
