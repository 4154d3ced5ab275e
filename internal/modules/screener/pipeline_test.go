package screener

import (
	"testing"

	"github.com/alevras/covercall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeAndSort_KeepBestScore(t *testing.T) {
	raws := []RawOpportunity{
		{Symbol: "AAPL", Score: domain.N(60), NetDebit: domain.N(300)},
		{Symbol: "MSFT", Score: domain.N(70), NetDebit: domain.N(100)},
		{Symbol: "AAPL", Score: domain.N(85), NetDebit: domain.N(200)},
	}

	out := DedupeAndSort(raws, "score", SortDesc)
	require.Len(t, out, 2)

	assert.Equal(t, "AAPL", out[0].Symbol)
	assert.Equal(t, 85.0, out[0].Score)
	assert.Equal(t, "MSFT", out[1].Symbol)

	// Input must not be mutated
	assert.Equal(t, 60.0, raws[0].Score.Float())
}

func TestDedupeAndSort_TieKeepsFirstSeen(t *testing.T) {
	raws := []RawOpportunity{
		{Symbol: "AAPL", Score: domain.N(60), NetDebit: domain.N(111)},
		{Symbol: "AAPL", Score: domain.N(60), NetDebit: domain.N(222)},
	}

	out := DedupeAndSort(raws, "score", SortDesc)
	require.Len(t, out, 1)
	assert.Equal(t, 111.0, out[0].NetDebit)
}

func TestDedupeAndSort_SortDirections(t *testing.T) {
	raws := []RawOpportunity{
		{Symbol: "A", NetDebit: domain.N(300)},
		{Symbol: "B", NetDebit: domain.N(100)},
		{Symbol: "C", NetDebit: domain.N(200)},
	}

	asc := DedupeAndSort(raws, "net_debit", SortAsc)
	require.Len(t, asc, 3)
	assert.Equal(t, []float64{100, 200, 300}, []float64{asc[0].NetDebit, asc[1].NetDebit, asc[2].NetDebit})

	desc := DedupeAndSort(raws, "net_debit", SortDesc)
	assert.Equal(t, []float64{300, 200, 100}, []float64{desc[0].NetDebit, desc[1].NetDebit, desc[2].NetDebit})
}

func TestDedupeAndSort_MissingSortFieldAsZero(t *testing.T) {
	raws := []RawOpportunity{
		{Symbol: "A", NetDebit: domain.N(300)},
		{Symbol: "B"}, // no net_debit: sorts as zero
	}

	asc := DedupeAndSort(raws, "net_debit", SortAsc)
	require.Len(t, asc, 2)
	assert.Equal(t, "B", asc[0].Symbol)
	assert.Equal(t, "A", asc[1].Symbol)
}

func TestDedupeAndSort_EmptyInput(t *testing.T) {
	out := DedupeAndSort(nil, "score", SortDesc)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestDedupeAndSort_AllSameSymbol(t *testing.T) {
	raws := []RawOpportunity{
		{Symbol: "AAPL", Score: domain.N(10)},
		{Symbol: "AAPL", Score: domain.N(30)},
		{Symbol: "AAPL", Score: domain.N(20)},
	}

	out := DedupeAndSort(raws, "score", SortDesc)
	require.Len(t, out, 1)
	assert.Equal(t, 30.0, out[0].Score)
}

func TestDedupeAndSort_UnknownSortFieldKeepsOrder(t *testing.T) {
	raws := []RawOpportunity{
		{Symbol: "A", Score: domain.N(1)},
		{Symbol: "B", Score: domain.N(2)},
	}

	// Unknown fields sort as zero for everyone; stable sort keeps order
	out := DedupeAndSort(raws, "bogus_field", SortAsc)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Symbol)
	assert.Equal(t, "B", out[1].Symbol)
}
