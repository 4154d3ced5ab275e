package scanhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchOpportunities(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/v1/opportunities", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"opportunities": [
				{"symbol": "AAPL", "score": 82.5, "strategy_type": "covered_call"},
				{"symbol": "MSFT", "score": 77.1, "leaps_cost": "45.50"}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", zerolog.New(nil).Level(zerolog.Disabled))

	opps, err := client.FetchOpportunities(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 2)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "AAPL", opps[0].Symbol)
	assert.Equal(t, 82.5, opps[0].Score.Value)
	// String-typed numbers from older feed versions still decode
	assert.Equal(t, 45.50, opps[1].LeapsCost.Value)
}

func TestFetchCandles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/candles", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "90", r.URL.Query().Get("days"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candles": [{"date": "2025-05-30", "close": 186.5}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", zerolog.New(nil).Level(zerolog.Disabled))

	candles, err := client.FetchCandles(context.Background(), "AAPL", 90)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 186.5, candles[0].Close)
}

func TestFetch_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", zerolog.New(nil).Level(zerolog.Disabled))

	_, err := client.FetchOpportunities(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestQuoteStream_HandleMessage(t *testing.T) {
	qs := NewQuoteStream("ws://unused", "", []string{"AAPL"}, zerolog.New(nil).Level(zerolog.Disabled))

	// Quote frames update the cache
	err := qs.handleMessage([]byte(`["quotes", [{"symbol": "AAPL", "last": 186.5, "bid": 186.4, "ask": 186.6}]]`))
	require.NoError(t, err)

	prices := qs.Prices()
	assert.Equal(t, 186.5, prices["AAPL"])
	quote := qs.Quote("AAPL")
	require.NotNil(t, quote)
	assert.Equal(t, 186.4, quote.Bid)
	assert.False(t, qs.IsCacheStale())

	// Frames on other channels are ignored
	require.NoError(t, qs.handleMessage([]byte(`["heartbeat", {}]`)))
	assert.Len(t, qs.Prices(), 1)

	// Zero-priced or unnamed quotes are dropped
	require.NoError(t, qs.handleMessage([]byte(`["quotes", [{"symbol": "", "last": 1}, {"symbol": "TSLA", "last": 0}]]`)))
	assert.Len(t, qs.Prices(), 1)

	// Malformed frames error without breaking the cache
	assert.Error(t, qs.handleMessage([]byte(`{"not": "an array"}`)))
	assert.Error(t, qs.handleMessage([]byte(`["quotes"]`)))
	assert.Equal(t, 186.5, qs.Prices()["AAPL"])

	assert.Nil(t, qs.Quote("UNKNOWN"))
}
