package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alevras/covercall/internal/modules/rules"
)

type fakeRefresher struct {
	count int
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(ctx context.Context) (int, error) {
	f.calls++
	return f.count, f.err
}

func TestScanRefreshJob(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	refresher := &fakeRefresher{count: 12}
	job := NewScanRefreshJob(refresher, log)

	assert.Equal(t, "scan_refresh", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 1, refresher.calls)

	refresher.err = errors.New("feed down")
	assert.Error(t, job.Run())
}

type fakePrices struct{ prices map[string]float64 }

func (f *fakePrices) Prices() map[string]float64 { return f.prices }

type fakeBook struct {
	got     map[string]float64
	applied int
}

func (f *fakeBook) ApplyQuotes(prices map[string]float64) (int, error) {
	f.got = prices
	return f.applied, nil
}

type fakePositions struct{ got map[string]float64 }

func (f *fakePositions) ApplyQuotes(prices map[string]float64) error {
	f.got = prices
	return nil
}

type fakeRunner struct {
	matches []rules.Match
	calls   int
}

func (f *fakeRunner) EvaluateRules() ([]rules.Match, error) {
	f.calls++
	return f.matches, nil
}

func TestMarkPricesJob(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	book := &fakeBook{applied: 2}
	positions := &fakePositions{}
	runner := &fakeRunner{matches: []rules.Match{{RuleID: "r1"}}}
	quotes := map[string]float64{"AAPL": 186.5}

	job := NewMarkPricesJob(&fakePrices{prices: quotes}, book, positions, runner, log)

	assert.Equal(t, "mark_prices", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, quotes, book.got)
	assert.Equal(t, quotes, positions.got)
	assert.Equal(t, 1, runner.calls)
}

func TestMarkPricesJob_NoQuotesSkips(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	book := &fakeBook{}
	runner := &fakeRunner{}
	job := NewMarkPricesJob(&fakePrices{}, book, nil, runner, log)

	require.NoError(t, job.Run())
	assert.Nil(t, book.got)
	assert.Zero(t, runner.calls)
}

type fakeBackups struct{ calls int }

func (f *fakeBackups) Backup(ctx context.Context) error {
	f.calls++
	return nil
}

func TestBackupJob(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	backups := &fakeBackups{}
	job := NewBackupJob(backups, log)

	assert.Equal(t, "backup", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 1, backups.calls)
}
