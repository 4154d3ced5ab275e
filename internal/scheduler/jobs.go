package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/alevras/covercall/internal/modules/rules"
)

// jobTimeout bounds any single background run
const jobTimeout = 2 * time.Minute

// ScanRefresher pulls a fresh scan from the feed
type ScanRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// ScanRefreshJob refreshes the screener's scan on a schedule
type ScanRefreshJob struct {
	screener ScanRefresher
	log      zerolog.Logger
}

// NewScanRefreshJob creates the scan refresh job
func NewScanRefreshJob(screener ScanRefresher, log zerolog.Logger) *ScanRefreshJob {
	return &ScanRefreshJob{
		screener: screener,
		log:      log.With().Str("job", "scan_refresh").Logger(),
	}
}

// Name returns the job name
func (j *ScanRefreshJob) Name() string { return "scan_refresh" }

// Run refreshes the scan
func (j *ScanRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	count, err := j.screener.Refresh(ctx)
	if err != nil {
		return err
	}
	j.log.Info().Int("opportunities", count).Msg("Scan refreshed")
	return nil
}

// PriceSource provides the latest stock prices per symbol
type PriceSource interface {
	Prices() map[string]float64
}

// QuoteConsumer applies a batch of stock prices
type QuoteConsumer interface {
	ApplyQuotes(prices map[string]float64) (int, error)
}

// PositionPriceConsumer re-marks imported positions
type PositionPriceConsumer interface {
	ApplyQuotes(prices map[string]float64) error
}

// RuleRunner evaluates the enabled rule set against the open trade book
type RuleRunner interface {
	EvaluateRules() ([]rules.Match, error)
}

// MarkPricesJob pushes the latest quotes into the trade book and position
// book, then re-runs rule evaluation against the fresh marks.
type MarkPricesJob struct {
	prices    PriceSource
	simulator QuoteConsumer
	portfolio PositionPriceConsumer
	evaluator RuleRunner
	log       zerolog.Logger
}

// NewMarkPricesJob creates the price marking job
func NewMarkPricesJob(prices PriceSource, simulator QuoteConsumer, portfolio PositionPriceConsumer, evaluator RuleRunner, log zerolog.Logger) *MarkPricesJob {
	return &MarkPricesJob{
		prices:    prices,
		simulator: simulator,
		portfolio: portfolio,
		evaluator: evaluator,
		log:       log.With().Str("job", "mark_prices").Logger(),
	}
}

// Name returns the job name
func (j *MarkPricesJob) Name() string { return "mark_prices" }

// Run applies quotes and evaluates rules
func (j *MarkPricesJob) Run() error {
	quotes := j.prices.Prices()
	if len(quotes) == 0 {
		j.log.Debug().Msg("No quotes available, skipping mark")
		return nil
	}

	applied, err := j.simulator.ApplyQuotes(quotes)
	if err != nil {
		return err
	}
	if j.portfolio != nil {
		if err := j.portfolio.ApplyQuotes(quotes); err != nil {
			return err
		}
	}

	if j.evaluator != nil {
		matches, err := j.evaluator.EvaluateRules()
		if err != nil {
			return err
		}
		if len(matches) > 0 {
			j.log.Info().Int("matches", len(matches)).Msg("Rules triggered after re-mark")
		}
	}

	j.log.Debug().Int("quotes", len(quotes)).Int("trades_marked", applied).Msg("Prices marked")
	return nil
}

// BackupRunner performs one full backup cycle
type BackupRunner interface {
	Backup(ctx context.Context) error
}

// BackupJob runs the database backup on a schedule
type BackupJob struct {
	backups BackupRunner
	log     zerolog.Logger
}

// NewBackupJob creates the backup job
func NewBackupJob(backups BackupRunner, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups: backups,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string { return "backup" }

// Run performs the backup
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	return j.backups.Backup(ctx)
}
