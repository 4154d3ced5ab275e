package screener

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alevras/covercall/internal/domain"
	"github.com/alevras/covercall/pkg/formulas"
)

// trendEMAPeriod is the moving average the trend context is measured against
const trendEMAPeriod = 50

// trendCandleDays is how much daily history the trend check requests
const trendCandleDays = 90

// maxTrendLookups bounds per-refresh feed calls for candle history
const maxTrendLookups = 25

// FeedClient is the upstream scan feed boundary
type FeedClient interface {
	// FetchOpportunities returns the current raw scan results
	FetchOpportunities(ctx context.Context) ([]RawOpportunity, error)
	// FetchCandles returns recent daily candles for a symbol
	FetchCandles(ctx context.Context, symbol string, days int) ([]domain.Candle, error)
}

// Service owns the current normalized scan. Refresh pulls from the feed and
// runs the pipeline; reads re-sort an in-memory copy. The latest scan is
// mirrored to the snapshot cache so restarts are warm.
type Service struct {
	feed      FeedClient
	snapshots *SnapshotStore
	log       zerolog.Logger

	mu      sync.RWMutex
	current []NormalizedOpportunity
	takenAt time.Time
}

// NewService creates the screener service
func NewService(feed FeedClient, snapshots *SnapshotStore, log zerolog.Logger) *Service {
	return &Service{
		feed:      feed,
		snapshots: snapshots,
		log:       log.With().Str("service", "screener").Logger(),
	}
}

// RestoreFromCache loads the last scan snapshot, if any. Called at startup.
func (s *Service) RestoreFromCache() error {
	if s.snapshots == nil {
		return nil
	}
	snapshot, err := s.snapshots.Load()
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}

	s.mu.Lock()
	s.current = snapshot.Opportunities
	s.takenAt = snapshot.TakenAt
	s.mu.Unlock()

	s.log.Info().
		Int("opportunities", len(snapshot.Opportunities)).
		Time("taken_at", snapshot.TakenAt).
		Msg("Restored scan from cache")
	return nil
}

// Refresh fetches raw results from the feed, runs the dedupe/normalize/sort
// pipeline, annotates trend context and caches the snapshot. Returns the
// number of opportunities in the new scan.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	raws, err := s.feed.FetchOpportunities(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch scan results: %w", err)
	}

	opps := DedupeAndSort(raws, "score", SortDesc)
	s.annotateTrend(ctx, opps)

	now := time.Now().UTC()

	s.mu.Lock()
	s.current = opps
	s.takenAt = now
	s.mu.Unlock()

	if s.snapshots != nil {
		if err := s.snapshots.Save(&Snapshot{TakenAt: now, Opportunities: opps}); err != nil {
			// Cache failures don't invalidate the scan itself
			s.log.Warn().Err(err).Msg("Failed to cache scan snapshot")
		}
	}

	s.log.Info().Int("raw", len(raws)).Int("kept", len(opps)).Msg("Scan refreshed")
	return len(opps), nil
}

// annotateTrend marks each opportunity with the underlying's position
// relative to its 50-day EMA. Best effort: lookups are bounded and any
// failure leaves the annotation empty.
func (s *Service) annotateTrend(ctx context.Context, opps []NormalizedOpportunity) {
	for i := range opps {
		if i >= maxTrendLookups {
			return
		}
		candles, err := s.feed.FetchCandles(ctx, opps[i].Symbol, trendCandleDays)
		if err != nil {
			s.log.Debug().Err(err).Str("symbol", opps[i].Symbol).Msg("No candle history for trend context")
			continue
		}

		closes := make([]float64, len(candles))
		for j, c := range candles {
			closes[j] = c.Close
		}

		ema := formulas.CalculateEMA(closes, trendEMAPeriod)
		if ema == nil || opps[i].StockPrice == 0 {
			continue
		}
		if opps[i].StockPrice >= *ema {
			opps[i].UnderlyingTrend = "above_50ema"
		} else {
			opps[i].UnderlyingTrend = "below_50ema"
		}
	}
}

// Opportunities returns the current scan re-sorted by the requested field.
// The returned slice is a fresh copy.
func (s *Service) Opportunities(sortField string, direction SortDirection) []NormalizedOpportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]NormalizedOpportunity, len(s.current))
	copy(out, s.current)

	if direction != SortAsc {
		direction = SortDesc
	}
	sortInPlace(out, sortField, direction)
	return out
}

// Summary returns scan-level statistics plus the scan timestamp
func (s *Service) Summary() (ScanSummary, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Summarize(s.current), s.takenAt
}
