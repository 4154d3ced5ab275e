package portfolio

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrPositionNotFound is returned when a position id doesn't exist
var ErrPositionNotFound = errors.New("position not found")

// Service manages the imported position book
type Service struct {
	repo *Repository
	log  zerolog.Logger
	now  func() time.Time
}

// NewService creates a new portfolio service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "portfolio_service").Logger(),
		now:  time.Now,
	}
}

// Import upserts a batch of records keyed by (symbol, account). Bad records
// are skipped and reported, not fatal.
func (s *Service) Import(records []ImportRecord) (*ImportResult, error) {
	result := &ImportResult{}
	now := s.now().UTC()

	for i, rec := range records {
		symbol := strings.ToUpper(strings.TrimSpace(rec.Symbol))
		if symbol == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: missing symbol", i))
			continue
		}
		if rec.Quantity <= 0 {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d (%s): quantity must be positive", i, symbol))
			continue
		}

		position := &Position{
			ID:         uuid.NewString(),
			Symbol:     symbol,
			Account:    strings.TrimSpace(rec.Account),
			Quantity:   rec.Quantity,
			AvgCost:    rec.AvgCost,
			LastPrice:  rec.LastPrice,
			Currency:   rec.Currency,
			ImportedAt: now,
			UpdatedAt:  now,
		}

		created, err := s.repo.Upsert(position)
		if err != nil {
			return result, err
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	s.log.Info().Int("created", result.Created).Int("updated", result.Updated).
		Int("skipped", result.Skipped).Msg("Imported positions")
	return result, nil
}

// List returns all positions
func (s *Service) List() ([]Position, error) {
	return s.repo.List()
}

// ApplyQuotes updates last prices from a symbol -> price map
func (s *Service) ApplyQuotes(prices map[string]float64) error {
	now := s.now().UTC()
	for symbol, price := range prices {
		if price <= 0 {
			continue
		}
		if err := s.repo.UpdateLastPrice(symbol, price, now); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a position
func (s *Service) Delete(id string) error {
	return s.repo.Delete(id)
}

// Symbols returns the distinct symbols on the book, for quote subscriptions
func (s *Service) Symbols() ([]string, error) {
	positions, err := s.repo.List()
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	symbols := []string{}
	for _, p := range positions {
		if !seen[p.Symbol] {
			seen[p.Symbol] = true
			symbols = append(symbols, p.Symbol)
		}
	}
	return symbols, nil
}
