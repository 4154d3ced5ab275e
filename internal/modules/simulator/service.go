package simulator

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alevras/covercall/internal/domain"
	"github.com/alevras/covercall/internal/modules/rules"
)

// ErrTradeNotFound is returned when a trade id doesn't exist
var ErrTradeNotFound = errors.New("trade not found")

// RuleEvaluator runs the enabled rule set against trade snapshots
type RuleEvaluator interface {
	EvaluateSnapshots(snapshots []rules.TradeSnapshot) ([]rules.Match, error)
}

// Service manages the simulated trade book
type Service struct {
	repo      *Repository
	evaluator RuleEvaluator
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates a new simulator service. evaluator may be nil when rule
// evaluation is not wired (tests, tooling).
func NewService(repo *Repository, evaluator RuleEvaluator, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		evaluator: evaluator,
		log:       log.With().Str("component", "simulator_service").Logger(),
		now:       time.Now,
	}
}

// OpenTradeRequest is the payload for opening a simulated position
type OpenTradeRequest struct {
	Symbol       string              `json:"symbol"`
	StrategyType domain.StrategyType `json:"strategy_type"`
	Quantity     int                 `json:"quantity"`
	LongStrike   float64             `json:"long_strike"`
	LongExpiry   string              `json:"long_expiry"`
	LongEntry    float64             `json:"long_entry"`
	StockEntry   float64             `json:"stock_entry"`
	ShortStrike  float64             `json:"short_strike"`
	ShortExpiry  string              `json:"short_expiry"`
	ShortEntry   float64             `json:"short_entry"`
	ShortDelta   float64             `json:"short_delta"`
	ShortTheta   float64             `json:"short_theta"`
}

func (req *OpenTradeRequest) validate() error {
	if req.Symbol == "" {
		return errors.New("symbol is required")
	}
	if req.ShortEntry <= 0 {
		return errors.New("short_entry must be positive")
	}
	switch req.StrategyType {
	case domain.StrategyPMCC:
		if req.LongEntry <= 0 {
			return errors.New("long_entry is required for pmcc trades")
		}
	case domain.StrategyCoveredCall:
		if req.StockEntry <= 0 {
			return errors.New("stock_entry is required for covered call trades")
		}
	default:
		return fmt.Errorf("unknown strategy type: %q", req.StrategyType)
	}
	return nil
}

// Open creates a new open trade. Current prices start at entry.
func (s *Service) Open(req OpenTradeRequest) (*Trade, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	trade := &Trade{
		ID:           uuid.NewString(),
		Symbol:       req.Symbol,
		StrategyType: req.StrategyType,
		Status:       domain.TradeOpen,
		Quantity:     req.Quantity,
		OpenedAt:     s.now().UTC(),
		LongStrike:   req.LongStrike,
		LongExpiry:   req.LongExpiry,
		LongEntry:    req.LongEntry,
		LongCurrent:  req.LongEntry,
		StockEntry:   req.StockEntry,
		StockPrice:   req.StockEntry,
		ShortStrike:  req.ShortStrike,
		ShortExpiry:  req.ShortExpiry,
		ShortEntry:   req.ShortEntry,
		ShortCurrent: req.ShortEntry,
		ShortDelta:   req.ShortDelta,
		ShortTheta:   req.ShortTheta,
	}

	if err := s.repo.Create(trade); err != nil {
		return nil, err
	}
	s.log.Info().Str("trade_id", trade.ID).Str("symbol", trade.Symbol).
		Str("strategy", string(trade.StrategyType)).Msg("Opened simulated trade")
	return trade, nil
}

// List returns trades, optionally filtered by status
func (s *Service) List(status domain.TradeStatus) ([]Trade, error) {
	return s.repo.List(status)
}

// Get returns one trade
func (s *Service) Get(id string) (*Trade, error) {
	trade, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, ErrTradeNotFound
	}
	return trade, nil
}

// ApplyMarks re-marks open trades with the supplied prices. Marks for
// unknown or closed trades are skipped with a warning.
func (s *Service) ApplyMarks(marks []Mark) (int, error) {
	applied := 0
	for _, mark := range marks {
		trade, err := s.repo.GetByID(mark.TradeID)
		if err != nil {
			return applied, err
		}
		if trade == nil || trade.Status != domain.TradeOpen {
			s.log.Warn().Str("trade_id", mark.TradeID).Msg("Skipping mark for unknown or closed trade")
			continue
		}

		if mark.StockPrice != nil {
			trade.StockPrice = *mark.StockPrice
		}
		if mark.LongCurrent != nil {
			trade.LongCurrent = *mark.LongCurrent
		}
		if mark.ShortCurrent != nil {
			trade.ShortCurrent = *mark.ShortCurrent
		}
		if mark.ShortDelta != nil {
			trade.ShortDelta = *mark.ShortDelta
		}
		if mark.ShortTheta != nil {
			trade.ShortTheta = *mark.ShortTheta
		}

		if err := s.repo.Update(trade); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// ApplyQuotes updates stock prices on open trades from a symbol -> last
// price map, typically fed by the quote stream.
func (s *Service) ApplyQuotes(prices map[string]float64) (int, error) {
	open, err := s.repo.ListOpen()
	if err != nil {
		return 0, err
	}

	applied := 0
	for i := range open {
		price, ok := prices[open[i].Symbol]
		if !ok || price <= 0 {
			continue
		}
		open[i].StockPrice = price
		if err := s.repo.Update(&open[i]); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// RollRequest replaces the short call with a new strike/expiry
type RollRequest struct {
	ShortStrike float64 `json:"short_strike"`
	ShortExpiry string  `json:"short_expiry"`
	ShortEntry  float64 `json:"short_entry"` // credit for the new short
}

// Roll closes the current short at its mark, books the realized income and
// opens the replacement short. The trade stays open.
func (s *Service) Roll(id string, req RollRequest) (*Trade, error) {
	trade, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if trade.Status != domain.TradeOpen {
		return nil, fmt.Errorf("cannot roll trade in status %q", trade.Status)
	}
	if req.ShortEntry <= 0 || req.ShortExpiry == "" {
		return nil, errors.New("short_entry and short_expiry are required")
	}

	closed := (trade.ShortEntry - trade.ShortCurrent) * contractSize * float64(trade.Quantity)
	trade.RealizedPnL += closed
	if closed > 0 {
		trade.CumulativeIncome += closed
	}

	trade.ShortStrike = req.ShortStrike
	trade.ShortExpiry = req.ShortExpiry
	trade.ShortEntry = req.ShortEntry
	trade.ShortCurrent = req.ShortEntry
	trade.RollCount++

	if err := s.repo.Update(trade); err != nil {
		return nil, err
	}
	s.log.Info().Str("trade_id", trade.ID).Int("roll_count", trade.RollCount).
		Float64("realized", closed).Msg("Rolled short leg")
	return trade, nil
}

// Close exits the trade at current marks, in the given terminal status.
// TradeExpired books the full short credit as income (the call expired
// worthless); other statuses settle the short at its mark.
func (s *Service) Close(id string, status domain.TradeStatus) (*Trade, error) {
	switch status {
	case domain.TradeClosed, domain.TradeAssigned, domain.TradeExpired:
	default:
		return nil, fmt.Errorf("invalid terminal status: %q", status)
	}

	trade, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if trade.Status != domain.TradeOpen {
		return nil, fmt.Errorf("trade already in status %q", trade.Status)
	}

	if status == domain.TradeExpired {
		trade.ShortCurrent = 0
	}
	shortLeg := (trade.ShortEntry - trade.ShortCurrent) * contractSize * float64(trade.Quantity)
	trade.RealizedPnL += trade.UnrealizedPnL()
	if shortLeg > 0 {
		trade.CumulativeIncome += shortLeg
	}

	trade.Status = status
	closedAt := s.now().UTC()
	trade.ClosedAt = &closedAt

	if err := s.repo.Update(trade); err != nil {
		return nil, err
	}
	s.log.Info().Str("trade_id", trade.ID).Str("status", string(status)).
		Float64("realized_pnl", trade.RealizedPnL).Msg("Closed simulated trade")
	return trade, nil
}

// Delete removes a trade from the book entirely
func (s *Service) Delete(id string) error {
	return s.repo.Delete(id)
}

// Snapshots builds rule-evaluation snapshots for all open trades
func (s *Service) Snapshots() ([]rules.TradeSnapshot, error) {
	open, err := s.repo.ListOpen()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	snapshots := make([]rules.TradeSnapshot, 0, len(open))
	for i := range open {
		snapshots = append(snapshots, open[i].Snapshot(now))
	}
	return snapshots, nil
}

// EvaluateRules runs the enabled rule set against the open book
func (s *Service) EvaluateRules() ([]rules.Match, error) {
	if s.evaluator == nil {
		return []rules.Match{}, nil
	}
	snapshots, err := s.Snapshots()
	if err != nil {
		return nil, err
	}
	return s.evaluator.EvaluateSnapshots(snapshots)
}
