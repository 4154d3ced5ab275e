package simulator

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alevras/covercall/internal/domain"
	"github.com/alevras/covercall/internal/modules/rules"

	_ "modernc.org/sqlite"
)

func setupService(t *testing.T, evaluator RuleEvaluator) *Service {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo, err := NewRepository(db, log)
	require.NoError(t, err)

	svc := NewService(repo, evaluator, log)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func pmccRequest() OpenTradeRequest {
	return OpenTradeRequest{
		Symbol:       "MSFT",
		StrategyType: domain.StrategyPMCC,
		Quantity:     1,
		LongStrike:   320,
		LongExpiry:   "2026-01-16",
		LongEntry:    45.00,
		ShortStrike:  360,
		ShortExpiry:  "2025-06-20",
		ShortEntry:   3.50,
		ShortDelta:   0.30,
		ShortTheta:   -0.05,
	}
}

func TestOpen_Validation(t *testing.T) {
	svc := setupService(t, nil)

	_, err := svc.Open(OpenTradeRequest{StrategyType: domain.StrategyPMCC})
	assert.Error(t, err)

	req := pmccRequest()
	req.LongEntry = 0
	_, err = svc.Open(req)
	assert.Error(t, err)

	req = pmccRequest()
	req.StrategyType = "butterfly"
	_, err = svc.Open(req)
	assert.Error(t, err)

	// Quantity defaults to one contract
	req = pmccRequest()
	req.Quantity = 0
	trade, err := svc.Open(req)
	require.NoError(t, err)
	assert.Equal(t, 1, trade.Quantity)
	assert.Equal(t, domain.TradeOpen, trade.Status)
	assert.Equal(t, trade.ShortEntry, trade.ShortCurrent)
}

func TestTrade_PnLAndBasis(t *testing.T) {
	svc := setupService(t, nil)

	trade, err := svc.Open(pmccRequest())
	require.NoError(t, err)

	// Net debit: (45.00 - 3.50) * 100 = 4150
	assert.InDelta(t, 4150.0, trade.CostBasis(), 1e-9)
	assert.InDelta(t, 0.0, trade.UnrealizedPnL(), 1e-9)

	// LEAPS up to 48, short decayed to 1.40
	long, short := 48.0, 1.40
	applied, err := svc.ApplyMarks([]Mark{{TradeID: trade.ID, LongCurrent: &long, ShortCurrent: &short}})
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	got, err := svc.Get(trade.ID)
	require.NoError(t, err)
	// (48-45)*100 + (3.50-1.40)*100 = 300 + 210
	assert.InDelta(t, 510.0, got.UnrealizedPnL(), 1e-9)
	assert.InDelta(t, 60.0, got.PremiumCapturePct(), 1e-9)
}

func TestSnapshot_Fields(t *testing.T) {
	svc := setupService(t, nil)

	trade, err := svc.Open(pmccRequest())
	require.NoError(t, err)

	short := 0.70 // 80% of the 3.50 credit captured
	_, err = svc.ApplyMarks([]Mark{{TradeID: trade.ID, ShortCurrent: &short}})
	require.NoError(t, err)

	snapshots, err := svc.Snapshots()
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	snap := snapshots[0]
	assert.Equal(t, trade.ID, snap.TradeID)
	assert.Equal(t, "MSFT", snap.Symbol)
	assert.InDelta(t, 80.0, snap.PremiumCapturePct, 1e-9)
	// 2025-06-01 -> 2025-06-20
	assert.InDelta(t, 19.0, snap.DTERemaining, 1e-9)
	assert.InDelta(t, 0.0, snap.DaysHeld, 1e-9)
	// Short decay is pure profit: 280 / 4150
	assert.InDelta(t, 280.0/4150.0*100, snap.ProfitPct, 1e-6)
	assert.Zero(t, snap.LossPct)
}

func TestRoll_BooksIncomeAndReplacesShort(t *testing.T) {
	svc := setupService(t, nil)

	trade, err := svc.Open(pmccRequest())
	require.NoError(t, err)

	short := 0.50
	_, err = svc.ApplyMarks([]Mark{{TradeID: trade.ID, ShortCurrent: &short}})
	require.NoError(t, err)

	rolled, err := svc.Roll(trade.ID, RollRequest{
		ShortStrike: 365,
		ShortExpiry: "2025-07-18",
		ShortEntry:  3.20,
	})
	require.NoError(t, err)

	// (3.50 - 0.50) * 100 realized on the old short
	assert.InDelta(t, 300.0, rolled.RealizedPnL, 1e-9)
	assert.InDelta(t, 300.0, rolled.CumulativeIncome, 1e-9)
	assert.Equal(t, 1, rolled.RollCount)
	assert.Equal(t, 365.0, rolled.ShortStrike)
	assert.Equal(t, "2025-07-18", rolled.ShortExpiry)
	assert.Equal(t, 3.20, rolled.ShortCurrent)
	assert.Equal(t, domain.TradeOpen, rolled.Status)
}

func TestClose_TerminalStatuses(t *testing.T) {
	svc := setupService(t, nil)

	trade, err := svc.Open(pmccRequest())
	require.NoError(t, err)

	_, err = svc.Close(trade.ID, domain.TradeStatus("open"))
	assert.Error(t, err)

	// Expired short is settled at zero, full credit booked as income
	closed, err := svc.Close(trade.ID, domain.TradeExpired)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeExpired, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.InDelta(t, 350.0, closed.CumulativeIncome, 1e-9)
	assert.InDelta(t, 350.0, closed.RealizedPnL, 1e-9)

	// Closed trades can't be closed again, rolled, or re-marked
	_, err = svc.Close(trade.ID, domain.TradeClosed)
	assert.Error(t, err)
	_, err = svc.Roll(trade.ID, RollRequest{ShortEntry: 1, ShortExpiry: "2025-08-15"})
	assert.Error(t, err)

	price := 99.0
	applied, err := svc.ApplyMarks([]Mark{{TradeID: trade.ID, StockPrice: &price}})
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestApplyQuotes_CoveredCallStockPrice(t *testing.T) {
	svc := setupService(t, nil)

	trade, err := svc.Open(OpenTradeRequest{
		Symbol:       "AAPL",
		StrategyType: domain.StrategyCoveredCall,
		StockEntry:   180,
		ShortStrike:  190,
		ShortExpiry:  "2025-06-20",
		ShortEntry:   2.10,
	})
	require.NoError(t, err)

	applied, err := svc.ApplyQuotes(map[string]float64{"AAPL": 186.5, "TSLA": 250})
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	got, err := svc.Get(trade.ID)
	require.NoError(t, err)
	assert.Equal(t, 186.5, got.StockPrice)
	// (186.5-180)*100 + no short movement
	assert.InDelta(t, 650.0, got.UnrealizedPnL(), 1e-9)
}

type stubEvaluator struct {
	got []rules.TradeSnapshot
}

func (s *stubEvaluator) EvaluateSnapshots(snapshots []rules.TradeSnapshot) ([]rules.Match, error) {
	s.got = snapshots
	return []rules.Match{{RuleID: "r1", TradeID: snapshots[0].TradeID, Action: rules.Action{ActionType: rules.ActionRoll}}}, nil
}

func TestEvaluateRules_UsesOpenBook(t *testing.T) {
	eval := &stubEvaluator{}
	svc := setupService(t, eval)

	trade, err := svc.Open(pmccRequest())
	require.NoError(t, err)

	matches, err := svc.EvaluateRules()
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, trade.ID, matches[0].TradeID)
	require.Len(t, eval.got, 1)
	assert.Equal(t, domain.StrategyPMCC, eval.got[0].StrategyType)
}

func TestContractLabels(t *testing.T) {
	trade := Trade{
		Symbol:       "MSFT",
		StrategyType: domain.StrategyPMCC,
		LongStrike:   320,
		LongExpiry:   "2026-01-16",
		ShortStrike:  360,
		ShortExpiry:  "2025-06-20",
	}
	long, short := trade.ContractLabels()
	assert.Equal(t, "16JAN26 320 C", long)
	assert.Equal(t, "20JUN25 360 C", short)

	// Covered call long leg is just the ticker
	trade.StrategyType = domain.StrategyCoveredCall
	long, _ = trade.ContractLabels()
	assert.Equal(t, "MSFT", long)

	// Missing expiry degrades to strike-only
	trade.ShortExpiry = "not-a-date"
	_, short = trade.ContractLabels()
	assert.Equal(t, "360 C", short)
}
