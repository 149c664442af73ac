package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"stockbotv1/internal/model"
	"stockbotv1/internal/risk"
)

// fakeSignalStore is an in-memory SignalStore.
type fakeSignalStore struct {
	signals map[int64]*model.Signal
	order   []int64 // insertion order, used for ListUnexecuted
}

func newFakeSignalStore(sigs ...model.Signal) *fakeSignalStore {
	f := &fakeSignalStore{signals: make(map[int64]*model.Signal)}
	for i := range sigs {
		s := sigs[i]
		if s.ID == 0 {
			s.ID = int64(i + 1)
		}
		f.signals[s.ID] = &s
		f.order = append(f.order, s.ID)
	}
	return f
}

func (f *fakeSignalStore) InsertSignals(context.Context, []model.Signal) error { return nil }
func (f *fakeSignalStore) HasSignalAt(context.Context, string, time.Time) (bool, error) {
	return false, nil
}

func (f *fakeSignalStore) ListUnexecuted(context.Context) ([]model.Signal, error) {
	var out []model.Signal
	for _, id := range f.order {
		if s := f.signals[id]; !s.Executed {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSignalStore) GetSignal(_ context.Context, id int64) (*model.Signal, error) {
	s, ok := f.signals[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSignalStore) MarkExecuted(_ context.Context, id int64, details model.ExecutionDetails) (bool, error) {
	s, ok := f.signals[id]
	if !ok || s.Executed {
		return false, nil
	}
	s.Executed = true
	s.ExecutionDetails = &details
	return true, nil
}

func (f *fakeSignalStore) LatestSignals(context.Context, int) ([]model.Signal, error) {
	return nil, nil
}

// fakeBroker records calls and can fail on demand.
type fakeBroker struct {
	cash        float64
	buyingPower float64 // defaults to cash when zero
	price       float64
	failWith    error
	calls       int
	submitted   []model.OrderRequest
}

func (b *fakeBroker) GetAccount(context.Context) (model.Account, error) {
	b.calls++
	if b.failWith != nil {
		return model.Account{}, b.failWith
	}
	bp := b.buyingPower
	if bp == 0 {
		bp = b.cash
	}
	return model.Account{Cash: b.cash, BuyingPower: bp}, nil
}

func (b *fakeBroker) GetLatestTrade(_ context.Context, symbol string) (model.Trade, error) {
	b.calls++
	if b.failWith != nil {
		return model.Trade{}, b.failWith
	}
	return model.Trade{Symbol: symbol, Price: b.price, TS: time.Now()}, nil
}

func (b *fakeBroker) SubmitOrder(_ context.Context, req model.OrderRequest) (model.Order, error) {
	b.calls++
	if b.failWith != nil {
		return model.Order{}, b.failWith
	}
	b.submitted = append(b.submitted, req)
	return model.Order{ID: "ord-1", Symbol: req.Symbol, Qty: req.Qty, Side: req.Side, Status: "accepted"}, nil
}

func buySignal(id int64) model.Signal {
	return model.Signal{
		ID:     id,
		Symbol: "AAPL",
		TS:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Type:   model.SignalBuy,
		Reason: model.ReasonRSIOversold,
		Values: map[string]float64{"rsi": 25},
	}
}

func sellSignal(id int64) model.Signal {
	s := buySignal(id)
	s.Type = model.SignalSell
	s.Reason = model.ReasonRSIOverbought
	s.Values = map[string]float64{"rsi": 75}
	return s
}

func fixedNow() time.Time { return time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC) } // Monday 10:00 ET

func TestPollOnce_DryRunLatchesWithoutBrokerCall(t *testing.T) {
	store := newFakeSignalStore(buySignal(1))
	broker := &fakeBroker{cash: 1000, price: 50}

	exec := New(Config{DryRun: true, Now: fixedNow}, store, broker, nil, nil, nil)
	if err := exec.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}

	if broker.calls != 0 {
		t.Errorf("broker was called %d times in dry-run mode", broker.calls)
	}
	s := store.signals[1]
	if !s.Executed {
		t.Fatal("signal not marked executed")
	}
	if s.ExecutionDetails == nil || !s.ExecutionDetails.DryRun {
		t.Errorf("execution details = %+v, want dry_run=true", s.ExecutionDetails)
	}
	if s.ExecutionDetails.Timestamp.IsZero() {
		t.Error("dry-run details missing timestamp")
	}
}

func TestPollOnce_BuySizingIsZeroLeverage(t *testing.T) {
	store := newFakeSignalStore(buySignal(1))
	broker := &fakeBroker{cash: 1000, price: 50}

	exec := New(Config{Now: fixedNow}, store, broker, nil, nil, nil)
	if err := exec.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}

	if len(broker.submitted) != 1 {
		t.Fatalf("submitted %d orders, want 1", len(broker.submitted))
	}
	req := broker.submitted[0]
	if req.Qty != 20 {
		t.Errorf("qty = %d, want 20 (floor(1000/50))", req.Qty)
	}
	if float64(req.Qty)*broker.price > broker.cash {
		t.Errorf("zero-leverage violated: %d × %.2f > %.2f", req.Qty, broker.price, broker.cash)
	}
	if req.Side != model.SideBuy || req.Type != model.OrderTypeMarket || req.TimeInForce != model.TIFGoodTillCanceled {
		t.Errorf("order = %+v, want market buy gtc", req)
	}

	s := store.signals[1]
	if !s.Executed || s.ExecutionDetails.OrderID != "ord-1" || s.ExecutionDetails.Qty != 20 {
		t.Errorf("execution details = %+v", s.ExecutionDetails)
	}
}

func TestPollOnce_SellSignalsStayPendingInPollPath(t *testing.T) {
	store := newFakeSignalStore(sellSignal(1))
	broker := &fakeBroker{cash: 1000, price: 50}

	exec := New(Config{Now: fixedNow}, store, broker, nil, nil, nil)
	if err := exec.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}

	if len(broker.submitted) != 0 {
		t.Errorf("poll path must not size SELL orders, submitted %d", len(broker.submitted))
	}
	if store.signals[1].Executed {
		t.Error("SELL signal must stay pending in the poll path")
	}
}

func TestPollOnce_BrokerErrorLeavesPending(t *testing.T) {
	store := newFakeSignalStore(buySignal(1))
	broker := &fakeBroker{cash: 1000, price: 50, failWith: errors.New("api: 503")}

	exec := New(Config{Now: fixedNow}, store, broker, nil, nil, nil)
	if err := exec.PollOnce(context.Background()); err != nil {
		t.Fatalf("poll cycle must survive broker errors, got %v", err)
	}
	if store.signals[1].Executed {
		t.Error("signal must stay pending after a broker error")
	}

	// Next cycle retries and succeeds.
	broker.failWith = nil
	if err := exec.PollOnce(context.Background()); err != nil {
		t.Fatalf("retry cycle: %v", err)
	}
	if !store.signals[1].Executed {
		t.Error("signal not executed on retry cycle")
	}
}

func TestPollOnce_InsufficientCashLeavesPending(t *testing.T) {
	store := newFakeSignalStore(buySignal(1))
	broker := &fakeBroker{cash: 30, price: 50}

	exec := New(Config{Now: fixedNow}, store, broker, nil, nil, nil)
	if err := exec.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	if len(broker.submitted) != 0 || store.signals[1].Executed {
		t.Error("qty=0 signal must be left pending, not executed")
	}
}

func TestPollOnce_RiskHaltPropagates(t *testing.T) {
	store := newFakeSignalStore(buySignal(1))
	broker := &fakeBroker{cash: 1000, price: 50}
	rm := risk.New(100000, 1.0, 1.0) // limit = 1000
	if err := rm.RecordPL(-1000); !errors.Is(err, risk.ErrDailyLossLimit) {
		t.Fatalf("setup: %v", err)
	}

	exec := New(Config{Now: fixedNow}, store, broker, rm, nil, nil)
	err := exec.PollOnce(context.Background())
	if !errors.Is(err, risk.ErrDailyLossLimit) {
		t.Fatalf("PollOnce = %v, want ErrDailyLossLimit (hard stop)", err)
	}
	if len(broker.submitted) != 0 {
		t.Error("no order may be submitted after the daily loss breach")
	}
}

func TestPollOnce_ProcessesOldestFirst(t *testing.T) {
	older := buySignal(1)
	newer := buySignal(2)
	newer.TS = older.TS.AddDate(0, 0, 1)
	store := newFakeSignalStore(older, newer)
	broker := &fakeBroker{cash: 1000, price: 50}

	exec := New(Config{DryRun: true, Now: fixedNow}, store, broker, nil, nil, nil)
	if err := exec.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}

	first := store.signals[1].ExecutionDetails
	second := store.signals[2].ExecutionDetails
	if first == nil || second == nil {
		t.Fatal("both signals should be executed in dry-run")
	}
}

func TestExecuteSignal_SizesSellFromCash(t *testing.T) {
	store := newFakeSignalStore(sellSignal(7))
	// Margin inflates buying power; sizing must stay on cash so the
	// zero-leverage invariant holds.
	broker := &fakeBroker{cash: 1000, buyingPower: 5000, price: 50}

	exec := New(Config{Now: fixedNow}, store, broker, nil, nil, nil)
	if err := exec.ExecuteSignal(context.Background(), 7); err != nil {
		t.Fatalf("ExecuteSignal: %v", err)
	}

	if len(broker.submitted) != 1 {
		t.Fatalf("submitted %d orders, want 1", len(broker.submitted))
	}
	req := broker.submitted[0]
	if req.Side != model.SideSell || req.Qty != 20 {
		t.Errorf("order = %+v, want sell qty=20 = floor(cash/price), not buying power", req)
	}
}

func TestExecuteSignal_ReChecksExecutedLatch(t *testing.T) {
	sig := buySignal(3)
	sig.Executed = true
	sig.ExecutionDetails = &model.ExecutionDetails{DryRun: true, Timestamp: fixedNow()}
	store := newFakeSignalStore(sig)
	broker := &fakeBroker{cash: 1000, price: 50}

	exec := New(Config{Now: fixedNow}, store, broker, nil, nil, nil)
	err := exec.ExecuteSignal(context.Background(), 3)
	if !errors.Is(err, ErrAlreadyExecuted) {
		t.Fatalf("ExecuteSignal = %v, want ErrAlreadyExecuted", err)
	}
	if broker.calls != 0 {
		t.Error("no broker call may happen for an already-executed signal")
	}
}

func TestExecuteSignal_UnknownID(t *testing.T) {
	exec := New(Config{Now: fixedNow}, newFakeSignalStore(), &fakeBroker{}, nil, nil, nil)
	if err := exec.ExecuteSignal(context.Background(), 99); !errors.Is(err, ErrSignalNotFound) {
		t.Fatalf("ExecuteSignal = %v, want ErrSignalNotFound", err)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	store := newFakeSignalStore()
	exec := New(Config{DryRun: true, PollInterval: time.Millisecond, Now: fixedNow}, store, nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- exec.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil on cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestRun_HaltsOnDailyLossBreach(t *testing.T) {
	store := newFakeSignalStore(buySignal(1))
	broker := &fakeBroker{cash: 1000, price: 50}
	rm := risk.New(100000, 1.0, 1.0)
	rm.RecordPL(-1000)

	exec := New(Config{PollInterval: time.Millisecond, Now: fixedNow}, store, broker, rm, nil, nil)

	done := make(chan error, 1)
	go func() { done <- exec.Run(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, risk.ErrDailyLossLimit) {
			t.Fatalf("Run = %v, want ErrDailyLossLimit", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not halt on the daily loss breach")
	}
}
