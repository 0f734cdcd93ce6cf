package services

import (
	"context"
	"crowned-trader/interfaces"
	"crowned-trader/models"
	"crowned-trader/selector"
	"errors"
	"testing"
	"time"
)

func aaplChain(t *testing.T) *interfaces.OptionsChain {
	t.Helper()
	chain, err := BuildChain("AAPL", dec("200"), asOf, []interfaces.OptionQuote{
		optionQuote("AAPL250117C00210000", 0.30, "1.00", "1.05", 1000),
		optionQuote("AAPL250117C00205000", 0.45, "2.00", "2.05", 1000),
		optionQuote("AAPL250117C00195000", 0.55, "5.00", "5.05", 1000),
		optionQuote("AAPL250117C00185000", 0.70, "9.00", "9.05", 1000),
		optionQuote("AAPL250117P00195000", -0.40, "1.50", "1.55", 50), // illiquid
	})
	if err != nil {
		t.Fatalf("BuildChain() error = %v", err)
	}
	return chain
}

func newTestContractService(provider interfaces.ChainProvider, store SelectionStore, journal *SelectionJournal, notifier Notifier) *ContractService {
	cs := NewContractService(provider, selector.NewPipeline(), store, journal, notifier, ContractServiceConfig{BatchConcurrency: 2})
	cs.logger = quietLogger()
	cs.now = func() time.Time { return asOf }
	return cs
}

func TestSelectForSignal(t *testing.T) {
	provider := &fakeProvider{chains: map[string]*interfaces.OptionsChain{"AAPL": aaplChain(t)}}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	journal := NewSelectionJournal(t.TempDir())
	journal.logger = quietLogger()
	journal.now = func() time.Time { return asOf }

	cs := newTestContractService(provider, store, journal, notifier)
	result, err := cs.SelectForSignal(context.Background(), interfaces.Signal{
		Underlying: "AAPL",
		Direction:  interfaces.Buy,
		Strategy:   interfaces.Scalp,
	})
	if err != nil {
		t.Fatalf("SelectForSignal() error = %v", err)
	}

	if result.Status != models.SelectionStatusSelected {
		t.Fatalf("Status = %s, want SELECTED", result.Status)
	}
	if result.ID == "" {
		t.Error("expected a selection ID")
	}
	if got := result.Contract.Quote.Symbol; got != "AAPL250117C00195000" {
		t.Errorf("selected %s, want AAPL250117C00195000", got)
	}

	if len(store.saved) != 1 {
		t.Fatalf("store has %d selections, want 1", len(store.saved))
	}
	rec := store.saved[0]
	if rec.SelectionID != result.ID || rec.ContractSymbol != "AAPL250117C00195000" || rec.Strike != "195" || rec.DTE != 11 {
		t.Errorf("unexpected stored selection %+v", rec)
	}

	if len(notifier.sent) != 1 {
		t.Errorf("sent %d notifications, want 1", len(notifier.sent))
	}

	log, err := journal.GetCurrentLog()
	if err != nil {
		t.Fatalf("GetCurrentLog() error = %v", err)
	}
	if log.Summary.Selected != 1 || log.Entries[0].Contract != "AAPL250117C00195000" {
		t.Errorf("unexpected journal %+v", log)
	}
}

func TestSelectForSignalFailure(t *testing.T) {
	provider := &fakeProvider{chains: map[string]*interfaces.OptionsChain{"AAPL": aaplChain(t)}}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	cs := newTestContractService(provider, store, nil, notifier)

	// Only an illiquid put exists for Sell
	result, err := cs.SelectForSignal(context.Background(), interfaces.Signal{
		Underlying: "AAPL",
		Direction:  interfaces.Sell,
		Strategy:   interfaces.Scalp,
	})

	var failure *selector.SelectionFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *SelectionFailure, got %v", err)
	}
	if !errors.Is(err, selector.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if result.Status != models.SelectionStatusFailed || result.Failure.Category != selector.CategoryLiquidity {
		t.Errorf("Status = %s, Category = %s", result.Status, result.Failure.Category)
	}

	if len(store.saved) != 1 || store.saved[0].FailureCategory != string(selector.CategoryLiquidity) {
		t.Errorf("unexpected stored selections %+v", store.saved)
	}
	if store.saved[0].Eliminated != `{"liquidity":1}` {
		t.Errorf("Eliminated = %s", store.saved[0].Eliminated)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("sent %d notifications, want 1", len(notifier.sent))
	}
}

func TestSelectForSignalErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		signal   interfaces.Signal
		want     error
	}{
		{
			name:     "invalid signal",
			provider: &fakeProvider{},
			signal:   interfaces.Signal{Underlying: "AAPL", Direction: "hold", Strategy: interfaces.Scalp},
			want:     selector.ErrInvalidSignal,
		},
		{
			name:     "provider error",
			provider: &fakeProvider{err: errors.New("connection refused")},
			signal:   interfaces.Signal{Underlying: "AAPL", Direction: interfaces.Buy, Strategy: interfaces.Swing},
			want:     selector.ErrProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			notifier := &fakeNotifier{}
			cs := newTestContractService(tt.provider, store, nil, notifier)

			result, err := cs.SelectForSignal(context.Background(), tt.signal)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if result.Status != models.SelectionStatusError || result.Error == "" {
				t.Errorf("Status = %s, Error = %q", result.Status, result.Error)
			}
			if len(store.saved) != 1 {
				t.Errorf("store has %d selections, want 1", len(store.saved))
			}
			if len(notifier.sent) != 0 {
				t.Errorf("errors should not be notified, sent %d", len(notifier.sent))
			}
		})
	}

	provider := &fakeProvider{}
	cs := newTestContractService(provider, nil, nil, nil)
	cs.SelectForSignal(context.Background(), interfaces.Signal{Underlying: "", Direction: interfaces.Buy, Strategy: interfaces.LEAP})
	if provider.calls != 0 {
		t.Errorf("invalid signal fetched a chain")
	}
}

func TestSelectForSignalFetchTimeout(t *testing.T) {
	store := &fakeStore{}
	cs := NewContractService(&fakeProvider{block: true}, selector.NewPipeline(), store, nil, nil, ContractServiceConfig{
		FetchTimeout: 50 * time.Millisecond,
	})
	cs.logger = quietLogger()
	cs.now = func() time.Time { return asOf }

	start := time.Now()
	result, err := cs.SelectForSignal(context.Background(), interfaces.Signal{
		Underlying: "AAPL",
		Direction:  interfaces.Buy,
		Strategy:   interfaces.Swing,
	})
	elapsed := time.Since(start)

	if !errors.Is(err, selector.ErrProvider) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want ErrProvider wrapping context.DeadlineExceeded", err)
	}
	if elapsed > time.Second {
		t.Errorf("SelectForSignal returned after %s, fetch timeout was 50ms", elapsed)
	}
	if result.Status != models.SelectionStatusError {
		t.Errorf("Status = %s, want ERROR", result.Status)
	}
	if len(store.saved) != 1 {
		t.Errorf("store has %d selections, want 1", len(store.saved))
	}
}

func TestSelectForSignalStoreErrorIgnored(t *testing.T) {
	provider := &fakeProvider{chains: map[string]*interfaces.OptionsChain{"AAPL": aaplChain(t)}}
	cs := newTestContractService(provider, &fakeStore{err: errors.New("disk full")}, nil, nil)

	result, err := cs.SelectForSignal(context.Background(), interfaces.Signal{
		Underlying: "AAPL",
		Direction:  interfaces.Buy,
		Strategy:   interfaces.Scalp,
	})
	if err != nil || result.Status != models.SelectionStatusSelected {
		t.Errorf("store failure changed the outcome: %v, %s", err, result.Status)
	}
}

func TestSelectBatch(t *testing.T) {
	provider := &fakeProvider{chains: map[string]*interfaces.OptionsChain{"AAPL": aaplChain(t)}}
	store := &fakeStore{}
	cs := newTestContractService(provider, store, nil, nil)

	signals := []interfaces.Signal{
		{Underlying: "AAPL", Direction: interfaces.Buy, Strategy: interfaces.Scalp},
		{Underlying: "MSFT", Direction: interfaces.Buy, Strategy: interfaces.Scalp}, // provider has no chain
		{Underlying: "AAPL", Direction: interfaces.Sell, Strategy: interfaces.Scalp},
		{Underlying: "AAPL", Direction: interfaces.Buy, Strategy: interfaces.LEAP},
	}
	results := cs.SelectBatch(context.Background(), signals)

	if len(results) != len(signals) {
		t.Fatalf("got %d results, want %d", len(results), len(signals))
	}
	want := []string{
		models.SelectionStatusSelected,
		models.SelectionStatusError,
		models.SelectionStatusFailed,
		models.SelectionStatusFailed,
	}
	for i, r := range results {
		if r.Signal != signals[i] {
			t.Errorf("result %d is for %+v, want %+v", i, r.Signal, signals[i])
		}
		if r.Status != want[i] {
			t.Errorf("result %d status = %s, want %s", i, r.Status, want[i])
		}
	}
	if results[3].Failure.Category != selector.CategoryWindow {
		t.Errorf("LEAP category = %s, want window", results[3].Failure.Category)
	}
	if provider.calls != 4 {
		t.Errorf("provider called %d times, want 4", provider.calls)
	}
	if len(store.saved) != 4 {
		t.Errorf("store has %d selections, want 4", len(store.saved))
	}
}
